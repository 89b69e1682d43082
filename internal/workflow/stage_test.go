package workflow

import "testing"

func TestStagesRoundTripWireNames(t *testing.T) {
	want := []string{"role_definition", "job_description", "interview_plan", "timeline", "salary_benchmark", "offer_letter"}
	stages := Stages()
	if len(stages) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(stages))
	}
	for i, stage := range stages {
		if stage.String() != want[i] {
			t.Fatalf("stage %d: expected %q, got %q", i, want[i], stage.String())
		}
		if got := ParseStage(" " + want[i] + " "); got != stage {
			t.Fatalf("ParseStage(%q) = %v", want[i], got)
		}
		if stage.Label() == "" || stage.Description() == "" {
			t.Fatalf("stage %s missing display text", want[i])
		}
	}
}

func TestStagesReturnsCopy(t *testing.T) {
	stages := Stages()
	stages[0] = StageOfferLetter
	if Stages()[0] != StageRoleDefinition {
		t.Fatalf("callers must not be able to reorder the pipeline")
	}
}

func TestParseStageUnknown(t *testing.T) {
	if got := ParseStage("budget_review"); got != StageNone {
		t.Fatalf("expected StageNone, got %v", got)
	}
	if StageNone.Label() != "Not Started" {
		t.Fatalf("unexpected label for StageNone: %q", StageNone.Label())
	}
}

func TestStepIndexClamps(t *testing.T) {
	cases := map[int]int{-1: 0, 0: 0, 3: 3, 6: 6, 9: 6}
	for completed, want := range cases {
		if got := StepIndex(completed); got != want {
			t.Fatalf("StepIndex(%d) = %d, want %d", completed, got, want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !NormalizeStatus(" Completed ").IsTerminal() {
		t.Fatalf("completed should stop polling")
	}
	if !NormalizeStatus("FAILED").IsTerminal() {
		t.Fatalf("failed should stop polling")
	}
	for _, s := range []string{"processing", "pending", "loading", ""} {
		if NormalizeStatus(s).IsTerminal() {
			t.Fatalf("%q must keep polling", s)
		}
	}
}

func TestAgentsLookup(t *testing.T) {
	types := AgentTypes()
	if len(types) != 3 || types[0] != "role_definition" || types[1] != "jd_generator" || types[2] != "interview_planner" {
		t.Fatalf("unexpected agent types %v", types)
	}
	agent, ok := LookupAgent(" jd_generator ")
	if !ok || agent.Label != "JD Generator Agent" {
		t.Fatalf("lookup failed: %+v %v", agent, ok)
	}
	if len(agent.Examples) == 0 {
		t.Fatalf("agents should carry example prompts")
	}
	if _, ok := LookupAgent("offer_writer"); ok {
		t.Fatalf("unknown agent should not resolve")
	}
}
