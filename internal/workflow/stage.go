// internal/workflow/stage.go
//
// Stages of the hiring pipeline and the statuses the remote workflow API
// reports. The server owns the pipeline; the client only needs to name,
// order and display the stages.

package workflow

import "strings"

// Stage represents one unit of the hiring pipeline
type Stage int

const (
	StageNone Stage = iota
	StageRoleDefinition
	StageJobDescription
	StageInterviewPlan
	StageTimeline
	StageSalaryBenchmark
	StageOfferLetter
)

var stageOrder = []Stage{
	StageRoleDefinition,
	StageJobDescription,
	StageInterviewPlan,
	StageTimeline,
	StageSalaryBenchmark,
	StageOfferLetter,
}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// String returns the wire name used in results bags and completed_stages
func (s Stage) String() string {
	switch s {
	case StageRoleDefinition:
		return "role_definition"
	case StageJobDescription:
		return "job_description"
	case StageInterviewPlan:
		return "interview_plan"
	case StageTimeline:
		return "timeline"
	case StageSalaryBenchmark:
		return "salary_benchmark"
	case StageOfferLetter:
		return "offer_letter"
	default:
		return ""
	}
}

// Label returns a short title suitable for the step indicator
func (s Stage) Label() string {
	switch s {
	case StageRoleDefinition:
		return "Role Definition"
	case StageJobDescription:
		return "Job Description"
	case StageInterviewPlan:
		return "Interview Planning"
	case StageTimeline:
		return "Timeline Estimation"
	case StageSalaryBenchmark:
		return "Salary Benchmarking"
	case StageOfferLetter:
		return "Offer Generation"
	default:
		return "Not Started"
	}
}

// Description explains what the stage produces.
func (s Stage) Description() string {
	switch s {
	case StageRoleDefinition:
		return "Analyzing role requirements and defining the position"
	case StageJobDescription:
		return "Creating comprehensive job description and requirements"
	case StageInterviewPlan:
		return "Designing interview process and assessment criteria"
	case StageTimeline:
		return "Calculating hiring timeline and key milestones"
	case StageSalaryBenchmark:
		return "Researching market salary ranges and compensation"
	case StageOfferLetter:
		return "Generating professional offer letter template"
	default:
		return ""
	}
}

// ParseStage maps a wire name back to a Stage. Unknown names yield StageNone.
func ParseStage(name string) Stage {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range stageOrder {
		if s.String() == name {
			return s
		}
	}
	return StageNone
}

// StepIndex converts a completed-stage count into the active step of the
// indicator, clamped to the number of stages.
func StepIndex(completed int) int {
	if completed < 0 {
		return 0
	}
	if completed > len(stageOrder) {
		return len(stageOrder)
	}
	return completed
}

// Status is the workflow state reported by GET /api/workflow/{sessionId}.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusPending    Status = "pending"
	StatusLoading    Status = "loading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether polling should stop on this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// NormalizeStatus lowercases and trims a wire status.
func NormalizeStatus(value string) Status {
	return Status(strings.ToLower(strings.TrimSpace(value)))
}
