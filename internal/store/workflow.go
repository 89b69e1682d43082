package store

import (
	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/workflow"
)

// RunStatus is the client projection of a workflow run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunLoading   RunStatus = "loading"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunTimedOut  RunStatus = "timed_out"
)

// WorkflowState is the workflow slice.
type WorkflowState struct {
	SessionID       string
	Status          RunStatus
	CurrentStage    string
	CompletedStages []string
	Results         api.Results
	Error           string

	// lastSeq is the sequence number of the newest applied status response.
	lastSeq uint64
	seq     uint64
}

func (w WorkflowState) clone() WorkflowState {
	if w.CompletedStages != nil {
		w.CompletedStages = append([]string(nil), w.CompletedStages...)
	}
	if w.Results != nil {
		cp := make(api.Results, len(w.Results))
		for k, v := range w.Results {
			cp[k] = v
		}
		w.Results = cp
	}
	return w
}

// WorkflowPending marks a start or agent run as in flight.
func (s *Store) WorkflowPending() {
	s.update(func() bool {
		s.workflow.Status = RunLoading
		s.workflow.Error = ""
		return true
	})
}

// WorkflowStarted records the start response. The run stays loading until
// polling observes a terminal status.
func (s *Store) WorkflowStarted(resp api.WorkflowResponse) {
	s.update(func() bool {
		s.workflow.SessionID = resp.SessionID
		s.workflow.Status = RunLoading
		s.workflow.CurrentStage = resp.CurrentStage
		s.workflow.CompletedStages = nonNil(resp.CompletedStages)
		s.workflow.Results = resp.Results
		s.workflow.Error = resp.Error
		s.workflow.lastSeq = 0
		s.workflow.seq = 0
		return true
	})
}

// NextSequence reserves the sequence number for an outgoing status request.
func (s *Store) NextSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflow.seq++
	return s.workflow.seq
}

// ApplyWorkflowStatus applies a status response tagged with the sequence
// number reserved for its request. Responses older than the newest applied
// one, or for another session, are discarded and false is returned.
func (s *Store) ApplyWorkflowStatus(seq uint64, resp api.WorkflowResponse) bool {
	return s.update(func() bool {
		if seq <= s.workflow.lastSeq {
			return false
		}
		if s.workflow.SessionID != "" && resp.SessionID != "" && resp.SessionID != s.workflow.SessionID {
			return false
		}
		s.workflow.lastSeq = seq
		s.workflow.CurrentStage = resp.CurrentStage
		s.workflow.CompletedStages = nonNil(resp.CompletedStages)
		s.workflow.Results = resp.Results
		s.workflow.Error = resp.Error
		switch workflow.NormalizeStatus(resp.Status) {
		case workflow.StatusCompleted:
			s.workflow.Status = RunSucceeded
		case workflow.StatusFailed:
			s.workflow.Status = RunFailed
			if s.workflow.Error == "" {
				s.workflow.Error = "Workflow failed"
			}
		default:
			s.workflow.Status = RunLoading
		}
		return true
	})
}

// WorkflowFailed records a failed start, poll or agent run.
func (s *Store) WorkflowFailed(message string) {
	s.update(func() bool {
		s.workflow.Status = RunFailed
		s.workflow.Error = message
		return true
	})
}

// WorkflowTimedOut marks a run whose polling hit the attempt ceiling while
// the server still reported it in progress.
func (s *Store) WorkflowTimedOut() {
	s.update(func() bool {
		if s.workflow.Status != RunLoading {
			return false
		}
		s.workflow.Status = RunTimedOut
		return true
	})
}

// AgentRunFinished records a playground run outcome.
func (s *Store) AgentRunFinished(resp api.AgentRunResponse) {
	s.update(func() bool {
		s.workflow.Status = RunSucceeded
		if resp.SessionID != "" && s.workflow.SessionID == "" {
			s.workflow.SessionID = resp.SessionID
		}
		s.workflow.Error = resp.Error
		return true
	})
}

// SetSessionID points the slice at an existing run.
func (s *Store) SetSessionID(sessionID string) {
	s.update(func() bool {
		s.workflow.SessionID = sessionID
		return true
	})
}

// ClearWorkflow resets the slice to idle.
func (s *Store) ClearWorkflow() {
	s.update(func() bool {
		s.workflow = WorkflowState{Status: RunIdle}
		return true
	})
}

func nonNil(stages []string) []string {
	if stages == nil {
		return []string{}
	}
	return append([]string(nil), stages...)
}
