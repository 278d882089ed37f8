package runtime

import (
	"time"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/logger"
)

// RunStateMachine manages the lifecycle state transitions of an agent run.
// State machine: Created -> InProgress -> Completed | Failed | Cancelled
type RunStateMachine struct {
	run *entity.Run
}

// NewRunStateMachine creates a new RunStateMachine for the given run.
func NewRunStateMachine(run *entity.Run) *RunStateMachine {
	return &RunStateMachine{run: run}
}

// TransitionToInProgress transitions the run to the InProgress state.
func (sm *RunStateMachine) TransitionToInProgress() error {
	if sm.run.Status != entity.RunStatusCreated {
		return errno.ErrRunAlreadyDone
	}
	sm.run.Status = entity.RunStatusInProgress
	logger.InfoX("engine", "run %s -> in_progress", sm.run.ID)
	return nil
}

// TransitionToCompleted transitions the run to the Completed state.
func (sm *RunStateMachine) TransitionToCompleted(answer string, usage *entity.TokenUsage, cost float64) {
	now := time.Now()
	sm.run.CompletedAt = &now
	sm.run.Status = entity.RunStatusCompleted
	sm.run.Answer = answer
	sm.run.Usage = usage
	sm.run.Cost = cost
	logger.InfoX("engine", "run %s -> completed", sm.run.ID)
}

// TransitionToFailed transitions the run to the Failed state.
func (sm *RunStateMachine) TransitionToFailed(code, message string) {
	now := time.Now()
	sm.run.CompletedAt = &now
	sm.run.Status = entity.RunStatusFailed
	sm.run.Error = &entity.RunError{Code: code, Message: message}
	logger.ErrorX("engine", "run %s -> failed: %v", sm.run.ID, sm.run.Error)
}

// TransitionToCancelled transitions the run to the Cancelled state.
func (sm *RunStateMachine) TransitionToCancelled() {
	now := time.Now()
	sm.run.CompletedAt = &now
	sm.run.Status = entity.RunStatusCancelled
	logger.InfoX("engine", "run %s -> cancelled", sm.run.ID)
}

// Run returns the current run.
func (sm *RunStateMachine) Run() *entity.Run {
	return sm.run
}
