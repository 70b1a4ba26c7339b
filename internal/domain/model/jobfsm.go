package model

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit. Kept untyped so they convert to both
// statekit.StateID and JobStatus.
const (
	StatePending      = "pending"
	StateBranchReady  = "branch_ready"
	StateFilesSyncing = "files_syncing"
	StateFilesSynced  = "files_synced"
	StatePROpened     = "pr_opened"
	StateNoChanges    = "no_changes"
	StateFailed       = "failed"
)

// Job events.
const (
	EventBranchReady = "branch_ready"
	EventSyncFiles   = "sync_files"
	EventFilesDone   = "files_done"
	EventOpenPR      = "open_pr"
	EventNoChanges   = "no_changes"
	EventFail        = "fail"
)

// JobContext carries the job identity through the machine.
type JobContext struct {
	OrgName string
}

// JobStateMachine enforces the legal order of a sync job's steps.
type JobStateMachine struct {
	interpreter *statekit.Interpreter[JobContext]
}

// NewJobStateMachine builds a machine in the pending state.
func NewJobStateMachine(orgName string) (*JobStateMachine, error) {
	builder := statekit.NewMachine[JobContext]("sync-job").
		WithInitial(statekit.StateID(StatePending)).
		WithContext(JobContext{OrgName: orgName})

	builder.State(StatePending).
		On(EventBranchReady).Target(StateBranchReady).
		On(EventFail).Target(StateFailed).
		Done()

	builder.State(StateBranchReady).
		On(EventSyncFiles).Target(StateFilesSyncing).
		On(EventFail).Target(StateFailed).
		Done()

	builder.State(StateFilesSyncing).
		On(EventFilesDone).Target(StateFilesSynced).
		On(EventFail).Target(StateFailed).
		Done()

	builder.State(StateFilesSynced).
		On(EventOpenPR).Target(StatePROpened).
		On(EventNoChanges).Target(StateNoChanges).
		On(EventFail).Target(StateFailed).
		Done()

	// Terminal states.
	builder.State(StatePROpened).Done()
	builder.State(StateNoChanges).Done()
	builder.State(StateFailed).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build job state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &JobStateMachine{interpreter: interpreter}, nil
}

// Fire sends event and returns an error when it did not move the machine.
func (sm *JobStateMachine) Fire(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if sm.Current() != before {
		return nil
	}
	return fmt.Errorf("event %q is not allowed in state %q", event, before)
}

// Current returns the current state.
func (sm *JobStateMachine) Current() JobStatus {
	return JobStatus(sm.interpreter.State().Value)
}
