package model

import "time"

// JobStatus is the state of one organization's sync job.
type JobStatus string

const (
	JobPending      JobStatus = StatePending
	JobBranchReady  JobStatus = StateBranchReady
	JobFilesSyncing JobStatus = StateFilesSyncing
	JobFilesSynced  JobStatus = StateFilesSynced
	JobPROpened     JobStatus = StatePROpened
	JobNoChanges    JobStatus = StateNoChanges
	JobFailed       JobStatus = StateFailed
)

// IsTerminal reports whether no further transition can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobPROpened || s == JobNoChanges || s == JobFailed
}

// Succeeded reports whether the job ended without failure.
func (s JobStatus) Succeeded() bool {
	return s == JobPROpened || s == JobNoChanges
}

// SyncJob is the execution record of one organization within one run.
type SyncJob struct {
	OrgName           string
	DestinationRepo   string // owner/repo
	BranchName        string
	Files             []ChangedFile
	Status            JobStatus
	FailureKind       string
	FailureReason     string
	PullRequestNumber int
	PullRequestURL    string
	Committed         []string // Destination paths written on the sync branch.
	Skipped           []string // Source paths absent at the head commit.
	StartedAt         time.Time
	FinishedAt        time.Time
}

// Duration returns how long the job ran.
func (j SyncJob) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
