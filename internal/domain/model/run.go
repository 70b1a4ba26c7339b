package model

import "time"

// SkippedOrg is an organization found in a change set that could not be synced
// for a recoverable reason, such as missing registration.
type SkippedOrg struct {
	OrgName string
	Reason  string
}

// RunReport is the outcome of one pull request event: one job per registered
// organization and one entry per skipped organization.
type RunReport struct {
	ID          string
	DeliveryID  string
	PRNumber    int
	SourceOwner string
	SourceRepo  string
	HeadSHA     string
	Jobs        []SyncJob
	Skipped     []SkippedOrg
	StartedAt   time.Time
	FinishedAt  time.Time
}

// SourceFullName returns "owner/repo" of the source repository.
func (r RunReport) SourceFullName() string {
	return r.SourceOwner + "/" + r.SourceRepo
}

// FailedJobs returns the number of jobs that ended in failure.
func (r RunReport) FailedJobs() int {
	var n int
	for _, j := range r.Jobs {
		if j.Status == JobFailed {
			n++
		}
	}
	return n
}
