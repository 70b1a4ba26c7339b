package model

// PullRequestEvent is the subset of a pull_request webhook delivery the sync
// needs.
type PullRequestEvent struct {
	DeliveryID     string
	Action         string
	Merged         bool
	Number         int
	Title          string
	SourceOwner    string
	SourceRepo     string
	HeadSHA        string
	InstallationID int64
}

// IsMergedClose reports whether the event is a pull request being closed by a merge.
func (e PullRequestEvent) IsMergedClose() bool {
	return e.Action == "closed" && e.Merged
}
