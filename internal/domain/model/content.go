package model

import "github.com/samber/mo"

// FileContent is a file read from a repository at a ref.
type FileContent struct {
	Path    string
	SHA     string // Blob SHA, required by the API to update an existing file.
	Content []byte
}

// Identity is a commit author or committer.
type Identity struct {
	Name  string
	Email string
}

// FileWrite describes one create-or-update of a file on a branch.
type FileWrite struct {
	Path      string
	Branch    string
	Message   string
	Content   []byte
	PriorSHA  mo.Option[string] // Present only when updating an existing file.
	Committer Identity
}

// NewPullRequest is the input for opening a pull request.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
}

// PullRequestRef identifies a pull request that was created or fetched.
type PullRequestRef struct {
	Number  int
	URL     string
	Title   string
	HeadSHA string
	Merged  bool
	State   string
}
