package driven

import (
	"context"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// SourceRepository defines the driven port for reading the central
// safe-settings repository.
type SourceRepository interface {
	// ListPullRequestFiles returns every changed file of a pull request in
	// listing order. Pagination is handled by the adapter.
	ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]model.ChangedFile, error)

	// GetPullRequest fetches a single pull request.
	GetPullRequest(ctx context.Context, owner, repo string, number int) (model.PullRequestRef, error)

	// GetFileContent reads a file at ref. Returns an error wrapping
	// model.ErrNotFound when the path is absent or is a directory.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (model.FileContent, error)
}

// DestinationRepository defines the driven port for writing to an
// organization's administrative repository. Implementations are scoped to one
// installation token.
type DestinationRepository interface {
	// GetBranchHead returns the commit SHA at the head of branch.
	GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error)

	// CreateBranch creates branch pointing at sha. Returns an error wrapping
	// model.ErrBranchExists when the ref already exists.
	CreateBranch(ctx context.Context, owner, repo, branch, sha string) error

	// GetFileContent reads a file at ref. Returns an error wrapping
	// model.ErrNotFound when the path is absent.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (model.FileContent, error)

	// PutFile creates or updates a file on a branch and returns the commit SHA.
	PutFile(ctx context.Context, owner, repo string, w model.FileWrite) (string, error)

	// CreatePullRequest opens a pull request.
	CreatePullRequest(ctx context.Context, owner, repo string, pr model.NewPullRequest) (model.PullRequestRef, error)
}

// ClientFactory builds repository clients bound to a single access token.
// Each call returns a fresh client; nothing is shared between tokens.
type ClientFactory interface {
	Destination(token model.AccessToken) DestinationRepository
	Source(token model.AccessToken) SourceRepository
}
