package github

import (
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// createRefRequest is the body of POST /repos/{owner}/{repo}/git/refs.
type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// GetBranchHead returns the commit SHA the branch points at.
func (c *Client) GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, resp, err := c.gh.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", classifyError(fmt.Sprintf("get ref %s/%s heads/%s", owner, repo, branch), resp, err)
	}

	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", &model.RemoteOperationError{
			Op:         fmt.Sprintf("get ref %s/%s heads/%s", owner, repo, branch),
			StatusCode: resp.StatusCode,
			Message:    "ref has no object sha",
		}
	}
	return sha, nil
}

// CreateBranch creates refs/heads/<branch> at sha. An existing ref yields an
// error wrapping model.ErrBranchExists.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	u := fmt.Sprintf("repos/%v/%v/git/refs", owner, repo)
	req, err := c.gh.NewRequest(http.MethodPost, u, &createRefRequest{
		Ref: "refs/heads/" + branch,
		SHA: sha,
	})
	if err != nil {
		return fmt.Errorf("building create ref request: %w", err)
	}

	ref := new(gh.Reference)
	resp, err := c.gh.Do(ctx, req, ref)
	if err != nil {
		if isRefExists(err) {
			return fmt.Errorf("create branch %s in %s/%s: %w", branch, owner, repo, model.ErrBranchExists)
		}
		return classifyError(fmt.Sprintf("create branch %s in %s/%s", branch, owner, repo), resp, err)
	}

	return nil
}

// PutFile creates or updates a file on a branch and returns the new commit SHA.
// The prior blob SHA is sent only when the write is an update.
func (c *Client) PutFile(ctx context.Context, owner, repo string, w model.FileWrite) (string, error) {
	identity := &gh.CommitAuthor{
		Name:  gh.Ptr(w.Committer.Name),
		Email: gh.Ptr(w.Committer.Email),
	}

	opts := &gh.RepositoryContentFileOptions{
		Message:   gh.Ptr(w.Message),
		Content:   w.Content,
		Branch:    gh.Ptr(w.Branch),
		Author:    identity,
		Committer: identity,
	}

	var (
		res  *gh.RepositoryContentResponse
		resp *gh.Response
		err  error
	)
	if sha, ok := w.PriorSHA.Get(); ok {
		opts.SHA = gh.Ptr(sha)
		res, resp, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, w.Path, opts)
	} else {
		res, resp, err = c.gh.Repositories.CreateFile(ctx, owner, repo, w.Path, opts)
	}
	if err != nil {
		return "", classifyError(fmt.Sprintf("put file %s/%s:%s@%s", owner, repo, w.Path, w.Branch), resp, err)
	}

	return res.Commit.GetSHA(), nil
}

// CreatePullRequest opens a pull request from pr.Head into pr.Base.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr model.NewPullRequest) (model.PullRequestRef, error) {
	created, resp, err := c.gh.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.Ptr(pr.Title),
		Head:  gh.Ptr(pr.Head),
		Base:  gh.Ptr(pr.Base),
		Body:  gh.Ptr(pr.Body),
	})
	if err != nil {
		return model.PullRequestRef{}, classifyError(fmt.Sprintf("create pull request %s/%s %s->%s", owner, repo, pr.Head, pr.Base), resp, err)
	}

	return model.PullRequestRef{
		Number:  created.GetNumber(),
		URL:     created.GetHTMLURL(),
		Title:   created.GetTitle(),
		HeadSHA: created.GetHead().GetSHA(),
		State:   created.GetState(),
	}, nil
}
