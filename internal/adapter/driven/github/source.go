package github

import (
	"context"
	"fmt"
	"io"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// ListPullRequestFiles retrieves every file changed by a pull request.
// It handles pagination automatically and keeps the API's listing order.
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]model.ChangedFile, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var files []model.ChangedFile

	for {
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, classifyError(fmt.Sprintf("list files %s/%s#%d (page %d)", owner, repo, number, opts.Page), resp, err)
		}

		logRateLimit(resp, owner+"/"+repo+"/files", opts.Page, len(page))

		for _, f := range page {
			files = append(files, mapCommitFile(f))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if files == nil {
		files = []model.ChangedFile{}
	}

	return files, nil
}

// GetPullRequest fetches a pull request's head, title and merge state.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (model.PullRequestRef, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return model.PullRequestRef{}, classifyError(fmt.Sprintf("get pull request %s/%s#%d", owner, repo, number), resp, err)
	}

	return model.PullRequestRef{
		Number:  pr.GetNumber(),
		URL:     pr.GetHTMLURL(),
		Title:   pr.GetTitle(),
		HeadSHA: pr.GetHead().GetSHA(),
		Merged:  pr.GetMerged(),
		State:   pr.GetState(),
	}, nil
}

// GetFileContent reads a file at ref. A missing path or a directory yields
// an error wrapping model.ErrNotFound.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (model.FileContent, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	file, dir, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		if isNotFound(resp, err) {
			return model.FileContent{}, notFound("get contents", path)
		}
		return model.FileContent{}, classifyError(fmt.Sprintf("get contents %s/%s:%s@%s", owner, repo, path, ref), resp, err)
	}

	if file == nil {
		return model.FileContent{}, fmt.Errorf("get contents %s: directory with %d entries: %w", path, len(dir), model.ErrNotFound)
	}

	content, err := c.decodeContent(ctx, owner, repo, path, ref, file)
	if err != nil {
		return model.FileContent{}, err
	}

	return model.FileContent{
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: content,
	}, nil
}

// decodeContent returns the raw bytes of file. Files over 1 MB come back with
// encoding "none" and are fetched through their download URL instead.
func (c *Client) decodeContent(ctx context.Context, owner, repo, path, ref string, file *gh.RepositoryContent) ([]byte, error) {
	if file.GetEncoding() != "none" {
		text, err := file.GetContent()
		if err != nil {
			return nil, fmt.Errorf("decode contents %s: %w", path, err)
		}
		return []byte(text), nil
	}

	rc, resp, err := c.gh.Repositories.DownloadContents(ctx, owner, repo, path, &gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, classifyError(fmt.Sprintf("download contents %s/%s:%s@%s", owner, repo, path, ref), resp, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &model.NetworkError{Op: "download contents " + path, Err: err}
	}
	return data, nil
}

// mapCommitFile converts a go-github CommitFile to a domain model ChangedFile.
// SourceRef is assigned by the caller, which knows the head commit.
func mapCommitFile(f *gh.CommitFile) model.ChangedFile {
	return model.ChangedFile{
		SourcePath:   f.GetFilename(),
		PreviousPath: f.GetPreviousFilename(),
		Status:       model.FileStatus(f.GetStatus()),
	}
}
