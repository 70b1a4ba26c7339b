package resilient

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.SourceRepository      = (*Source)(nil)
	_ driven.DestinationRepository = (*Destination)(nil)
	_ driven.TokenIssuer           = (*TokenIssuer)(nil)
	_ driven.ClientFactory         = (*Factory)(nil)
)

// Source retries a SourceRepository.
type Source struct {
	inner  driven.SourceRepository
	policy Policy
	logger *slog.Logger
}

// NewSource wraps inner with policy.
func NewSource(inner driven.SourceRepository, policy Policy, logger *slog.Logger) *Source {
	return &Source{inner: inner, policy: policy.withDefaults(), logger: orDefault(logger)}
}

func (s *Source) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]model.ChangedFile, error) {
	return do(ctx, s.policy, s.logger, "list pull request files", func() ([]model.ChangedFile, error) {
		return s.inner.ListPullRequestFiles(ctx, owner, repo, number)
	})
}

func (s *Source) GetPullRequest(ctx context.Context, owner, repo string, number int) (model.PullRequestRef, error) {
	return do(ctx, s.policy, s.logger, "get pull request", func() (model.PullRequestRef, error) {
		return s.inner.GetPullRequest(ctx, owner, repo, number)
	})
}

func (s *Source) GetFileContent(ctx context.Context, owner, repo, path, ref string) (model.FileContent, error) {
	return do(ctx, s.policy, s.logger, "get source content", func() (model.FileContent, error) {
		return s.inner.GetFileContent(ctx, owner, repo, path, ref)
	})
}

// Destination retries a DestinationRepository. A retried CreateBranch that
// already succeeded server-side surfaces as model.ErrBranchExists, which the
// caller accepts.
type Destination struct {
	inner  driven.DestinationRepository
	policy Policy
	logger *slog.Logger
}

// NewDestination wraps inner with policy.
func NewDestination(inner driven.DestinationRepository, policy Policy, logger *slog.Logger) *Destination {
	return &Destination{inner: inner, policy: policy.withDefaults(), logger: orDefault(logger)}
}

func (d *Destination) GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	return do(ctx, d.policy, d.logger, "get branch head", func() (string, error) {
		return d.inner.GetBranchHead(ctx, owner, repo, branch)
	})
}

func (d *Destination) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	return doErr(ctx, d.policy, d.logger, "create branch", func() error {
		return d.inner.CreateBranch(ctx, owner, repo, branch, sha)
	})
}

func (d *Destination) GetFileContent(ctx context.Context, owner, repo, path, ref string) (model.FileContent, error) {
	return do(ctx, d.policy, d.logger, "get destination content", func() (model.FileContent, error) {
		return d.inner.GetFileContent(ctx, owner, repo, path, ref)
	})
}

func (d *Destination) PutFile(ctx context.Context, owner, repo string, w model.FileWrite) (string, error) {
	return do(ctx, d.policy, d.logger, "put file", func() (string, error) {
		return d.inner.PutFile(ctx, owner, repo, w)
	})
}

func (d *Destination) CreatePullRequest(ctx context.Context, owner, repo string, pr model.NewPullRequest) (model.PullRequestRef, error) {
	return do(ctx, d.policy, d.logger, "create pull request", func() (model.PullRequestRef, error) {
		return d.inner.CreatePullRequest(ctx, owner, repo, pr)
	})
}

// TokenIssuer retries the token exchange on transport failures only; a
// RemoteAuthError is final.
type TokenIssuer struct {
	inner  driven.TokenIssuer
	policy Policy
	logger *slog.Logger
}

// NewTokenIssuer wraps inner with policy.
func NewTokenIssuer(inner driven.TokenIssuer, policy Policy, logger *slog.Logger) *TokenIssuer {
	return &TokenIssuer{inner: inner, policy: policy.withDefaults(), logger: orDefault(logger)}
}

func (t *TokenIssuer) IssueInstallationToken(ctx context.Context, org model.OrganizationRecord) (model.AccessToken, error) {
	return do(ctx, t.policy, t.logger, "issue installation token", func() (model.AccessToken, error) {
		return t.inner.IssueInstallationToken(ctx, org)
	})
}

// Factory wraps every client handed out by inner.
type Factory struct {
	inner  driven.ClientFactory
	policy Policy
	logger *slog.Logger
}

// NewFactory wraps inner with policy.
func NewFactory(inner driven.ClientFactory, policy Policy, logger *slog.Logger) *Factory {
	return &Factory{inner: inner, policy: policy.withDefaults(), logger: orDefault(logger)}
}

func (f *Factory) Destination(token model.AccessToken) driven.DestinationRepository {
	return NewDestination(f.inner.Destination(token), f.policy, f.logger)
}

func (f *Factory) Source(token model.AccessToken) driven.SourceRepository {
	return NewSource(f.inner.Source(token), f.policy, f.logger)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
