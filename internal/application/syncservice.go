package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/mo"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

// DefaultSourceBasePath is where organization folders live in the source repository.
const DefaultSourceBasePath = ".github/safe-settings/organizations"

// DefaultCommitter signs every commit made on a sync branch.
var DefaultCommitter = model.Identity{
	Name:  "Safe Settings Sync",
	Email: "safe-settings-sync@users.noreply.github.com",
}

// JobInput is what one organization's job needs from the originating event.
type JobInput struct {
	PRNumber      int
	PRTitle       string
	SourceOwner   string
	SourceRepo    string
	SourceHeadSHA string
	Files         []model.ChangedFile
	Source        driven.SourceRepository
}

// SyncService copies one organization's changed files into its admin
// repository on a fresh branch and opens a pull request for them.
type SyncService struct {
	issuer             driven.TokenIssuer
	clients            driven.ClientFactory
	sourceBasePath     string
	destPathOverride   string
	baseBranchOverride string
	committer          model.Identity
	now                func() time.Time
	logger             *slog.Logger
	sanitizer          *bluemonday.Policy
}

// SyncOption configures a SyncService.
type SyncOption func(*SyncService)

// WithSourceBasePath sets the folder holding organization directories in the source repository.
func WithSourceBasePath(p string) SyncOption {
	return func(s *SyncService) { s.sourceBasePath = p }
}

// WithDestinationPath replaces every organization's destination folder.
func WithDestinationPath(p string) SyncOption {
	return func(s *SyncService) { s.destPathOverride = p }
}

// WithBaseBranch replaces every organization's base branch.
func WithBaseBranch(b string) SyncOption {
	return func(s *SyncService) { s.baseBranchOverride = b }
}

// WithCommitter sets the commit identity.
func WithCommitter(id model.Identity) SyncOption {
	return func(s *SyncService) {
		if id.Name != "" && id.Email != "" {
			s.committer = id
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncService) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SyncOption {
	return func(s *SyncService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSyncService creates a SyncService.
func NewSyncService(issuer driven.TokenIssuer, clients driven.ClientFactory, opts ...SyncOption) *SyncService {
	s := &SyncService{
		issuer:         issuer,
		clients:        clients,
		sourceBasePath: DefaultSourceBasePath,
		committer:      DefaultCommitter,
		now:            time.Now,
		logger:         slog.Default(),
		sanitizer:      bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceBasePath returns the configured source base path.
func (s *SyncService) SourceBasePath() string {
	return s.sourceBasePath
}

// job tracks one run of Sync. The state machine is the single source of
// the job's status.
type job struct {
	model.SyncJob
	fsm    *model.JobStateMachine
	svc    *SyncService
	logger *slog.Logger
}

func (j *job) advance(event string) error {
	if err := j.fsm.Fire(event); err != nil {
		return err
	}
	j.Status = j.fsm.Current()
	j.logger.Debug("sync job transition", "status", j.Status)
	return nil
}

func (j *job) fail(err error) model.SyncJob {
	_ = j.fsm.Fire(model.EventFail)
	j.Status = model.JobFailed
	j.FailureKind = model.ErrorKind(err)
	j.FailureReason = err.Error()
	j.FinishedAt = j.svc.now()
	return j.SyncJob
}

func (j *job) finish() model.SyncJob {
	j.FinishedAt = j.svc.now()
	return j.SyncJob
}

// Sync runs the job for org. It never returns an error: every failure is
// recorded on the returned SyncJob with status failed.
func (s *SyncService) Sync(ctx context.Context, org model.OrganizationRecord, in JobInput) model.SyncJob {
	logger := s.logger.With("pr_number", in.PRNumber, "org", org.Name)

	j := &job{
		SyncJob: model.SyncJob{
			OrgName:         org.Name,
			DestinationRepo: org.DestinationFullName(),
			Files:           in.Files,
			Status:          model.JobPending,
			StartedAt:       s.now(),
		},
		svc:    s,
		logger: logger,
	}

	fsm, err := model.NewJobStateMachine(org.Name)
	if err != nil {
		j.Status = model.JobFailed
		j.FailureKind = model.KindInternal
		j.FailureReason = err.Error()
		j.FinishedAt = s.now()
		return j.SyncJob
	}
	j.fsm = fsm

	if err := ctx.Err(); err != nil {
		return j.fail(err)
	}
	if err := org.Validate(); err != nil {
		return j.fail(err)
	}

	token, err := s.issuer.IssueInstallationToken(ctx, org)
	if err != nil {
		return j.fail(fmt.Errorf("issue token for %s: %w", org.Name, err))
	}
	dest := s.clients.Destination(token)

	owner, repo := org.DestinationOwner(), org.AdminRepo
	base := s.baseBranch(org)

	headSHA, err := dest.GetBranchHead(ctx, owner, repo, base)
	if err != nil {
		return j.fail(fmt.Errorf("read base branch %s: %w", base, err))
	}

	j.BranchName = fmt.Sprintf("sync/pr-%d-%s-%d", in.PRNumber, org.Name, s.now().UnixMilli())
	if err := dest.CreateBranch(ctx, owner, repo, j.BranchName, headSHA); err != nil && !errors.Is(err, model.ErrBranchExists) {
		return j.fail(err)
	}
	if err := j.advance(model.EventBranchReady); err != nil {
		return j.fail(err)
	}

	if err := j.advance(model.EventSyncFiles); err != nil {
		return j.fail(err)
	}
	for _, f := range in.Files {
		if err := s.copyFile(ctx, j, dest, org, base, in, f); err != nil {
			return j.fail(err)
		}
	}
	if err := j.advance(model.EventFilesDone); err != nil {
		return j.fail(err)
	}

	if len(j.Committed) == 0 {
		if err := j.advance(model.EventNoChanges); err != nil {
			return j.fail(err)
		}
		logger.Info("no files committed, pull request not opened", "skipped", len(j.Skipped))
		return j.finish()
	}

	pr, err := dest.CreatePullRequest(ctx, owner, repo, model.NewPullRequest{
		Title: syncTitle(in),
		Body:  s.syncBody(org, in, j.SyncJob),
		Head:  j.BranchName,
		Base:  base,
	})
	if err != nil {
		return j.fail(err)
	}
	j.PullRequestNumber = pr.Number
	j.PullRequestURL = pr.URL

	if err := j.advance(model.EventOpenPR); err != nil {
		return j.fail(err)
	}
	return j.finish()
}

// copyFile reads one source file and writes it to the sync branch. Files
// absent at the source ref are recorded as skipped.
func (s *SyncService) copyFile(
	ctx context.Context,
	j *job,
	dest driven.DestinationRepository,
	org model.OrganizationRecord,
	base string,
	in JobInput,
	f model.ChangedFile,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ref := f.SourceRef
	if ref == "" {
		ref = in.SourceHeadSHA
	}

	src, err := in.Source.GetFileContent(ctx, in.SourceOwner, in.SourceRepo, f.SourcePath, ref)
	if errors.Is(err, model.ErrNotFound) {
		j.logger.Debug("source file absent, skipping", "path", f.SourcePath, "file_status", f.Status)
		j.Skipped = append(j.Skipped, f.SourcePath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read source %s: %w", f.SourcePath, err)
	}

	destPath := destinationPath(s.destinationFolder(org), org.Name, remainderPath(f.SourcePath, s.sourceBasePath, org.Name))

	prior := mo.None[string]()
	existing, err := dest.GetFileContent(ctx, org.DestinationOwner(), org.AdminRepo, destPath, base)
	switch {
	case err == nil:
		prior = mo.Some(existing.SHA)
	case errors.Is(err, model.ErrNotFound):
	default:
		return fmt.Errorf("read destination %s: %w", destPath, err)
	}

	if _, err := dest.PutFile(ctx, org.DestinationOwner(), org.AdminRepo, model.FileWrite{
		Path:      destPath,
		Branch:    j.BranchName,
		Message:   syncTitle(in),
		Content:   src.Content,
		PriorSHA:  prior,
		Committer: s.committer,
	}); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}

	j.Committed = append(j.Committed, destPath)
	return nil
}

func (s *SyncService) baseBranch(org model.OrganizationRecord) string {
	if s.baseBranchOverride != "" {
		return s.baseBranchOverride
	}
	return org.Branch()
}

func (s *SyncService) destinationFolder(org model.OrganizationRecord) string {
	if s.destPathOverride != "" {
		return s.destPathOverride
	}
	return org.Folder()
}

func syncTitle(in JobInput) string {
	return fmt.Sprintf("Sync safe-settings from %s/%s PR #%d", in.SourceOwner, in.SourceRepo, in.PRNumber)
}

// syncBody names the organization and the originating pull request. The
// source title is user input and is stripped of markup.
func (s *SyncService) syncBody(org model.OrganizationRecord, in JobInput, j model.SyncJob) string {
	body := fmt.Sprintf("Automated sync of safe-settings for %s from %s/%s PR #%d.\n",
		org.Name, in.SourceOwner, in.SourceRepo, in.PRNumber)

	if title := s.sanitizer.Sanitize(in.PRTitle); title != "" {
		body += fmt.Sprintf("\nSource pull request: %s\n", title)
	}

	body += fmt.Sprintf("\nFiles updated: %d", len(j.Committed))
	if len(j.Skipped) > 0 {
		body += fmt.Sprintf(", skipped (absent at %s): %d", shortSHA(in.SourceHeadSHA), len(j.Skipped))
	}
	return body + "\n"
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
