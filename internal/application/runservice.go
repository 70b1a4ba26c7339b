package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

// ErrEventIgnored is returned for events that do not trigger a sync.
var ErrEventIgnored = errors.New("event ignored")

// RunConfig holds the run-level settings of a RunService.
type RunConfig struct {
	// MaxParallelOrgs bounds concurrent organization jobs. Values < 1 mean 1.
	MaxParallelOrgs int
	// JobTimeout bounds each organization job. Zero disables the limit.
	JobTimeout time.Duration
	// SourceToken, when set, authenticates source reads directly.
	SourceToken string
	// SourceApp authenticates source reads through an installation token
	// when SourceToken is empty. Its InstallationID is the fallback when the
	// event carries none.
	SourceApp model.OrganizationRecord
}

// RunService turns one merged pull request into per-organization sync jobs.
type RunService struct {
	registry driven.OrgRegistry
	syncer   *SyncService
	issuer   driven.TokenIssuer
	clients  driven.ClientFactory
	store    driven.RunStore
	cfg      RunConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunService creates a RunService. store may be nil, in which case reports
// are returned but not persisted.
func NewRunService(
	registry driven.OrgRegistry,
	syncer *SyncService,
	issuer driven.TokenIssuer,
	clients driven.ClientFactory,
	store driven.RunStore,
	cfg RunConfig,
	logger *slog.Logger,
) *RunService {
	if cfg.MaxParallelOrgs < 1 {
		cfg.MaxParallelOrgs = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		registry: registry,
		syncer:   syncer,
		issuer:   issuer,
		clients:  clients,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// HandlePullRequestClosed syncs a merged pull request. Only an ignored event,
// a source authentication failure or a failed file listing is returned as an
// error; per-organization failures are recorded in the report.
func (s *RunService) HandlePullRequestClosed(ctx context.Context, ev model.PullRequestEvent) (model.RunReport, error) {
	if !ev.IsMergedClose() {
		return model.RunReport{}, fmt.Errorf("pull request %s/%s#%d action=%s merged=%t: %w",
			ev.SourceOwner, ev.SourceRepo, ev.Number, ev.Action, ev.Merged, ErrEventIgnored)
	}

	src, err := s.SourceClient(ctx, ev.InstallationID)
	if err != nil {
		return model.RunReport{}, err
	}

	return s.run(ctx, ev, src)
}

// Replay re-runs the sync for an already merged pull request. Each replay
// works on a new branch, so repeating it is safe.
func (s *RunService) Replay(ctx context.Context, owner, repo string, number int) (model.RunReport, error) {
	src, err := s.SourceClient(ctx, 0)
	if err != nil {
		return model.RunReport{}, err
	}

	pr, err := src.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return model.RunReport{}, fmt.Errorf("fetch pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	if !pr.Merged {
		return model.RunReport{}, fmt.Errorf("pull request %s/%s#%d is not merged: %w", owner, repo, number, ErrEventIgnored)
	}

	return s.run(ctx, model.PullRequestEvent{
		DeliveryID:  "replay",
		Action:      "closed",
		Merged:      true,
		Number:      number,
		Title:       pr.Title,
		SourceOwner: owner,
		SourceRepo:  repo,
		HeadSHA:     pr.HeadSHA,
	}, src)
}

// SourceClient returns a client for the source repository, authenticated
// with the static token or a freshly issued installation token.
func (s *RunService) SourceClient(ctx context.Context, installationID int64) (driven.SourceRepository, error) {
	if s.cfg.SourceToken != "" {
		return s.clients.Source(model.AccessToken{Value: s.cfg.SourceToken}), nil
	}

	app := s.cfg.SourceApp
	if app.ClientID == "" {
		return nil, fmt.Errorf("no source token or source app configured: %w", model.ErrInvalidConfig)
	}
	if installationID > 0 {
		app.InstallationID = installationID
	}
	if app.Name == "" {
		app.Name = "source"
	}

	token, err := s.issuer.IssueInstallationToken(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("authenticate source: %w", err)
	}
	return s.clients.Source(token), nil
}

type target struct {
	org   model.OrganizationRecord
	files []model.ChangedFile
}

func (s *RunService) run(ctx context.Context, ev model.PullRequestEvent, src driven.SourceRepository) (model.RunReport, error) {
	logger := s.logger.With("pr_number", ev.Number, "repo", ev.SourceOwner+"/"+ev.SourceRepo)

	report := model.RunReport{
		ID:          uuid.NewString(),
		DeliveryID:  ev.DeliveryID,
		PRNumber:    ev.Number,
		SourceOwner: ev.SourceOwner,
		SourceRepo:  ev.SourceRepo,
		HeadSHA:     ev.HeadSHA,
		StartedAt:   s.now(),
	}

	files, err := src.ListPullRequestFiles(ctx, ev.SourceOwner, ev.SourceRepo, ev.Number)
	if err != nil {
		return model.RunReport{}, fmt.Errorf("list files of %s/%s#%d: %w", ev.SourceOwner, ev.SourceRepo, ev.Number, err)
	}
	for i := range files {
		files[i].SourceRef = ev.HeadSHA
	}

	cs := Extract(files, s.syncer.SourceBasePath())

	var targets []target
	for _, name := range cs.Orgs() {
		org, err := s.registry.Lookup(name)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, driven.ErrOrgNotFound) {
				reason = driven.ErrOrgNotFound.Error()
			}
			logger.Warn("organization skipped", "org", name, "reason", reason)
			report.Skipped = append(report.Skipped, model.SkippedOrg{OrgName: name, Reason: reason})
			continue
		}
		targets = append(targets, target{org: org, files: cs.Files(name)})
	}

	logger.Info("sync run started",
		"run_id", report.ID,
		"files", len(files),
		"orgs", len(targets),
		"skipped", len(report.Skipped),
	)

	report.Jobs = make([]model.SyncJob, len(targets))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxParallelOrgs)
	for i, t := range targets {
		g.Go(func() error {
			jobCtx, cancel := s.jobContext(ctx)
			defer cancel()

			report.Jobs[i] = s.syncer.Sync(jobCtx, t.org, JobInput{
				PRNumber:      ev.Number,
				PRTitle:       ev.Title,
				SourceOwner:   ev.SourceOwner,
				SourceRepo:    ev.SourceRepo,
				SourceHeadSHA: ev.HeadSHA,
				Files:         t.files,
				Source:        src,
			})
			return nil
		})
	}
	_ = g.Wait() // Jobs record their own failures.

	report.FinishedAt = s.now()

	for _, j := range report.Jobs {
		logJob(logger, j)
	}

	if s.store != nil {
		if err := s.store.Save(context.WithoutCancel(ctx), report); err != nil {
			logger.Error("failed to persist run report", "run_id", report.ID, "error", err)
		}
	}

	logger.Info("sync run finished",
		"run_id", report.ID,
		"jobs", len(report.Jobs),
		"failed", report.FailedJobs(),
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)

	return report, nil
}

func (s *RunService) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.JobTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.JobTimeout)
	}
	return context.WithCancel(ctx)
}

func logJob(logger *slog.Logger, j model.SyncJob) {
	attrs := []any{
		"org", j.OrgName,
		"status", j.Status,
		"branch", j.BranchName,
		"committed", len(j.Committed),
		"skipped_files", len(j.Skipped),
		"duration", j.Duration().Round(time.Millisecond),
	}
	if j.Status == model.JobFailed {
		logger.Warn("sync job failed", append(attrs, "failure_kind", j.FailureKind, "error", j.FailureReason)...)
		return
	}
	logger.Info("sync job finished", append(attrs, "pr_url", j.PullRequestURL)...)
}
