// Package wiring assembles adapters and application services from config.
package wiring

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	githubadapter "github.com/ericfisherdev/orgsync/internal/adapter/driven/github"
	"github.com/ericfisherdev/orgsync/internal/adapter/driven/orgconfig"
	"github.com/ericfisherdev/orgsync/internal/adapter/driven/resilient"
	sqliteadapter "github.com/ericfisherdev/orgsync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/orgsync/internal/application"
	"github.com/ericfisherdev/orgsync/internal/config"
	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// tokenExchangeTimeout bounds one installation token request.
const tokenExchangeTimeout = 30 * time.Second

// Services exposes the application services wired against real adapters.
type Services struct {
	Registry *orgconfig.Registry
	DB       *sqliteadapter.DB
	Runs     *sqliteadapter.RunRepo
	Sync     *application.SyncService
	Run      *application.RunService
	Verify   *application.VerifyService
	Health   *application.HealthService
}

// Build loads the organization registry, opens the run store and creates
// services in dependency order. Call Close when done.
func Build(cfg *config.Config, logger *slog.Logger) (*Services, error) {
	registry, err := orgconfig.Load(cfg.OrgConfigPath)
	if err != nil {
		return nil, err
	}

	policy := resilient.Policy{Attempts: cfg.RetryAttempts}

	factory, err := githubadapter.NewFactory(cfg.GitHubAPIURL)
	if err != nil {
		return nil, err
	}
	clients := resilient.NewFactory(factory, policy, logger)

	tokenIssuer, err := githubadapter.NewTokenIssuer(&http.Client{Timeout: tokenExchangeTimeout}, cfg.GitHubAPIURL, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}
	issuer := resilient.NewTokenIssuer(tokenIssuer, policy, logger)

	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	runs := sqliteadapter.NewRunRepo(db)

	syncSvc := application.NewSyncService(issuer, clients,
		application.WithSourceBasePath(cfg.SourceBasePath),
		application.WithDestinationPath(cfg.DestPathOverride),
		application.WithBaseBranch(cfg.BaseBranchOverride),
		application.WithCommitter(model.Identity{Name: cfg.CommitterName, Email: cfg.CommitterEmail}),
		application.WithLogger(logger),
	)

	runSvc := application.NewRunService(registry, syncSvc, issuer, clients, runs, application.RunConfig{
		MaxParallelOrgs: cfg.MaxParallelOrgs,
		JobTimeout:      cfg.JobTimeout,
		SourceToken:     cfg.SourceToken,
		SourceApp: model.OrganizationRecord{
			Name:           "source",
			ClientID:       cfg.SourceClientID,
			PrivateKeyPath: cfg.SourcePrivateKeyPath,
			InstallationID: cfg.SourceInstallationID,
		},
	}, logger)

	return &Services{
		Registry: registry,
		DB:       db,
		Runs:     runs,
		Sync:     syncSvc,
		Run:      runSvc,
		Verify:   application.NewVerifyService(registry, issuer),
		Health:   application.NewHealthService(registry, runs),
	}, nil
}

// Close releases the run store.
func (s *Services) Close() error {
	if s.DB == nil {
		return nil
	}
	if err := s.DB.Close(); err != nil {
		return errors.Join(fmt.Errorf("closing run store %s", s.DB.Path()), err)
	}
	return nil
}
