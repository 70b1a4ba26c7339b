package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/orgsync/internal/application"
	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

type listStore struct {
	fakeStore
	runs []model.RunReport
	err  error
}

func (s *listStore) ListRecent(context.Context, int) ([]model.RunReport, error) {
	return s.runs, s.err
}

func TestHealthService_Check(t *testing.T) {
	finished := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	store := &listStore{runs: []model.RunReport{{
		ID:          "run-1",
		PRNumber:    42,
		SourceOwner: "src",
		SourceRepo:  "admin",
		Jobs:        []model.SyncJob{{Status: model.JobPROpened}, {Status: model.JobFailed}},
		Skipped:     []model.SkippedOrg{{OrgName: "ghost"}},
		FinishedAt:  finished,
	}}}

	report := application.NewHealthService(newFakeRegistry(acmeOrg(), betaOrg()), store).Check(context.Background())

	assert.Equal(t, application.HealthOK, report.Status)
	assert.Equal(t, 2, report.Organizations)
	require.NotNil(t, report.LastRun)
	assert.Equal(t, "src/admin", report.LastRun.Source)
	assert.Equal(t, 2, report.LastRun.Jobs)
	assert.Equal(t, 1, report.LastRun.Failed)
	assert.Equal(t, 1, report.LastRun.Skipped)
}

func TestHealthService_StoreFailureDegrades(t *testing.T) {
	store := &listStore{err: errors.New("database is locked")}

	report := application.NewHealthService(newFakeRegistry(), store).Check(context.Background())

	assert.Equal(t, application.HealthDegraded, report.Status)
	assert.Equal(t, "database is locked", report.StoreError)
	assert.Nil(t, report.LastRun)
}

func TestHealthService_NoStore(t *testing.T) {
	report := application.NewHealthService(newFakeRegistry(acmeOrg()), nil).Check(context.Background())

	assert.Equal(t, application.HealthOK, report.Status)
	assert.Equal(t, 1, report.Organizations)
}
