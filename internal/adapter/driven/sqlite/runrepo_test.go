package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

func makeReport(id string, started time.Time) model.RunReport {
	return model.RunReport{
		ID:          id,
		DeliveryID:  "delivery-" + id,
		PRNumber:    42,
		SourceOwner: "src",
		SourceRepo:  "admin",
		HeadSHA:     "abc123",
		StartedAt:   started,
		FinishedAt:  started.Add(3 * time.Second),
		Jobs: []model.SyncJob{
			{
				OrgName:           "acme",
				DestinationRepo:   "acme/admin",
				BranchName:        "sync/pr-42-acme-1",
				Status:            model.JobPROpened,
				PullRequestNumber: 7,
				PullRequestURL:    "https://github.com/acme/admin/pull/7",
				Files: []model.ChangedFile{
					{SourcePath: ".github/safe-settings/organizations/acme/settings.yml", Status: model.FileModified, SourceRef: "abc123"},
				},
				Committed:  []string{".github/acme/settings.yml"},
				StartedAt:  started,
				FinishedAt: started.Add(time.Second),
			},
			{
				OrgName:       "beta",
				Status:        model.JobFailed,
				FailureKind:   model.KindRemoteAuth,
				FailureReason: "token exchange rejected: status 401: Bad credentials",
				StartedAt:     started,
				FinishedAt:    started.Add(2 * time.Second),
			},
		},
		Skipped: []model.SkippedOrg{{OrgName: "ghost", Reason: "organization not registered"}},
	}
}

func TestRunRepo_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 123000000, time.UTC)

	require.NoError(t, repo.Save(ctx, makeReport("run-1", started)))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "delivery-run-1", got.DeliveryID)
	assert.Equal(t, 42, got.PRNumber)
	assert.Equal(t, "src/admin", got.SourceFullName())
	assert.True(t, started.Equal(got.StartedAt))

	require.Len(t, got.Jobs, 2)
	assert.Equal(t, "acme", got.Jobs[0].OrgName)
	assert.Equal(t, model.JobPROpened, got.Jobs[0].Status)
	assert.Equal(t, 7, got.Jobs[0].PullRequestNumber)
	assert.Equal(t, []string{".github/acme/settings.yml"}, got.Jobs[0].Committed)
	require.Len(t, got.Jobs[0].Files, 1)
	assert.Equal(t, model.FileModified, got.Jobs[0].Files[0].Status)
	assert.Equal(t, "abc123", got.Jobs[0].Files[0].SourceRef)

	assert.Equal(t, model.JobFailed, got.Jobs[1].Status)
	assert.Equal(t, model.KindRemoteAuth, got.Jobs[1].FailureKind)
	assert.Empty(t, got.Jobs[1].Committed)

	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "ghost", got.Skipped[0].OrgName)
	assert.Equal(t, 1, got.FailedJobs())
}

func TestRunRepo_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)

	got, err := repo.Get(context.Background(), "missing")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, driven.ErrRunNotFound)
}

func TestRunRepo_Save_ReplacesExisting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	report := makeReport("run-1", started)
	require.NoError(t, repo.Save(ctx, report))

	report.Jobs = report.Jobs[:1]
	report.Skipped = nil
	require.NoError(t, repo.Save(ctx, report))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Jobs, 1)
	assert.Empty(t, got.Skipped)
}

func TestRunRepo_ListRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, repo.Save(ctx, makeReport(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "run-4", got[0].ID)
	assert.Equal(t, "run-3", got[1].ID)
	assert.Equal(t, "run-2", got[2].ID)
	assert.Len(t, got[0].Jobs, 2)
}

func TestRunRepo_ListRecent_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)

	got, err := repo.ListRecent(context.Background(), 10)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseTime_Empty(t *testing.T) {
	got, err := parseTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestOpen_FileDatabase(t *testing.T) {
	path := t.TempDir() + "/nested/orgsync.db"

	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, path, db.Path())

	repo := NewRunRepo(db)
	require.NoError(t, repo.Save(context.Background(), makeReport("run-file", time.Now())))

	got, err := repo.Get(context.Background(), "run-file")
	require.NoError(t, err)
	assert.Len(t, got.Jobs, 2)
}
