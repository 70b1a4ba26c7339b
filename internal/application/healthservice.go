// Package application contains use-case orchestration services.
package application

import (
	"context"
	"time"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

// Health statuses.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthReport is the service status exposed to probes.
type HealthReport struct {
	Status        string
	Organizations int
	StoreError    string
	LastRun       *RunSummary
}

// RunSummary condenses a run report for status views.
type RunSummary struct {
	ID         string
	PRNumber   int
	Source     string
	Jobs       int
	Failed     int
	Skipped    int
	FinishedAt time.Time
}

// Summarize condenses a report.
func Summarize(r model.RunReport) RunSummary {
	return RunSummary{
		ID:         r.ID,
		PRNumber:   r.PRNumber,
		Source:     r.SourceFullName(),
		Jobs:       len(r.Jobs),
		Failed:     r.FailedJobs(),
		Skipped:    len(r.Skipped),
		FinishedAt: r.FinishedAt,
	}
}

// HealthService reports whether the registry is loaded and the run store is
// reachable. It depends only on port interfaces.
type HealthService struct {
	registry driven.OrgRegistry
	store    driven.RunStore
}

// NewHealthService creates a new HealthService. store may be nil.
func NewHealthService(registry driven.OrgRegistry, store driven.RunStore) *HealthService {
	return &HealthService{registry: registry, store: store}
}

// Check assembles the health view. A failing store degrades the status but
// webhooks are still accepted.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:        HealthOK,
		Organizations: len(s.registry.Names()),
	}

	if s.store == nil {
		return report
	}

	runs, err := s.store.ListRecent(ctx, 1)
	if err != nil {
		report.Status = HealthDegraded
		report.StoreError = err.Error()
		return report
	}
	if len(runs) > 0 {
		last := Summarize(runs[0])
		report.LastRun = &last
	}

	return report
}
