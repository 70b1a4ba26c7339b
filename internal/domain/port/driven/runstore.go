package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// ErrRunNotFound indicates the requested run report does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunStore defines the driven port for run report persistence.
type RunStore interface {
	Save(ctx context.Context, report model.RunReport) error
	// Get returns ErrRunNotFound if no run has the given ID.
	Get(ctx context.Context, id string) (*model.RunReport, error)
	// ListRecent returns up to limit runs, newest first. Jobs are included.
	ListRecent(ctx context.Context, limit int) ([]model.RunReport, error)
}
