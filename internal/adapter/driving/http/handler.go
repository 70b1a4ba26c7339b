package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ericfisherdev/orgsync/internal/application"
	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// Dispatcher runs the sync for a merged pull request event.
type Dispatcher interface {
	HandlePullRequestClosed(ctx context.Context, ev model.PullRequestEvent) (model.RunReport, error)
}

// Handler is the HTTP driving adapter that serves webhooks and the REST API.
type Handler struct {
	dispatcher    Dispatcher
	runStore      driven.RunStore
	healthSvc     *application.HealthService
	webhookSecret []byte
	logger        *slog.Logger

	// Dispatches outlive their request. ctx is cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHandler creates a Handler with all required dependencies. An empty
// webhookSecret disables signature validation.
func NewHandler(
	dispatcher Dispatcher,
	runStore driven.RunStore,
	healthSvc *application.HealthService,
	webhookSecret string,
	logger *slog.Logger,
) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		dispatcher:    dispatcher,
		runStore:      runStore,
		healthSvc:     healthSvc,
		webhookSecret: []byte(webhookSecret),
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhooks/github", h.Webhook)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Shutdown waits for in-flight dispatches. When ctx expires first the
// remaining jobs are cancelled and recorded as such.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		return nil
	case <-ctx.Done():
		h.cancel()
		<-done
		return ctx.Err()
	}
}

// ListRuns returns the most recent run reports, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runStore == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.runStore.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single run report by ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runStore == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	id := r.PathValue("id")

	run, err := h.runStore.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, driven.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*run))
}

// Health reports registry size, store reachability and the last run. A
// degraded store still answers 200 because webhooks are accepted regardless.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: application.HealthOK,
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	if h.healthSvc != nil {
		report := h.healthSvc.Check(r.Context())
		resp.Status = report.Status
		resp.Organizations = report.Organizations
		resp.StoreError = report.StoreError
		if report.LastRun != nil {
			last := toRunSummaryResponse(*report.LastRun)
			resp.LastRun = &last
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
