package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/orgsync/internal/application"
	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`
}

// RunResponse is the JSON representation of a run report.
type RunResponse struct {
	ID         string               `json:"id"`
	DeliveryID string               `json:"delivery_id"`
	PRNumber   int                  `json:"pr_number"`
	Source     string               `json:"source"`
	HeadSHA    string               `json:"head_sha"`
	Jobs       []JobResponse        `json:"jobs"`
	Skipped    []SkippedOrgResponse `json:"skipped"`
	StartedAt  string               `json:"started_at"`
	FinishedAt string               `json:"finished_at"`
}

// JobResponse is the JSON representation of one organization's sync job.
type JobResponse struct {
	Org             string   `json:"org"`
	DestinationRepo string   `json:"destination_repo"`
	Branch          string   `json:"branch"`
	Status          string   `json:"status"`
	FailureKind     string   `json:"failure_kind,omitempty"`
	FailureReason   string   `json:"failure_reason,omitempty"`
	PRNumber        int      `json:"pr_number,omitempty"`
	PRURL           string   `json:"pr_url,omitempty"`
	Files           []string `json:"files"`
	Committed       []string `json:"committed"`
	SkippedFiles    []string `json:"skipped_files"`
	DurationMS      int64    `json:"duration_ms"`
}

// SkippedOrgResponse is an organization that had changes but no registration.
type SkippedOrgResponse struct {
	Org    string `json:"org"`
	Reason string `json:"reason"`
}

// RunSummaryResponse is the condensed run shown by the health endpoint.
type RunSummaryResponse struct {
	ID         string `json:"id"`
	PRNumber   int    `json:"pr_number"`
	Source     string `json:"source"`
	Jobs       int    `json:"jobs"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	FinishedAt string `json:"finished_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status        string              `json:"status"`
	Time          string              `json:"time"`
	Organizations int                 `json:"organizations"`
	StoreError    string              `json:"store_error,omitempty"`
	LastRun       *RunSummaryResponse `json:"last_run,omitempty"`
}

// toRunResponse converts a domain RunReport to its JSON response representation.
func toRunResponse(r model.RunReport) RunResponse {
	jobs := make([]JobResponse, 0, len(r.Jobs))
	for _, j := range r.Jobs {
		jobs = append(jobs, toJobResponse(j))
	}

	skipped := make([]SkippedOrgResponse, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		skipped = append(skipped, SkippedOrgResponse{Org: s.OrgName, Reason: s.Reason})
	}

	return RunResponse{
		ID:         r.ID,
		DeliveryID: r.DeliveryID,
		PRNumber:   r.PRNumber,
		Source:     r.SourceFullName(),
		HeadSHA:    r.HeadSHA,
		Jobs:       jobs,
		Skipped:    skipped,
		StartedAt:  formatTime(r.StartedAt),
		FinishedAt: formatTime(r.FinishedAt),
	}
}

func toJobResponse(j model.SyncJob) JobResponse {
	files := make([]string, 0, len(j.Files))
	for _, f := range j.Files {
		files = append(files, f.SourcePath)
	}

	return JobResponse{
		Org:             j.OrgName,
		DestinationRepo: j.DestinationRepo,
		Branch:          j.BranchName,
		Status:          string(j.Status),
		FailureKind:     j.FailureKind,
		FailureReason:   j.FailureReason,
		PRNumber:        j.PullRequestNumber,
		PRURL:           j.PullRequestURL,
		Files:           files,
		Committed:       nonNil(j.Committed),
		SkippedFiles:    nonNil(j.Skipped),
		DurationMS:      j.Duration().Milliseconds(),
	}
}

func toRunSummaryResponse(s application.RunSummary) RunSummaryResponse {
	return RunSummaryResponse{
		ID:         s.ID,
		PRNumber:   s.PRNumber,
		Source:     s.Source,
		Jobs:       s.Jobs,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		FinishedAt: formatTime(s.FinishedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
