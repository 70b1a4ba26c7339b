package httphandler

import (
	"errors"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/orgsync/internal/application"
	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// maxPayloadBytes matches the largest webhook payload GitHub delivers.
const maxPayloadBytes = 25 << 20

// Webhook validates and parses a GitHub delivery. A merged pull_request
// close is dispatched in the background and answered with 202; ping gets 200
// and everything else 204.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)

	payload, err := h.readPayload(r)
	if err != nil {
		h.logger.Warn("rejected webhook delivery", "delivery", gh.DeliveryID(r), "error", err)
		writeError(w, http.StatusUnauthorized, "invalid payload signature")
		return
	}

	eventType := gh.WebHookType(r)
	deliveryID := gh.DeliveryID(r)

	switch eventType {
	case "ping":
		writeJSON(w, http.StatusOK, WebhookResponse{DeliveryID: deliveryID, Status: "pong"})
		return
	case "pull_request":
	default:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	parsed, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pull_request payload")
		return
	}
	prEvent, ok := parsed.(*gh.PullRequestEvent)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pull_request payload")
		return
	}

	ev := toPullRequestEvent(deliveryID, prEvent)
	if !ev.IsMergedClose() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.dispatch(ev)

	writeJSON(w, http.StatusAccepted, WebhookResponse{DeliveryID: deliveryID, Status: "accepted"})
}

// readPayload checks the HMAC signature when a secret is configured. Without
// one any signature header is ignored.
func (h *Handler) readPayload(r *http.Request) ([]byte, error) {
	if len(h.webhookSecret) == 0 {
		return gh.ValidatePayloadFromBody(r.Header.Get("Content-Type"), r.Body, "", nil)
	}
	return gh.ValidatePayload(r, h.webhookSecret)
}

func (h *Handler) dispatch(ev model.PullRequestEvent) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		report, err := h.dispatcher.HandlePullRequestClosed(h.ctx, ev)
		if err != nil {
			if errors.Is(err, application.ErrEventIgnored) {
				return
			}
			h.logger.Error("sync run failed",
				"delivery", ev.DeliveryID,
				"pr_number", ev.Number,
				"error", err,
			)
			return
		}

		h.logger.Info("sync run finished",
			"delivery", ev.DeliveryID,
			"run_id", report.ID,
			"pr_number", ev.Number,
			"jobs", len(report.Jobs),
			"failed", report.FailedJobs(),
			"skipped", len(report.Skipped),
		)
	}()
}

func toPullRequestEvent(deliveryID string, e *gh.PullRequestEvent) model.PullRequestEvent {
	pr := e.GetPullRequest()
	return model.PullRequestEvent{
		DeliveryID:     deliveryID,
		Action:         e.GetAction(),
		Merged:         pr.GetMerged(),
		Number:         e.GetNumber(),
		Title:          pr.GetTitle(),
		SourceOwner:    e.GetRepo().GetOwner().GetLogin(),
		SourceRepo:     e.GetRepo().GetName(),
		HeadSHA:        pr.GetHead().GetSHA(),
		InstallationID: e.GetInstallation().GetID(),
	}
}
