// Package tracking serves the public engagement endpoints: the open pixel,
// click redirects and one-click unsubscribe. These run on their own
// listener, separate from the management API, because they are hit by mail
// clients on the open internet.
package tracking

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/events"
	"github.com/ignite/courier/internal/pkg/logger"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Recorder is the slice of the store the tracker needs.
type Recorder interface {
	InsertOpen(ctx context.Context, campaignID, subscriberID uuid.UUID) (bool, error)
	IncrementCampaignCounter(ctx context.Context, campaignID uuid.UUID, counter string) error
	UnsubscribeByToken(ctx context.Context, token string) (*domain.Subscriber, error)
}

type Handler struct {
	rec      Recorder
	notifier events.Notifier
}

func NewHandler(rec Recorder, notifier events.Notifier) *Handler {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Handler{rec: rec, notifier: notifier}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/t/open/{campaignID}/{subscriberID}", h.HandleOpen)
	r.Get("/t/click/{campaignID}/{subscriberID}", h.HandleClick)
	r.Get("/t/unsubscribe", h.HandleUnsubscribe)
	r.Get("/health", h.HandleHealth)
	return r
}

// HandleOpen records a unique open and serves the pixel. The pixel goes
// out no matter what: malformed IDs, storage failures, repeat opens. A
// broken image in a newsletter is worse than a lost data point.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	defer h.servePixel(w)

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		return
	}
	subscriberID, err := uuid.Parse(chi.URLParam(r, "subscriberID"))
	if err != nil {
		return
	}

	// The opens counter only moves on the first open per subscriber; the
	// conflict-ignored insert decides which request that is, even under
	// concurrent duplicate hits.
	first, err := h.rec.InsertOpen(r.Context(), campaignID, subscriberID)
	if err != nil {
		logger.Error("record open", "error", err, "campaign_id", campaignID)
		return
	}
	if !first {
		return
	}
	if err := h.rec.IncrementCampaignCounter(r.Context(), campaignID, "opens"); err != nil {
		logger.Error("increment opens", "error", err, "campaign_id", campaignID)
		return
	}
	logger.Debug("open recorded", "campaign_id", campaignID, "ip", realIP(r))
}

// HandleClick counts every click, not just the first, then redirects. The
// destination comes from the url query param and is only followed when it
// parses as an absolute http(s) URL; anything else gets a plain 200 so the
// reader is never bounced to a garbage location.
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.rec.IncrementCampaignCounter(r.Context(), campaignID, "clicks"); err != nil {
		logger.Error("increment clicks", "error", err, "campaign_id", campaignID)
	}

	target := r.URL.Query().Get("url")
	if !isAbsoluteURL(target) {
		logger.Warn("click with non-absolute target", "campaign_id", campaignID)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleUnsubscribe flips the subscriber off the list by token and counts
// the event against the campaign when one is named. The subscriber update
// is idempotent; the campaign counter is not, so repeat clicks on the same
// link inflate the campaign tally. Unsubscribes are rare enough that a
// per-campaign dedup table has not been worth it.
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	sub, err := h.rec.UnsubscribeByToken(r.Context(), token)
	if err != nil {
		http.Error(w, "something went wrong", http.StatusInternalServerError)
		return
	}
	if sub == nil {
		http.Error(w, "unknown token", http.StatusNotFound)
		return
	}

	if campaignStr := r.URL.Query().Get("campaign"); campaignStr != "" {
		if campaignID, err := uuid.Parse(campaignStr); err == nil {
			if err := h.rec.IncrementCampaignCounter(r.Context(), campaignID, "unsubscribes"); err != nil {
				logger.Error("increment unsubscribes", "error", err, "campaign_id", campaignID)
			}
		}
	}

	logger.Info("unsubscribed", "subscriber_id", sub.ID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;text-align:center;padding:50px;">
		<h1>You have been unsubscribed</h1>
		<p>You will no longer receive emails from this list.</p>
	</body></html>`))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

// isAbsoluteURL accepts only syntactically absolute http(s) URLs with a
// host. Relative paths, bare words and exotic schemes all fail.
func isAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
