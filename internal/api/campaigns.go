package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/mailer"
	"github.com/ignite/courier/internal/pkg/httputil"
	"github.com/ignite/courier/internal/render"
	"github.com/ignite/courier/internal/service/campaign"
)

// campaignError maps service sentinels onto HTTP statuses. Lifecycle guard
// violations are conflicts; bad send preconditions are unprocessable.
func campaignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, campaign.ErrListNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, campaign.ErrNotEditable),
		errors.Is(err, campaign.ErrNotDeletable),
		errors.Is(err, campaign.ErrNotSendable),
		errors.Is(err, campaign.ErrNotScheduled):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, campaign.ErrNoRecipients),
		errors.Is(err, campaign.ErrPastSchedule):
		httputil.UnprocessableEntity(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// GetCampaigns lists campaigns, optionally filtered by list_id.
func (h *Handlers) GetCampaigns(w http.ResponseWriter, r *http.Request) {
	var listID *uuid.UUID
	if raw := r.URL.Query().Get("list_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(w, "invalid list_id")
			return
		}
		listID = &id
	}
	limit := queryInt(r, "limit", 50)

	campaigns, err := h.campaigns.List(r.Context(), listID, limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"campaigns": campaigns})
}

// CreateCampaign creates a draft.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}

	c, err := h.campaigns.Create(r.Context(), input)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.Created(w, c)
}

// GetCampaign returns one campaign.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

// UpdateCampaign edits campaign content while the lifecycle still allows it.
func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	var input campaign.UpdateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := h.campaigns.Update(r.Context(), id, input)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

// DeleteCampaign removes a campaign unless it is mid-send.
func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	if err := h.campaigns.Delete(r.Context(), id); err != nil {
		campaignError(w, err)
		return
	}
	httputil.NoContent(w)
}

// PreviewCampaign renders the campaign body without sending anything.
// Personalization tags are resolved against a sample subscriber.
func (h *Handlers) PreviewCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	list, err := h.store.GetList(r.Context(), c.ListID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	sample := &domain.Subscriber{
		Email:     "preview@example.com",
		FirstName: "Sam",
		LastName:  "Preview",
	}
	data := render.SubscriberData(sample, list)

	html, err := h.persona.Render(render.HTML(c), data)
	if err != nil {
		httputil.UnprocessableEntity(w, "template error: "+err.Error())
		return
	}
	plain, err := h.persona.Render(render.Plain(c), data)
	if err != nil {
		httputil.UnprocessableEntity(w, "template error: "+err.Error())
		return
	}
	subject, err := h.persona.Render(c.EffectiveSubject(), data)
	if err != nil {
		httputil.UnprocessableEntity(w, "template error: "+err.Error())
		return
	}

	httputil.OK(w, map[string]string{
		"subject": subject,
		"html":    html,
		"plain":   plain,
	})
}

// SendTestCampaign dispatches a single rendered copy to the given address.
// Test sends bypass the lifecycle and never touch counters.
func (h *Handlers) SendTestCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	var input struct {
		Email string `json:"email"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	if !domain.ValidateEmail(input.Email) {
		httputil.BadRequest(w, "invalid email address")
		return
	}

	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	list, err := h.store.GetList(r.Context(), c.ListID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	sample := &domain.Subscriber{Email: input.Email, FirstName: "Test"}
	data := render.SubscriberData(sample, list)
	subject, err := h.persona.Render(c.EffectiveSubject(), data)
	if err != nil {
		httputil.UnprocessableEntity(w, "template error: "+err.Error())
		return
	}
	html, err := h.persona.Render(render.HTML(c), data)
	if err != nil {
		httputil.UnprocessableEntity(w, "template error: "+err.Error())
		return
	}
	plain, err := h.persona.Render(render.Plain(c), data)
	if err != nil {
		httputil.UnprocessableEntity(w, "template error: "+err.Error())
		return
	}

	msg := &mailer.Message{
		FromName:  list.FromName,
		FromEmail: list.FromEmail,
		To:        input.Email,
		Subject:   "[TEST] " + subject,
		HTMLBody:  html,
		PlainBody: plain,
	}
	if err := h.mail.Send(r.Context(), msg); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "sent"})
}

// SeedCampaignFromFeed fetches an RSS/Atom feed and replaces the campaign's
// blocks with entries built from the newest items.
func (h *Handlers) SeedCampaignFromFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	var input struct {
		FeedURL  string `json:"feed_url"`
		MaxItems int    `json:"max_items"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.FeedURL == "" {
		httputil.BadRequest(w, "feed_url is required")
		return
	}

	blocks, feedTitle, err := h.feeds.BlocksFromFeed(r.Context(), input.FeedURL, input.MaxItems)
	if err != nil {
		httputil.UnprocessableEntity(w, "feed fetch failed: "+err.Error())
		return
	}

	c, err := h.campaigns.Update(r.Context(), id, campaign.UpdateInput{Blocks: &blocks})
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"campaign": c, "feed_title": feedTitle})
}

// ScheduleCampaign books a future send.
func (h *Handlers) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	var input struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.ScheduledAt.IsZero() {
		httputil.BadRequest(w, "scheduled_at is required")
		return
	}

	c, err := h.campaigns.Schedule(r.Context(), id, input.ScheduledAt)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

// CancelCampaign returns a scheduled campaign to draft.
func (h *Handlers) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	c, err := h.campaigns.Cancel(r.Context(), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

// SendCampaign claims the campaign and kicks off delivery in the background.
// The response returns as soon as the claim succeeds; progress is observable
// through the campaign status and counters.
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	c, err := h.campaigns.Send(r.Context(), id)
	if err != nil {
		campaignError(w, err)
		return
	}

	// Delivery outlives the request, so it runs on a fresh context.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		if err := h.deliverer.Deliver(ctx, id); err != nil {
			h.log.Error("campaign delivery failed", "campaign_id", id.String(), "error", err)
		}
	}()

	httputil.JSON(w, http.StatusAccepted, c)
}

// GetCampaignStats returns the raw counters plus derived rates.
func (h *Handlers) GetCampaignStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "campaignID"))
	if !ok {
		return
	}
	c, stats, err := h.campaigns.Stats(r.Context(), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"campaign": c,
		"stats":    stats,
	})
}
