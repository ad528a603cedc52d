package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/events"
)

// Service implements campaign business logic. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo     Repository
	notifier events.Notifier
}

// NewService creates a campaign service backed by the given repository.
func NewService(repo Repository, notifier events.Notifier) *Service {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Service{repo: repo, notifier: notifier}
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	ListID       uuid.UUID     `json:"list_id"`
	Name         string        `json:"name"`
	Subject      string        `json:"subject"`
	Blocks       domain.Blocks `json:"blocks"`
	HTMLContent  string        `json:"html_content"`
	PlainContent string        `json:"plain_content"`
}

// UpdateInput holds the editable fields. Nil pointers leave the field
// untouched; Blocks replaces wholesale when non-nil.
type UpdateInput struct {
	Name         *string        `json:"name"`
	Subject      *string        `json:"subject"`
	Blocks       *domain.Blocks `json:"blocks"`
	HTMLContent  *string        `json:"html_content"`
	PlainContent *string        `json:"plain_content"`
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns campaigns newest first, optionally scoped to one list.
func (s *Service) List(ctx context.Context, listID *uuid.UUID, limit int) ([]*domain.Campaign, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.GetCampaigns(ctx, listID, limit)
}

// Create persists a new draft bound to an existing list, with a freshly
// generated shortcode.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	list, err := s.repo.GetList(ctx, input.ListID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, ErrListNotFound
	}

	code, err := domain.GenerateShortcode(ctx, s.repo.CampaignShortcodeExists)
	if err != nil {
		return nil, fmt.Errorf("generate shortcode: %w", err)
	}

	c := &domain.Campaign{
		ListID:       input.ListID,
		Shortcode:    code,
		Name:         input.Name,
		Subject:      input.Subject,
		Blocks:       input.Blocks,
		HTMLContent:  input.HTMLContent,
		PlainContent: input.PlainContent,
		Status:       domain.CampaignDraft,
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update modifies content fields while the campaign is still editable.
// Scheduled campaigns stay scheduled through an edit; only sending/sent
// lock the content down.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*domain.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanEdit() {
		return nil, ErrNotEditable
	}

	if input.Name != nil {
		c.Name = *input.Name
	}
	if input.Subject != nil {
		c.Subject = *input.Subject
	}
	if input.Blocks != nil {
		c.Blocks = *input.Blocks
	}
	if input.HTMLContent != nil {
		c.HTMLContent = *input.HTMLContent
	}
	if input.PlainContent != nil {
		c.PlainContent = *input.PlainContent
	}

	if err := s.repo.UpdateCampaignContent(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a campaign in any state except mid-send.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.CanDelete() {
		return ErrNotDeletable
	}
	return s.repo.DeleteCampaign(ctx, id)
}

// Schedule books a future send. Allowed from draft and from scheduled
// (rescheduling replaces the previous time).
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanEdit() {
		return nil, ErrNotEditable
	}
	if !at.After(time.Now()) {
		return nil, ErrPastSchedule
	}

	if err := s.repo.UpdateCampaignSchedule(ctx, id, domain.CampaignScheduled, &at); err != nil {
		return nil, err
	}
	c.Status = domain.CampaignScheduled
	c.ScheduledAt = &at
	s.notifier.CampaignStatus(ctx, id, string(domain.CampaignScheduled))
	return c, nil
}

// Cancel returns a scheduled campaign to draft. This is the only backward
// edge in the state machine.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignScheduled {
		return nil, ErrNotScheduled
	}

	if err := s.repo.UpdateCampaignSchedule(ctx, id, domain.CampaignDraft, nil); err != nil {
		return nil, err
	}
	c.Status = domain.CampaignDraft
	c.ScheduledAt = nil
	s.notifier.CampaignStatus(ctx, id, string(domain.CampaignDraft))
	return c, nil
}

// Send claims the campaign for immediate dispatch: it verifies the
// audience is non-empty and flips the status to sending with a guarded
// update, so two concurrent send requests cannot both win. The caller
// runs the actual delivery after a successful claim.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	subscribed, err := s.repo.CountSubscribed(ctx, c.ListID)
	if err != nil {
		return nil, err
	}
	if !c.CanSend(subscribed) {
		if subscribed == 0 && (c.Status == domain.CampaignDraft || c.Status == domain.CampaignScheduled) {
			return nil, ErrNoRecipients
		}
		return nil, ErrNotSendable
	}

	claimed, err := s.repo.TransitionCampaignStatus(ctx, id,
		domain.CampaignSending, domain.CampaignDraft, domain.CampaignScheduled)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Someone else moved the campaign between the read and the claim.
		return nil, ErrNotSendable
	}

	c.Status = domain.CampaignSending
	s.notifier.CampaignStatus(ctx, id, string(domain.CampaignSending))
	return c, nil
}

// Stats returns the derived engagement rates for one campaign.
func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*domain.Campaign, domain.CampaignStats, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, domain.CampaignStats{}, err
	}
	return c, c.Stats(), nil
}
