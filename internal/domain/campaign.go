package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
// The state machine moves strictly forward: draft → scheduled → sending →
// sent, with one backward edge (scheduled → draft) for cancellation.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
)

// Campaign is an authored message bound to exactly one list.
type Campaign struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ListID    uuid.UUID `json:"list_id" db:"list_id"`
	Shortcode string    `json:"shortcode" db:"shortcode"`
	Name      string    `json:"name" db:"name"`
	Subject   string    `json:"subject" db:"subject"`

	// Content is either block-structured (preferred) or legacy flat
	// HTML/plain text. Rendering prefers Blocks when non-empty.
	Blocks       Blocks `json:"blocks" db:"blocks"`
	HTMLContent  string `json:"html_content" db:"html_content"`
	PlainContent string `json:"plain_content" db:"plain_content"`

	Status      CampaignStatus `json:"status" db:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time     `json:"sent_at" db:"sent_at"`

	// Counters are monotonically non-decreasing and mutated only by the
	// delivery job and the engagement tracker.
	SentCount    int `json:"sent_count" db:"sent_count"`
	Opens        int `json:"opens" db:"opens"`
	Clicks       int `json:"clicks" db:"clicks"`
	Unsubscribes int `json:"unsubscribes" db:"unsubscribes"`
	Bounces      int `json:"bounces" db:"bounces"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EffectiveSubject returns the subject line used for delivery. An empty
// subject falls back to the campaign name.
func (c *Campaign) EffectiveSubject() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Name
}

// CanEdit reports whether the campaign's content may still be modified.
// Draft and scheduled campaigns are editable; sending/sent lock content.
func (c *Campaign) CanEdit() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}

// CanDelete reports whether the campaign may be deleted. A campaign
// mid-dispatch cannot be removed without orphaning in-flight sends.
func (c *Campaign) CanDelete() bool {
	return c.Status != CampaignSending
}

// CanSend reports whether the campaign may be dispatched, given the number
// of currently subscribed members on its list.
func (c *Campaign) CanSend(subscribed int) bool {
	if c.Status != CampaignDraft && c.Status != CampaignScheduled {
		return false
	}
	return subscribed > 0
}

// CampaignStats holds the engagement rates derived from the raw counters.
// Rates are fractions of sent_count and clamp to 0 when nothing was sent.
type CampaignStats struct {
	OpenRate        float64 `json:"open_rate"`
	ClickRate       float64 `json:"click_rate"`
	UnsubscribeRate float64 `json:"unsubscribe_rate"`
	BounceRate      float64 `json:"bounce_rate"`
}

// Stats computes the derived engagement rates.
func (c *Campaign) Stats() CampaignStats {
	s := CampaignStats{}
	if c.SentCount > 0 {
		s.OpenRate = float64(c.Opens) / float64(c.SentCount)
		s.ClickRate = float64(c.Clicks) / float64(c.SentCount)
		s.UnsubscribeRate = float64(c.Unsubscribes) / float64(c.SentCount)
		s.BounceRate = float64(c.Bounces) / float64(c.SentCount)
	}
	return s
}
