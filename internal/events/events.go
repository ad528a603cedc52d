// Package events publishes lifecycle notifications (campaign status
// transitions, import progress) over Redis pub/sub so dashboards can react
// without polling. Publishing is fire-and-forget: a broken broker never
// fails the operation that emitted the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCampaignStatus EventType = "campaign.status"
	EventImportStatus   EventType = "import.status"
	EventImportProgress EventType = "import.progress"
)

// Event is the published payload.
type Event struct {
	Type      EventType `json:"type"`
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status,omitempty"`
	Processed int       `json:"processed,omitempty"`
	Total     int       `json:"total,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes events. Implementations must not block the caller on
// broker latency.
type Notifier interface {
	CampaignStatus(ctx context.Context, campaignID uuid.UUID, status string)
	ImportStatus(ctx context.Context, importID uuid.UUID, status string)
	ImportProgress(ctx context.Context, importID uuid.UUID, processed, total int)
}

// NopNotifier drops every event. Used when Redis is not configured.
type NopNotifier struct{}

func (NopNotifier) CampaignStatus(context.Context, uuid.UUID, string)  {}
func (NopNotifier) ImportStatus(context.Context, uuid.UUID, string)    {}
func (NopNotifier) ImportProgress(context.Context, uuid.UUID, int, int) {}
