package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

// Repository defines the data access contract for the campaign service.
// *store.Store satisfies it. Implementations must be safe for concurrent
// use.
type Repository interface {
	GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	GetCampaigns(ctx context.Context, listID *uuid.UUID, limit int) ([]*domain.Campaign, error)
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	UpdateCampaignContent(ctx context.Context, c *domain.Campaign) error
	UpdateCampaignSchedule(ctx context.Context, campaignID uuid.UUID, status domain.CampaignStatus, scheduledAt *time.Time) error
	TransitionCampaignStatus(ctx context.Context, campaignID uuid.UUID, next domain.CampaignStatus, from ...domain.CampaignStatus) (bool, error)
	DeleteCampaign(ctx context.Context, campaignID uuid.UUID) error
	CampaignShortcodeExists(ctx context.Context, code string) (bool, error)

	GetList(ctx context.Context, listID uuid.UUID) (*domain.List, error)
	CountSubscribed(ctx context.Context, listID uuid.UUID) (int, error)
}
