package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/courier/internal/domain"
)

const campaignColumns = `id, list_id, shortcode, name, subject, blocks, html_content, plain_content,
	status, scheduled_at, sent_at, sent_count, opens, clicks, unsubscribes, bounces, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := row.Scan(&c.ID, &c.ListID, &c.Shortcode, &c.Name, &c.Subject, &c.Blocks,
		&c.HTMLContent, &c.PlainContent, &c.Status, &c.ScheduledAt, &c.SentAt,
		&c.SentCount, &c.Opens, &c.Clicks, &c.Unsubscribes, &c.Bounces,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCampaign inserts a new campaign. ID and timestamps are assigned here.
func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = domain.CampaignDraft
	}

	query := `INSERT INTO campaigns (id, list_id, shortcode, name, subject, blocks,
		html_content, plain_content, status, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query, c.ID, c.ListID, c.Shortcode, c.Name,
		c.Subject, c.Blocks, c.HTMLContent, c.PlainContent, c.Status, c.ScheduledAt,
		c.CreatedAt, c.UpdatedAt)
	return err
}

// GetCampaign retrieves a campaign by ID. Returns (nil, nil) when absent.
func (s *Store) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(s.db.QueryRowContext(ctx, query, campaignID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetCampaignByShortcode retrieves a campaign by its public shortcode.
// Returns (nil, nil) when absent.
func (s *Store) GetCampaignByShortcode(ctx context.Context, shortcode string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE shortcode = $1`
	c, err := scanCampaign(s.db.QueryRowContext(ctx, query, shortcode))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetCampaigns retrieves campaigns newest first, optionally filtered by list.
func (s *Store) GetCampaigns(ctx context.Context, listID *uuid.UUID, limit int) ([]*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []interface{}{}
	if listID != nil {
		query += ` WHERE list_id = $1`
		args = append(args, *listID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// UpdateCampaignContent persists editable fields. Lifecycle guards live in
// the service layer; this only writes.
func (s *Store) UpdateCampaignContent(ctx context.Context, c *domain.Campaign) error {
	query := `UPDATE campaigns SET name = $2, subject = $3, blocks = $4,
		html_content = $5, plain_content = $6, updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.Subject, c.Blocks,
		c.HTMLContent, c.PlainContent)
	return err
}

// UpdateCampaignSchedule sets or clears the scheduled time and status
// together.
func (s *Store) UpdateCampaignSchedule(ctx context.Context, campaignID uuid.UUID, status domain.CampaignStatus, scheduledAt *time.Time) error {
	query := `UPDATE campaigns SET status = $2, scheduled_at = $3, updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, campaignID, status, scheduledAt)
	return err
}

// TransitionCampaignStatus moves a campaign to next only if its current
// status is one of from. Returns true when the row was claimed. Concurrent
// dispatchers race on this update; exactly one wins.
func (s *Store) TransitionCampaignStatus(ctx context.Context, campaignID uuid.UUID, next domain.CampaignStatus, from ...domain.CampaignStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition requires at least one source status")
	}
	query := `UPDATE campaigns SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)`

	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}
	res, err := s.db.ExecContext(ctx, query, campaignID, next, pq.Array(states))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkCampaignSent writes the terminal delivery outcome in a single update:
// status, completion time and both tallies.
func (s *Store) MarkCampaignSent(ctx context.Context, campaignID uuid.UUID, sentCount, bounces int) error {
	query := `UPDATE campaigns SET status = 'sent', sent_at = NOW(),
		sent_count = $2, bounces = $3, updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, campaignID, sentCount, bounces)
	return err
}

// counterColumns whitelists the counters the tracker may increment. The
// column name is interpolated into SQL, so it must never come from input.
var counterColumns = map[string]string{
	"opens":        "opens",
	"clicks":       "clicks",
	"unsubscribes": "unsubscribes",
}

// IncrementCampaignCounter bumps one engagement counter by 1.
func (s *Store) IncrementCampaignCounter(ctx context.Context, campaignID uuid.UUID, counter string) error {
	col, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("unknown campaign counter %q", counter)
	}
	query := fmt.Sprintf(`UPDATE campaigns SET %s = %s + 1, updated_at = NOW() WHERE id = $1`, col, col)
	_, err := s.db.ExecContext(ctx, query, campaignID)
	return err
}

// GetDueScheduledCampaigns returns scheduled campaigns whose scheduled_at
// has passed, oldest first.
func (s *Store) GetDueScheduledCampaigns(ctx context.Context, now time.Time) ([]*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE status = 'scheduled' AND scheduled_at IS NOT NULL AND scheduled_at <= $1
		ORDER BY scheduled_at`

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// DeleteCampaign removes a campaign and its open records.
func (s *Store) DeleteCampaign(ctx context.Context, campaignID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, campaignID)
	return err
}

// CampaignShortcodeExists reports whether a shortcode is already taken by a
// campaign.
func (s *Store) CampaignShortcodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaigns WHERE shortcode = $1)`, code).Scan(&exists)
	return exists, err
}
