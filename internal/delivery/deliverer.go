// Package delivery dispatches a campaign to its list: one snapshot of the
// subscribed audience, one attempt per recipient, one terminal write.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/events"
	"github.com/ignite/courier/internal/mailer"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/render"
	"github.com/ignite/courier/internal/tracking"
)

// Store is the slice of persistence delivery needs.
type Store interface {
	GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	GetList(ctx context.Context, listID uuid.UUID) (*domain.List, error)
	GetSubscribedRecipients(ctx context.Context, listID uuid.UUID) ([]*domain.Subscriber, error)
	MarkCampaignSent(ctx context.Context, campaignID uuid.UUID, sentCount, bounces int) error
}

// Deliverer sends one campaign at a time. The campaign must already be in
// sending state when Deliver is called; the caller owns that transition.
type Deliverer struct {
	store    Store
	mail     mailer.Mailer
	personal *render.Personalizer
	urls     *tracking.URLBuilder
	notifier events.Notifier
	// ratePerSecond throttles dispatch; 0 means unthrottled.
	ratePerSecond int
	log           *logger.Logger
}

func NewDeliverer(store Store, mail mailer.Mailer, urls *tracking.URLBuilder, notifier events.Notifier, ratePerSecond int) *Deliverer {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Deliverer{
		store:         store,
		mail:          mail,
		personal:      render.NewPersonalizer(),
		urls:          urls,
		notifier:      notifier,
		ratePerSecond: ratePerSecond,
		log:           logger.New("delivery", logger.INFO),
	}
}

// Deliver runs the whole send. The recipient set is read once up front;
// subscribes and unsubscribes during the run do not change who gets mail.
// Each recipient is attempted independently: a failed send is tallied as a
// bounce and the run moves on. The terminal write happens exactly once,
// after the last attempt.
func (d *Deliverer) Deliver(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := d.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		return fmt.Errorf("campaign %s not found", campaignID)
	}
	if campaign.Status != domain.CampaignSending {
		return fmt.Errorf("campaign %s is %s, not sending", campaignID, campaign.Status)
	}

	list, err := d.store.GetList(ctx, campaign.ListID)
	if err != nil {
		return fmt.Errorf("load list: %w", err)
	}
	if list == nil {
		return fmt.Errorf("list %s not found", campaign.ListID)
	}

	recipients, err := d.store.GetSubscribedRecipients(ctx, campaign.ListID)
	if err != nil {
		return fmt.Errorf("snapshot recipients: %w", err)
	}

	d.log.Info("delivery started", "campaign_id", campaign.ID,
		"recipients", len(recipients))
	d.notifier.CampaignStatus(ctx, campaign.ID, string(domain.CampaignSending))

	htmlBody := render.HTML(campaign)
	plainBody := render.Plain(campaign)
	subject := campaign.EffectiveSubject()

	var throttle *time.Ticker
	if d.ratePerSecond > 0 {
		throttle = time.NewTicker(time.Second / time.Duration(d.ratePerSecond))
		defer throttle.Stop()
	}

	sent, bounces := 0, 0
	for _, sub := range recipients {
		if throttle != nil {
			select {
			case <-throttle.C:
			case <-ctx.Done():
			}
		}

		if err := d.sendOne(ctx, campaign, list, sub, subject, htmlBody, plainBody); err != nil {
			bounces++
			d.log.Warn("send failed", "error", err,
				"campaign_id", campaign.ID, "subscriber_id", sub.ID)
			continue
		}
		sent++
	}

	if err := d.store.MarkCampaignSent(ctx, campaign.ID, sent, bounces); err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	d.notifier.CampaignStatus(ctx, campaign.ID, string(domain.CampaignSent))
	d.log.Info("delivery finished", "campaign_id", campaign.ID,
		"sent", sent, "bounces", bounces)
	return nil
}

func (d *Deliverer) sendOne(ctx context.Context, campaign *domain.Campaign, list *domain.List, sub *domain.Subscriber, subject, htmlBody, plainBody string) error {
	data := render.SubscriberData(sub, list)

	personalSubject, err := d.personal.Render(subject, data)
	if err != nil {
		return fmt.Errorf("personalize subject: %w", err)
	}
	personalHTML, err := d.personal.Render(htmlBody, data)
	if err != nil {
		return fmt.Errorf("personalize body: %w", err)
	}
	personalPlain, err := d.personal.Render(plainBody, data)
	if err != nil {
		return fmt.Errorf("personalize plain body: %w", err)
	}

	unsubURL := d.urls.UnsubscribeURL(sub.UnsubscribeToken, &campaign.ID)
	personalHTML = d.urls.InstrumentHTML(personalHTML, campaign.ID, sub.ID, sub.UnsubscribeToken)
	personalPlain += "\n\nUnsubscribe: " + unsubURL

	msg := &mailer.Message{
		FromName:       list.FromName,
		FromEmail:      list.FromEmail,
		To:             sub.Email,
		Subject:        personalSubject,
		HTMLBody:       personalHTML,
		PlainBody:      personalPlain,
		UnsubscribeURL: unsubURL,
	}
	return d.mail.Send(ctx, msg)
}
