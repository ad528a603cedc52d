package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/mailer"
	"github.com/ignite/courier/internal/tracking"
)

// memDeliveryStore implements Store in memory.
type memDeliveryStore struct {
	campaign   *domain.Campaign
	list       *domain.List
	recipients []*domain.Subscriber

	sentCount int
	bounces   int
	markCalls int
}

func (m *memDeliveryStore) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	if m.campaign != nil && m.campaign.ID == id {
		return m.campaign, nil
	}
	return nil, nil
}

func (m *memDeliveryStore) GetList(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	if m.list != nil && m.list.ID == id {
		return m.list, nil
	}
	return nil, nil
}

func (m *memDeliveryStore) GetSubscribedRecipients(ctx context.Context, listID uuid.UUID) ([]*domain.Subscriber, error) {
	var subscribed []*domain.Subscriber
	for _, sub := range m.recipients {
		if sub.Status == domain.SubscriberSubscribed {
			subscribed = append(subscribed, sub)
		}
	}
	return subscribed, nil
}

func (m *memDeliveryStore) MarkCampaignSent(ctx context.Context, id uuid.UUID, sentCount, bounces int) error {
	m.markCalls++
	m.sentCount = sentCount
	m.bounces = bounces
	m.campaign.Status = domain.CampaignSent
	return nil
}

// recordingMailer captures sent messages and fails for chosen addresses.
type recordingMailer struct {
	sent    []*mailer.Message
	failFor map[string]bool
}

func (m *recordingMailer) Send(ctx context.Context, msg *mailer.Message) error {
	if m.failFor[msg.To] {
		return errors.New("smtp 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func setupDelivery(t *testing.T) (*memDeliveryStore, *recordingMailer, *Deliverer) {
	t.Helper()
	list := &domain.List{ID: uuid.New(), Name: "Weekly", FromEmail: "news@example.com", FromName: "Example News"}
	campaign := &domain.Campaign{
		ID:      uuid.New(),
		ListID:  list.ID,
		Name:    "Issue 12",
		Subject: "Hi {{ first_name | default: \"there\" }}",
		Blocks: domain.Blocks{
			{ID: "1", Kind: domain.BlockText, Content: `<p>Read <a href="https://example.com/post">the post</a></p>`},
		},
		Status: domain.CampaignSending,
	}
	store := &memDeliveryStore{campaign: campaign, list: list}
	mail := &recordingMailer{failFor: make(map[string]bool)}
	urls := tracking.NewURLBuilder("https://t.example.com")
	d := NewDeliverer(store, mail, urls, nil, 0)
	return store, mail, d
}

func addSubscriber(store *memDeliveryStore, email, first string, status domain.SubscriberStatus) *domain.Subscriber {
	sub := domain.NewSubscriber(store.list.ID, email, first, "")
	sub.Status = status
	store.recipients = append(store.recipients, sub)
	return sub
}

func TestDeliverSnapshotsSubscribedOnly(t *testing.T) {
	store, mail, d := setupDelivery(t)
	addSubscriber(store, "a@example.com", "Ana", domain.SubscriberSubscribed)
	addSubscriber(store, "b@example.com", "Ben", domain.SubscriberSubscribed)
	addSubscriber(store, "c@example.com", "Cai", domain.SubscriberSubscribed)
	addSubscriber(store, "gone1@example.com", "", domain.SubscriberUnsubscribed)
	addSubscriber(store, "gone2@example.com", "", domain.SubscriberUnsubscribed)

	require.NoError(t, d.Deliver(context.Background(), store.campaign.ID))

	assert.Len(t, mail.sent, 3)
	assert.Equal(t, 3, store.sentCount)
	assert.Equal(t, 0, store.bounces)
	assert.Equal(t, 1, store.markCalls)
	assert.Equal(t, domain.CampaignSent, store.campaign.Status)
}

func TestDeliverFailedSendTalliesBounceAndContinues(t *testing.T) {
	store, mail, d := setupDelivery(t)
	addSubscriber(store, "ok1@example.com", "", domain.SubscriberSubscribed)
	bad := addSubscriber(store, "bad@example.com", "", domain.SubscriberSubscribed)
	addSubscriber(store, "ok2@example.com", "", domain.SubscriberSubscribed)
	mail.failFor[bad.Email] = true

	require.NoError(t, d.Deliver(context.Background(), store.campaign.ID))

	assert.Len(t, mail.sent, 2)
	assert.Equal(t, 2, store.sentCount)
	assert.Equal(t, 1, store.bounces)
	// Attempts always partition: sent + bounces covers every recipient.
	assert.Equal(t, 3, store.sentCount+store.bounces)
	assert.Equal(t, domain.CampaignSent, store.campaign.Status)
}

func TestDeliverPersonalizesAndInstruments(t *testing.T) {
	store, mail, d := setupDelivery(t)
	sub := addSubscriber(store, "grace@example.com", "Grace", domain.SubscriberSubscribed)

	require.NoError(t, d.Deliver(context.Background(), store.campaign.ID))
	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]

	assert.Equal(t, "Hi Grace", msg.Subject)
	assert.Equal(t, "Example News <news@example.com>", msg.From())
	assert.Contains(t, msg.HTMLBody, "/t/open/"+store.campaign.ID.String()+"/"+sub.ID.String())
	assert.Contains(t, msg.HTMLBody, "/t/click/")
	assert.NotContains(t, msg.HTMLBody, `href="https://example.com/post"`)
	assert.Contains(t, msg.HTMLBody, "/t/unsubscribe?token="+sub.UnsubscribeToken)
	assert.Contains(t, msg.UnsubscribeURL, sub.UnsubscribeToken)
	assert.Contains(t, msg.PlainBody, "Unsubscribe: ")
}

func TestDeliverSubjectFallsBackToName(t *testing.T) {
	store, mail, d := setupDelivery(t)
	store.campaign.Subject = ""
	addSubscriber(store, "x@example.com", "", domain.SubscriberSubscribed)

	require.NoError(t, d.Deliver(context.Background(), store.campaign.ID))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "Issue 12", mail.sent[0].Subject)
}

func TestDeliverRejectsWrongStatus(t *testing.T) {
	store, _, d := setupDelivery(t)
	store.campaign.Status = domain.CampaignDraft

	err := d.Deliver(context.Background(), store.campaign.ID)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not sending"))
	assert.Equal(t, 0, store.markCalls)
}

func TestDeliverEmptyAudienceStillTerminal(t *testing.T) {
	store, mail, d := setupDelivery(t)

	require.NoError(t, d.Deliver(context.Background(), store.campaign.ID))
	assert.Empty(t, mail.sent)
	assert.Equal(t, 0, store.sentCount)
	assert.Equal(t, 1, store.markCalls)
	assert.Equal(t, domain.CampaignSent, store.campaign.Status)
}
