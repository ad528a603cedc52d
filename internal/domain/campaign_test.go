package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignCanEdit(t *testing.T) {
	cases := []struct {
		status CampaignStatus
		want   bool
	}{
		{CampaignDraft, true},
		{CampaignScheduled, true},
		{CampaignSending, false},
		{CampaignSent, false},
	}
	for _, tc := range cases {
		c := &Campaign{Status: tc.status}
		assert.Equal(t, tc.want, c.CanEdit(), "status %s", tc.status)
	}
}

func TestCampaignCanDelete(t *testing.T) {
	cases := []struct {
		status CampaignStatus
		want   bool
	}{
		{CampaignDraft, true},
		{CampaignScheduled, true},
		{CampaignSending, false},
		{CampaignSent, true},
	}
	for _, tc := range cases {
		c := &Campaign{Status: tc.status}
		assert.Equal(t, tc.want, c.CanDelete(), "status %s", tc.status)
	}
}

func TestCampaignCanSend(t *testing.T) {
	cases := []struct {
		name       string
		status     CampaignStatus
		subscribed int
		want       bool
	}{
		{"draft with audience", CampaignDraft, 5, true},
		{"scheduled with audience", CampaignScheduled, 1, true},
		{"draft empty list", CampaignDraft, 0, false},
		{"sending", CampaignSending, 10, false},
		{"sent", CampaignSent, 10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Campaign{Status: tc.status}
			assert.Equal(t, tc.want, c.CanSend(tc.subscribed))
		})
	}
}

func TestCampaignStats(t *testing.T) {
	c := &Campaign{SentCount: 200, Opens: 50, Clicks: 10, Unsubscribes: 4, Bounces: 2}
	s := c.Stats()
	assert.InDelta(t, 0.25, s.OpenRate, 1e-9)
	assert.InDelta(t, 0.05, s.ClickRate, 1e-9)
	assert.InDelta(t, 0.02, s.UnsubscribeRate, 1e-9)
	assert.InDelta(t, 0.01, s.BounceRate, 1e-9)
}

func TestCampaignStatsZeroSent(t *testing.T) {
	// Opens can exist with zero sends (forwarded mail, test renders); the
	// rates must clamp to zero instead of dividing by zero.
	c := &Campaign{SentCount: 0, Opens: 3, Clicks: 1}
	s := c.Stats()
	assert.Zero(t, s.OpenRate)
	assert.Zero(t, s.ClickRate)
	assert.Zero(t, s.UnsubscribeRate)
	assert.Zero(t, s.BounceRate)
}

func TestEffectiveSubject(t *testing.T) {
	c := &Campaign{Name: "March Update", Subject: ""}
	assert.Equal(t, "March Update", c.EffectiveSubject())

	c.Subject = "Big news inside"
	assert.Equal(t, "Big news inside", c.EffectiveSubject())
}
