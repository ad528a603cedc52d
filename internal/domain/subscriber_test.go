package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscriber(t *testing.T) {
	listID := uuid.New()
	s := NewSubscriber(listID, "  Jane.Doe@Example.COM ", "Jane", "Doe")

	assert.Equal(t, listID, s.ListID)
	assert.Equal(t, "jane.doe@example.com", s.Email)
	assert.Equal(t, SubscriberSubscribed, s.Status)
	require.NotNil(t, s.VerificationToken)
	assert.NotEmpty(t, *s.VerificationToken)
	assert.NotEmpty(t, s.UnsubscribeToken)
	assert.NotEqual(t, *s.VerificationToken, s.UnsubscribeToken)
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.domain.org",
		"x+tag@example.co",
	}
	for _, e := range valid {
		assert.True(t, ValidateEmail(e), e)
	}

	invalid := []string{
		"",
		"no-at-sign",
		"two@@example.com",
		"@example.com",
		"user@",
		"user@nodot",
		"user@.starts-with-dot.com",
		"user@ends-with-dot.",
		"has space@example.com",
	}
	for _, e := range invalid {
		assert.False(t, ValidateEmail(e), e)
	}
}
