package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriberStatus enumerates a subscriber's standing on a list.
type SubscriberStatus string

const (
	SubscriberSubscribed   SubscriberStatus = "subscribed"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber is an email recipient on one list. A person present on several
// lists is represented by one row per list; email is unique per list, not
// globally. Subscribers are never hard-deleted by normal flow — unsubscribing
// flips status.
type Subscriber struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	ListID    uuid.UUID        `json:"list_id" db:"list_id"`
	Email     string           `json:"email" db:"email"`
	FirstName string           `json:"first_name" db:"first_name"`
	LastName  string           `json:"last_name" db:"last_name"`
	Status    SubscriberStatus `json:"status" db:"status"`

	// VerificationToken confirms signup ownership; nil once verified.
	// UnsubscribeToken backs one-click unsubscribe links and is issued at
	// creation, never rotated.
	VerificationToken *string `json:"-" db:"verification_token"`
	UnsubscribeToken  string  `json:"-" db:"unsubscribe_token"`

	SubscribedAt   time.Time  `json:"subscribed_at" db:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at" db:"unsubscribed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// NewSubscriber builds a subscribed member of the given list with fresh
// verification and unsubscribe tokens.
func NewSubscriber(listID uuid.UUID, email, firstName, lastName string) *Subscriber {
	verify := uuid.NewString()
	return &Subscriber{
		ID:                uuid.New(),
		ListID:            listID,
		Email:             NormalizeEmail(email),
		FirstName:         firstName,
		LastName:          lastName,
		Status:            SubscriberSubscribed,
		VerificationToken: &verify,
		UnsubscribeToken:  uuid.NewString(),
	}
}

// NormalizeEmail lowercases and trims an address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail performs syntactic validation without touching the network.
// It is intentionally permissive: length limits plus a single @ with a
// dotted domain, which is what the import pipeline needs to reject obvious
// garbage without false-negatives on unusual-but-valid addresses.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	local, dom := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return false
	}
	if len(dom) == 0 || len(dom) > 253 || !strings.Contains(dom, ".") {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	if strings.HasPrefix(dom, ".") || strings.HasSuffix(dom, ".") {
		return false
	}
	return true
}
