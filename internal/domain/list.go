package domain

import (
	"time"

	"github.com/google/uuid"
)

// List is a named subscriber audience with its own sender identity.
// The shortcode is the public, URL-safe handle; it is globally unique
// within the list namespace and immutable once assigned.
type List struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Shortcode   string    `json:"shortcode" db:"shortcode"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	FromEmail   string    `json:"from_email" db:"from_email"`
	FromName    string    `json:"from_name" db:"from_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ListStats holds subscriber counts by status for one list.
type ListStats struct {
	Subscribed   int `json:"subscribed"`
	Unsubscribed int `json:"unsubscribed"`
}
