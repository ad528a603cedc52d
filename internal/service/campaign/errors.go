package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound     = errors.New("campaign not found")
	ErrListNotFound = errors.New("list not found")
	ErrNotEditable  = errors.New("campaign can no longer be edited")
	ErrNotDeletable = errors.New("campaign is sending and cannot be deleted")
	ErrNotSendable  = errors.New("campaign cannot be sent from its current status")
	ErrNoRecipients = errors.New("list has no subscribed members")
	ErrNotScheduled = errors.New("campaign is not scheduled")
	ErrPastSchedule = errors.New("scheduled time is in the past")
)
