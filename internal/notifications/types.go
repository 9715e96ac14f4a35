// Package notifications implements the in-app notification feed with
// real-time delivery to subscribers.
package notifications

import "time"

// Notification channels. Each channel maps to a delivery priority.
const (
	// ChannelMedication carries dose reminders; high priority.
	ChannelMedication = "medication_reminders"
	// ChannelPetStatus carries pet mood changes; default priority.
	ChannelPetStatus = "pet_status"
	// ChannelAlert carries escalation failures the user must see.
	ChannelAlert = "alerts"
)

// Priority levels
const (
	PriorityDefault = 2
	PriorityHigh    = 3
)

// channelPriority maps a channel to its delivery priority
func channelPriority(channel string) int {
	switch channel {
	case ChannelMedication, ChannelAlert:
		return PriorityHigh
	default:
		return PriorityDefault
	}
}

// Notification is a single feed entry
type Notification struct {
	ID        string     `json:"id"`
	Channel   string     `json:"channel"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Priority  int        `json:"priority"`
	DedupeKey string     `json:"dedupe_key,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
