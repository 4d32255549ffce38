package entities

import "time"

// EstablishmentEventType identifies what happened to the establishment set
type EstablishmentEventType string

const (
	// EstablishmentsRefreshed is published after descriptors are re-upserted
	EstablishmentsRefreshed EstablishmentEventType = "establishments.refreshed"
)

// EstablishmentEvent is broadcast to every service replica
type EstablishmentEvent struct {
	ID        string                 `json:"id"`
	Type      EstablishmentEventType `json:"type"`
	Written   int                    `json:"written"`
	Timestamp time.Time              `json:"timestamp"`
}
