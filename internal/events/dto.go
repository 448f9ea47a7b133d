package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/pkg/auth"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
)

// CreateInput describes a new event. When GeneratePIN is set a numeric PIN is chosen for the host.
type CreateInput struct {
	Identity    *auth.Identity
	Name        string
	ExpiresAt   *time.Time
	PIN         string
	GeneratePIN bool
}

// EventDTO is the API view of an event. The PIN hash never leaves the service.
type EventDTO struct {
	ID        uuid.UUID  `json:"id"`
	HostID    uuid.UUID  `json:"host_id"`
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Protected bool       `json:"pin_protected"`
	Views     int64      `json:"views"`
	Downloads int64      `json:"downloads"`
	CreatedAt time.Time  `json:"created_at"`
}

func toDTO(event models.Event) EventDTO {
	return EventDTO{
		ID:        event.ID,
		HostID:    event.HostID,
		Name:      event.Name,
		ExpiresAt: event.ExpiresAt,
		Protected: event.HasPIN(),
		Views:     event.Views,
		Downloads: event.Downloads,
		CreatedAt: event.CreatedAt,
	}
}

// CreateResult echoes the PIN only when the service generated it.
type CreateResult struct {
	Event EventDTO `json:"event"`
	PIN   string   `json:"pin,omitempty"`
}

// ViewInput reads one event.
type ViewInput struct {
	EventID  uuid.UUID
	Identity *auth.Identity
	ViewPass string
}

// VerifyPINInput is one PIN attempt from ClientIP.
type VerifyPINInput struct {
	EventID  uuid.UUID
	PIN      string
	ClientIP string
	Identity *auth.Identity
}

// ViewPass grants gallery access to a PIN-protected event until ExpiresAt.
type ViewPass struct {
	Token     string    `json:"view_pass"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DeleteInput removes an event on behalf of its host.
type DeleteInput struct {
	EventID  uuid.UUID
	Identity *auth.Identity
}
