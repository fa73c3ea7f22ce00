// Package outreach owns the message log and the delivery abstraction. Every
// message the system drafts or dispatches lands here, whatever the channel.
package outreach

import (
	"time"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/leads/repository"
)

type Status string

const (
	StatusDraft  Status = "Draft"
	StatusSent   Status = "Sent"
	StatusFailed Status = "Failed"
)

type Direction string

const (
	DirectionOutbound Direction = "Outbound"
	DirectionInbound  Direction = "Inbound"
)

type Record struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	UserID           uuid.UUID
	Channel          repository.Channel
	Subject          string
	Content          string
	Direction        Direction
	Status           Status
	Tier             repository.Tier
	RequiresApproval bool
	CreatedAt        time.Time
}
