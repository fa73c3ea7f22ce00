// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"realtorbuddy_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead passes intake.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	UserID uuid.UUID `json:"userId"`
	Source string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadUpdated is published when lead attributes change. ChangedFields carries
// the names of the raw attributes that differ from the previous state so
// subscribers can decide whether the change is relevant to them.
type LeadUpdated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	UserID        uuid.UUID `json:"userId"`
	ChangedFields []string  `json:"changedFields"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// LeadScored is published after the scoring engine persists a fresh score.
type LeadScored struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	Score          int       `json:"score"`
	Classification string    `json:"classification"`
}

func (e LeadScored) EventName() string { return "leads.lead.scored" }

// LeadOptedOut is published when an opt-out compliance event is recorded.
type LeadOptedOut struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadOptedOut) EventName() string { return "leads.lead.opted_out" }

// =============================================================================
// Outreach Domain Events
// =============================================================================

// OutreachRecorded is published after a cadence run appends an outreach record.
type OutreachRecorded struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Channel string    `json:"channel"`
	Status  string    `json:"status"`
	Tier    string    `json:"tier"`
}

func (e OutreachRecorded) EventName() string { return "outreach.recorded" }
