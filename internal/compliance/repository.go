// Package compliance records regulatory events against leads. Opt-outs and
// intake consent records live here so the cadence guards and any future audit
// can read them from one place.
package compliance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventType string

const (
	EventOptOut     EventType = "OptOut"
	EventLeadIntake EventType = "LeadIntake"
)

type Event struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	EventType EventType
	Details   json.RawMessage
	CreatedAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Append(ctx context.Context, leadID uuid.UUID, eventType EventType, details json.RawMessage) error {
	if details == nil {
		details = json.RawMessage(`{}`)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO compliance_events (lead_id, event_type, details)
		VALUES ($1, $2, $3)`,
		leadID, string(eventType), details)
	return err
}

// HasOptOut reports whether any opt-out event exists for the lead. Once a
// lead opts out the answer never flips back.
func (r *Repository) HasOptOut(ctx context.Context, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM compliance_events
			WHERE lead_id = $1 AND event_type = $2
		)`, leadID, string(EventOptOut)).Scan(&exists)
	return exists, err
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, event_type, details, created_at
		FROM compliance_events
		WHERE lead_id = $1
		ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		var eventType string
		if err := rows.Scan(&e.ID, &e.LeadID, &eventType, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventType = EventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}
