package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"realtorbuddy_backend/internal/leads/repository"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type AppendParams struct {
	LeadID           uuid.UUID
	UserID           uuid.UUID
	Channel          repository.Channel
	Subject          string
	Content          string
	Direction        Direction
	Status           Status
	Tier             repository.Tier
	RequiresApproval bool
}

func (r *Repository) Append(ctx context.Context, params AppendParams) (Record, error) {
	var rec Record
	var channel, tier, direction, status string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO message_logs (
			lead_id, user_id, channel, subject, content,
			direction, status, tier, requires_approval
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, lead_id, user_id, channel, subject, content,
			direction, status, tier, requires_approval, created_at`,
		params.LeadID, params.UserID, string(params.Channel), params.Subject, params.Content,
		string(params.Direction), string(params.Status), string(params.Tier), params.RequiresApproval,
	).Scan(
		&rec.ID, &rec.LeadID, &rec.UserID, &channel, &rec.Subject, &rec.Content,
		&direction, &status, &tier, &rec.RequiresApproval, &rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Channel = repository.Channel(channel)
	rec.Direction = Direction(direction)
	rec.Status = Status(status)
	rec.Tier = repository.Tier(tier)
	return rec, nil
}

// HasOutboundSince reports whether any outbound message was logged for the
// lead after the cutoff. The anti-spam guard asks this question once per
// cadence candidate.
func (r *Repository) HasOutboundSince(ctx context.Context, leadID uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM message_logs
			WHERE lead_id = $1 AND direction = $2 AND created_at > $3
		)`, leadID, string(DirectionOutbound), since).Scan(&exists)
	return exists, err
}

func (r *Repository) ListByLead(ctx context.Context, leadID, userID uuid.UUID) ([]Record, error) {
	return r.list(ctx, `
		SELECT id, lead_id, user_id, channel, subject, content,
			direction, status, tier, requires_approval, created_at
		FROM message_logs
		WHERE lead_id = $1 AND user_id = $2
		ORDER BY created_at DESC`, leadID, userID)
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	return r.list(ctx, `
		SELECT id, lead_id, user_id, channel, subject, content,
			direction, status, tier, requires_approval, created_at
		FROM message_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
}

const countByLeadSinceQuery = `
		SELECT lead_id, COUNT(*)
		FROM message_logs
		WHERE user_id = $1 AND created_at > $2
		GROUP BY lead_id`

// CountByLeadSince counts messages per lead for the user after the cutoff,
// both directions: inbound replies count toward engagement too. The digest
// uses the counts as its engagement signal.
func (r *Repository) CountByLeadSince(ctx context.Context, userID uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, countByLeadSinceQuery, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var leadID uuid.UUID
		var n int
		if err := rows.Scan(&leadID, &n); err != nil {
			return nil, err
		}
		counts[leadID] = n
	}
	return counts, rows.Err()
}

func (r *Repository) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM message_logs
		WHERE user_id = $1 AND direction = $2 AND created_at > $3`,
		userID, string(DirectionOutbound), since).Scan(&n)
	return n, err
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var channel, tier, direction, status string
		if err := rows.Scan(
			&rec.ID, &rec.LeadID, &rec.UserID, &channel, &rec.Subject, &rec.Content,
			&direction, &status, &tier, &rec.RequiresApproval, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Channel = repository.Channel(channel)
		rec.Direction = Direction(direction)
		rec.Status = Status(status)
		rec.Tier = repository.Tier(tier)
		records = append(records, rec)
	}
	return records, rows.Err()
}
