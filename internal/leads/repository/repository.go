package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, user_id, first_name, last_name, email, phone, preferred_channel, source,
	budget, timeline, motivation, lender_status, response_rate, last_contact_date,
	score, classification, explainability_card, last_scored_at,
	status, next_action_date, version, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var channel, lender, status string
	var classification *string
	err := row.Scan(
		&l.ID, &l.UserID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &channel, &l.Source,
		&l.Budget, &l.Timeline, &l.Motivation, &lender, &l.ResponseRate, &l.LastContactDate,
		&l.Score, &classification, &l.ExplainabilityCard, &l.LastScoredAt,
		&status, &l.NextActionDate, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	l.PreferredChannel = Channel(channel)
	l.LenderStatus = LenderStatus(lender)
	l.Status = LeadStatus(status)
	if classification != nil {
		l.Classification = Tier(*classification)
	}
	return l, nil
}

type CreateLeadParams struct {
	UserID           uuid.UUID
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	PreferredChannel Channel
	Source           string
	Budget           float64
	Timeline         *string
	Motivation       *string
	LenderStatus     LenderStatus
	Status           LeadStatus
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			user_id, first_name, last_name, email, phone, preferred_channel, source,
			budget, timeline, motivation, lender_status, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+leadColumns,
		params.UserID, params.FirstName, params.LastName, params.Email, params.Phone,
		string(params.PreferredChannel), params.Source,
		params.Budget, params.Timeline, params.Motivation, string(params.LenderStatus), string(params.Status),
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByIDForUser returns the lead only if it belongs to the given user.
func (r *Repository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND user_id = $2`, id, userID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListByUserStatuses returns the user's leads restricted to the given
// lifecycle statuses.
func (r *Repository) ListByUserStatuses(ctx context.Context, userID uuid.UUID, statuses []LeadStatus) ([]Lead, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY score DESC, created_at DESC`, userID, values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// FindByEmailOrPhone returns the first lead matching either contact field.
// Used by intake duplicate detection.
func (r *Repository) FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE (email = $1 AND $1 <> '') OR (phone = $2 AND $2 <> '')
		ORDER BY created_at ASC
		LIMIT 1`, email, phoneNumber)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

type UpdateLeadParams struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	PreferredChannel Channel
	Budget           float64
	Timeline         *string
	Motivation       *string
	LenderStatus     LenderStatus
	ResponseRate     *float64
	LastContactDate  *time.Time
}

// Update replaces the lead's raw attributes and contact info. Derived and
// cadence fields are untouched; those belong to the scoring engine and the
// scheduler respectively.
func (r *Repository) Update(ctx context.Context, id, userID uuid.UUID, params UpdateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			first_name = $3, last_name = $4, email = $5, phone = $6, preferred_channel = $7,
			budget = $8, timeline = $9, motivation = $10, lender_status = $11,
			response_rate = $12, last_contact_date = $13, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+leadColumns,
		id, userID,
		params.FirstName, params.LastName, params.Email, params.Phone, string(params.PreferredChannel),
		params.Budget, params.Timeline, params.Motivation, string(params.LenderStatus),
		params.ResponseRate, params.LastContactDate,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status LeadStatus) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+leadColumns,
		id, userID, string(status))
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// MarkOptedOut flips the lead status without the owner scope; the compliance
// opt-out transition may originate from an inbound channel webhook.
func (r *Repository) MarkOptedOut(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1`, id, string(StatusOptedOut))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScore persists the derived scoring fields. Never touches raw
// attributes or cadence state.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int, classification Tier, card string, scoredAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			score = $2, classification = $3, explainability_card = $4,
			last_scored_at = $5, updated_at = now()
		WHERE id = $1`,
		id, score, string(classification), card, scoredAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendScoreHistory records one scoring pass for the audit trail.
func (r *Repository) AppendScoreHistory(ctx context.Context, entry ScoreHistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO score_history (lead_id, score, classification, sub_scores, explainability_card)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.LeadID, entry.Score, string(entry.Classification), entry.SubScores, entry.ExplainabilityCard)
	return err
}

// ListActiveByTier returns all active leads in the given tier. Cadence
// eligibility (staleness) is evaluated by the caller so the rule stays
// testable without a database.
func (r *Repository) ListActiveByTier(ctx context.Context, tier Tier) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE status = $1 AND classification = $2
		ORDER BY score DESC`, string(StatusActive), string(tier))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ClaimNextAction atomically advances the lead's cadence state. The update is
// conditional on the version observed when the candidate was selected; a zero
// row count means another run claimed the lead first and the caller must skip
// it. lastContact is only written when non-nil (drafts leave it untouched).
func (r *Repository) ClaimNextAction(ctx context.Context, id uuid.UUID, expectedVersion int64, nextAction time.Time, lastContact *time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			next_action_date = $3,
			last_contact_date = COALESCE($4, last_contact_date),
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2`,
		id, expectedVersion, nextAction, lastContact)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountClosedSince counts the user's leads closed after the cutoff.
func (r *Repository) CountClosedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE user_id = $1 AND status = $2 AND updated_at > $3`,
		userID, string(StatusClosed), since).Scan(&n)
	return n, err
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}
