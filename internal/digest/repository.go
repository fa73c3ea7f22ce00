// Package digest generates the daily top-5 report per realtor and the
// monthly ROI summary that goes with it.
package digest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is a realtor receiving reports.
type User struct {
	ID               uuid.UUID
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	PreferredChannel string
	Status           string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListActiveUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, preferred_channel, status
		FROM users
		WHERE status = 'active'
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.PreferredChannel, &u.Status); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AppendReport archives a generated report for later review.
func (r *Repository) AppendReport(ctx context.Context, userID uuid.UUID, content string, leadIDs []uuid.UUID, roi ROI, generatedAt time.Time) error {
	roiJSON, err := json.Marshal(roi)
	if err != nil {
		return err
	}
	ids := make([]string, len(leadIDs))
	for i, id := range leadIDs {
		ids[i] = id.String()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO analytics_reports (user_id, report_type, content, lead_ids, roi_metrics, generated_at, status)
		VALUES ($1, 'DailyTop5', $2, $3, $4, $5, 'Sent')`,
		userID, content, ids, roiJSON, generatedAt)
	return err
}
