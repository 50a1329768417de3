package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides appointment persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointment: pgx pool required")
	}
	return &Repository{db: pool}
}

// WithTx returns a view of the repository bound to the transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q querier) *Repository {
	if q == nil {
		panic("appointment: querier required")
	}
	return &Repository{db: q}
}

const apptColumns = `id, org_id, customer_id, service_id, staff_id, spot_id, start_at, end_at, status, rating, feedback, created_at, updated_at`

// Insert writes a new row. The staff/spot exclusion constraints reject
// overlapping pending/confirmed intervals at the storage layer; callers map
// that to ConflictError.
func (r *Repository) Insert(ctx context.Context, a *Appointment) error {
	query := `
		INSERT INTO appointments (id, org_id, customer_id, service_id, staff_id, spot_id, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		a.ID, a.OrgID, a.CustomerID, a.ServiceID, a.StaffID, a.SpotID, a.Start, a.End, string(a.Status),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointment: insert: %w", err)
	}
	return nil
}

// GetByID fetches an appointment scoped to the org.
func (r *Repository) GetByID(ctx context.Context, orgID, id string) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1 AND org_id = $2`
	return scanAppointment(r.db.QueryRow(ctx, query, id, orgID))
}

// UpdateTimes moves an appointment, optionally reassigning staff/spot. The
// exclusion constraints guard this path the same as Insert.
func (r *Repository) UpdateTimes(ctx context.Context, orgID, id string, staffID, spotID *string, start, end time.Time) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET staff_id = $3, spot_id = $4, start_at = $5, end_at = $6, updated_at = now()
		WHERE id = $1 AND org_id = $2
		RETURNING ` + apptColumns
	return scanAppointment(r.db.QueryRow(ctx, query, id, orgID, staffID, spotID, start, end))
}

// UpdateStatus transitions the appointment status.
func (r *Repository) UpdateStatus(ctx context.Context, orgID, id string, status Status) (*Appointment, error) {
	query := `
		UPDATE appointments SET status = $3, updated_at = now()
		WHERE id = $1 AND org_id = $2
		RETURNING ` + apptColumns
	return scanAppointment(r.db.QueryRow(ctx, query, id, orgID, string(status)))
}

// SetRating records the post-visit rating and optional feedback text.
func (r *Repository) SetRating(ctx context.Context, orgID, id string, rating int, feedback *string) error {
	query := `
		UPDATE appointments SET rating = $3, feedback = $4, updated_at = now()
		WHERE id = $1 AND org_id = $2
	`
	ct, err := r.db.Exec(ctx, query, id, orgID, rating, feedback)
	if err != nil {
		return fmt.Errorf("appointment: set rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindConflicts returns pending/confirmed appointments sharing the staff or
// spot whose interval overlaps [start, end). excludeID lets reschedules
// ignore the row being moved.
func (r *Repository) FindConflicts(ctx context.Context, orgID string, staffID, spotID *string, start, end time.Time, excludeID string) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE org_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at < $2 AND end_at > $3
		  AND (($4::text IS NOT NULL AND staff_id = $4) OR ($5::text IS NOT NULL AND spot_id = $5))
		  AND ($6 = '' OR id <> $6)
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, orgID, end, start, staffID, spotID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("appointment: find conflicts: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListBlockingForStaffBetween returns a staff member's pending/confirmed
// appointments overlapping [from, to). Used by the availability engine to
// prefetch one day's conflicts in a single query.
func (r *Repository) ListBlockingForStaffBetween(ctx context.Context, staffID string, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE staff_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointment: list blocking: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListUpcomingForCustomer returns the customer's pending/confirmed
// appointments from now on. Used by modify/cancel flows to identify the
// booking being discussed.
func (r *Repository) ListUpcomingForCustomer(ctx context.Context, orgID, customerID string, now time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE org_id = $1 AND customer_id = $2
		  AND status IN ('pending', 'confirmed')
		  AND end_at > $3
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, orgID, customerID, now)
	if err != nil {
		return nil, fmt.Errorf("appointment: list upcoming: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListForStaffDay returns all blocking appointments assigned to a staff
// member on one day. Backs the staff "today" command.
func (r *Repository) ListForStaffDay(ctx context.Context, staffID string, dayStart, dayEnd time.Time) ([]Appointment, error) {
	return r.ListBlockingForStaffBetween(ctx, staffID, dayStart, dayEnd)
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.OrgID, &a.CustomerID, &a.ServiceID, &a.StaffID, &a.SpotID,
		&a.Start, &a.End, &status, &a.Rating, &a.Feedback, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointment: select: %w", err)
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	a.Status = parsed
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		var a Appointment
		var status string
		err := rows.Scan(&a.ID, &a.OrgID, &a.CustomerID, &a.ServiceID, &a.StaffID, &a.SpotID,
			&a.Start, &a.End, &status, &a.Rating, &a.Feedback, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("appointment: scan: %w", err)
		}
		parsed, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		a.Status = parsed
		out = append(out, a)
	}
	return out, rows.Err()
}
