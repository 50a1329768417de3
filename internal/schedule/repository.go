package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides availability-schedule persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("schedule: pgx pool required")
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
		panic("schedule: querier required")
	}
	return &Repository{db: q}
}

// ListRecurring returns the staff member's weekly pattern.
func (r *Repository) ListRecurring(ctx context.Context, staffID string) ([]Entry, error) {
	query := `
		SELECT id, org_id, staff_id, weekday, start_minute, end_minute
		FROM availabilities
		WHERE staff_id = $1 AND kind = 'recurring'
		ORDER BY weekday, start_minute
	`
	rows, err := r.db.Query(ctx, query, staffID)
	if err != nil {
		return nil, fmt.Errorf("schedule: list recurring: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{Kind: KindRecurring, Available: true}
		var weekday int
		if err := rows.Scan(&e.ID, &e.OrgID, &e.StaffID, &weekday, &e.StartMinute, &e.EndMinute); err != nil {
			return nil, fmt.Errorf("schedule: scan recurring: %w", err)
		}
		e.Weekday = time.Weekday(weekday)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListExceptions returns date-specific overrides in [from, to], inclusive.
func (r *Repository) ListExceptions(ctx context.Context, staffID string, from, to time.Time) ([]Entry, error) {
	query := `
		SELECT id, org_id, staff_id, date, start_minute, end_minute, available
		FROM availabilities
		WHERE staff_id = $1 AND kind = 'exception' AND date >= $2 AND date <= $3
		ORDER BY date
	`
	rows, err := r.db.Query(ctx, query, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("schedule: list exceptions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{Kind: KindException}
		if err := rows.Scan(&e.ID, &e.OrgID, &e.StaffID, &e.Date, &e.StartMinute, &e.EndMinute, &e.Available); err != nil {
			return nil, fmt.Errorf("schedule: scan exception: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertException writes the single override for (staff, date). At most one
// exception row exists per staff per date by convention and constraint.
func (r *Repository) UpsertException(ctx context.Context, e Entry) (*Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Kind = KindException
	query := `
		INSERT INTO availabilities (id, org_id, staff_id, kind, date, start_minute, end_minute, available)
		VALUES ($1, $2, $3, 'exception', $4, $5, $6, $7)
		ON CONFLICT (staff_id, date) WHERE kind = 'exception' DO UPDATE
		SET start_minute = EXCLUDED.start_minute,
		    end_minute = EXCLUDED.end_minute,
		    available = EXCLUDED.available
		RETURNING id
	`
	if err := r.db.QueryRow(ctx, query, e.ID, e.OrgID, e.StaffID, e.Date, e.StartMinute, e.EndMinute, e.Available).Scan(&e.ID); err != nil {
		return nil, fmt.Errorf("schedule: upsert exception: %w", err)
	}
	return &e, nil
}

// DeleteException removes the override for (staff, date), restoring the
// recurring pattern. Returns whether a row existed.
func (r *Repository) DeleteException(ctx context.Context, staffID string, date time.Time) (bool, error) {
	query := `DELETE FROM availabilities WHERE staff_id = $1 AND kind = 'exception' AND date = $2`
	ct, err := r.db.Exec(ctx, query, staffID, date)
	if err != nil {
		return false, fmt.Errorf("schedule: delete exception: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
