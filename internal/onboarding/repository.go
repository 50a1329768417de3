package onboarding

import (
	"context"
	"fmt"

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

// Repository persists onboarding leads.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("onboarding: pgx pool required")
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
		panic("onboarding: querier required")
	}
	return &Repository{db: q}
}

// Touch upserts a lead by phone, bumping its message count, and returns the
// current row.
func (r *Repository) Touch(ctx context.Context, phone string) (*Lead, error) {
	query := `
		INSERT INTO onboarding_leads (id, phone, message_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (phone) DO UPDATE
		SET message_count = onboarding_leads.message_count + 1, updated_at = now()
		RETURNING id, phone, business_name, message_count, created_at, updated_at
	`
	var lead Lead
	err := r.db.QueryRow(ctx, query, uuid.NewString(), phone).Scan(
		&lead.ID, &lead.Phone, &lead.BusinessName, &lead.MessageCount, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("onboarding: touch lead: %w", err)
	}
	return &lead, nil
}

// SetBusinessName records the name the lead gave for their business.
func (r *Repository) SetBusinessName(ctx context.Context, phone, name string) error {
	query := `UPDATE onboarding_leads SET business_name = $2, updated_at = now() WHERE phone = $1`
	if _, err := r.db.Exec(ctx, query, phone, name); err != nil {
		return fmt.Errorf("onboarding: set business name: %w", err)
	}
	return nil
}
