package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no customer matches the lookup.
var ErrNotFound = errors.New("customer: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides end-customer persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("customer: pgx pool required")
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
		panic("customer: querier required")
	}
	return &Repository{db: q}
}

const customerColumns = `id, org_id, phone, name, notes, created_at`

// GetOrCreateByPhone resolves the customer for (org, phone), creating the row
// on first contact. The (org_id, phone) unique constraint makes this safe
// under concurrent first messages; the no-op DO UPDATE lets RETURNING yield
// the surviving row either way.
func (r *Repository) GetOrCreateByPhone(ctx context.Context, orgID, phone, displayName string) (*Customer, error) {
	var name *string
	if trimmed := strings.TrimSpace(displayName); trimmed != "" {
		name = &trimmed
	}
	query := `
		INSERT INTO end_customers (id, org_id, phone, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, phone) DO UPDATE
		SET name = COALESCE(end_customers.name, EXCLUDED.name)
		RETURNING ` + customerColumns
	row := r.db.QueryRow(ctx, query, uuid.NewString(), orgID, phone, name)
	return scanCustomer(row)
}

// GetByID fetches a customer scoped to the org.
func (r *Repository) GetByID(ctx context.Context, orgID, id string) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM end_customers WHERE id = $1 AND org_id = $2`
	return scanCustomer(r.db.QueryRow(ctx, query, id, orgID))
}

// UpdateName enriches the profile once the customer tells us who they are.
func (r *Repository) UpdateName(ctx context.Context, orgID, id, name string) error {
	query := `UPDATE end_customers SET name = $3 WHERE id = $1 AND org_id = $2`
	ct, err := r.db.Exec(ctx, query, id, orgID, name)
	if err != nil {
		return fmt.Errorf("customer: update name: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.OrgID, &c.Phone, &c.Name, &c.Notes, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("customer: select: %w", err)
	}
	return &c, nil
}
