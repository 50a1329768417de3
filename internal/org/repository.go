package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no organization matches the lookup.
var ErrNotFound = errors.New("org: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides organization persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("org: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q querier) *Repository {
	if q == nil {
		panic("org: querier required")
	}
	return &Repository{db: q}
}

const orgColumns = `id, name, status, whatsapp_number, timezone, created_at`

// GetByNumber resolves the tenant owning a dedicated WhatsApp number.
func (r *Repository) GetByNumber(ctx context.Context, e164 string) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE whatsapp_number = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, e164))
}

// GetByID fetches an organization by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) scanOne(row pgx.Row) (*Organization, error) {
	var o Organization
	var status string
	if err := row.Scan(&o.ID, &o.Name, &status, &o.WhatsAppNumber, &o.Timezone, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("org: select: %w", err)
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	o.Status = parsed
	return &o, nil
}
