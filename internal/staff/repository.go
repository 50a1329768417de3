package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no staff member matches the lookup.
var ErrNotFound = errors.New("staff: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides staff persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("staff: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q querier) *Repository {
	if q == nil {
		panic("staff: querier required")
	}
	return &Repository{db: q}
}

const memberColumns = `id, org_id, name, phone, permission, active, created_at`

// FindActiveByPhone looks up an active member inside one org. Phones are
// unique per org.
func (r *Repository) FindActiveByPhone(ctx context.Context, orgID, phone string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM staff_members WHERE org_id = $1 AND phone = $2 AND active`
	return scanMember(r.db.QueryRow(ctx, query, orgID, phone))
}

// FindActiveByPhoneGlobal looks up an active member across all orgs. Used for
// messages arriving on the central number, where the tenant is unknown;
// assumes staff phones are globally unique in practice.
func (r *Repository) FindActiveByPhoneGlobal(ctx context.Context, phone string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM staff_members WHERE phone = $1 AND active ORDER BY created_at LIMIT 1`
	return scanMember(r.db.QueryRow(ctx, query, phone))
}

// GetByID fetches a member by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM staff_members WHERE id = $1`
	return scanMember(r.db.QueryRow(ctx, query, id))
}

// ListCapableOfService returns active members who can perform the service,
// ordered by name for stable slot output.
func (r *Repository) ListCapableOfService(ctx context.Context, orgID, serviceID string) ([]Member, error) {
	query := `
		SELECT m.id, m.org_id, m.name, m.phone, m.permission, m.active, m.created_at
		FROM staff_members m
		JOIN staff_services ss ON ss.staff_id = m.id
		WHERE m.org_id = $1 AND ss.service_id = $2 AND m.active
		ORDER BY m.name
	`
	rows, err := r.db.Query(ctx, query, orgID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("staff: list capable: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.OrgID, &m.Name, &m.Phone, &m.Permission, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("staff: scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	if err := row.Scan(&m.ID, &m.OrgID, &m.Name, &m.Phone, &m.Permission, &m.Active, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("staff: select: %w", err)
	}
	return &m, nil
}
