package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a catalog entity does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrNoLocations is returned when the org has no location configured.
	ErrNoLocations = errors.New("catalog: no locations configured")
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides service/location/spot persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q querier) *Repository {
	if q == nil {
		panic("catalog: querier required")
	}
	return &Repository{db: q}
}

// GetService fetches a service scoped to the org.
func (r *Repository) GetService(ctx context.Context, orgID, id string) (*Service, error) {
	query := `
		SELECT id, org_id, name, duration_minutes, price_cents, active, created_at
		FROM service_types WHERE id = $1 AND org_id = $2
	`
	var s Service
	err := r.db.QueryRow(ctx, query, id, orgID).Scan(
		&s.ID, &s.OrgID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Active, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: select service: %w", err)
	}
	return &s, nil
}

// ListActiveServices returns the bookable services for an org.
func (r *Repository) ListActiveServices(ctx context.Context, orgID string) ([]Service, error) {
	query := `
		SELECT id, org_id, name, duration_minutes, price_cents, active, created_at
		FROM service_types WHERE org_id = $1 AND active ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// GetPrimaryLocation returns the org's primary location.
func (r *Repository) GetPrimaryLocation(ctx context.Context, orgID string) (*Location, error) {
	query := `SELECT id, org_id, name, is_primary FROM locations WHERE org_id = $1 ORDER BY is_primary DESC, name LIMIT 1`
	var l Location
	if err := r.db.QueryRow(ctx, query, orgID).Scan(&l.ID, &l.OrgID, &l.Name, &l.Primary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoLocations
		}
		return nil, fmt.Errorf("catalog: select location: %w", err)
	}
	return &l, nil
}

// ListSpots returns the stations at a location.
func (r *Repository) ListSpots(ctx context.Context, orgID, locationID string) ([]Spot, error) {
	query := `SELECT id, org_id, location_id, name FROM spots WHERE org_id = $1 AND location_id = $2 ORDER BY name`
	rows, err := r.db.Query(ctx, query, orgID, locationID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list spots: %w", err)
	}
	defer rows.Close()

	var spots []Spot
	for rows.Next() {
		var s Spot
		if err := rows.Scan(&s.ID, &s.OrgID, &s.LocationID, &s.Name); err != nil {
			return nil, fmt.Errorf("catalog: scan spot: %w", err)
		}
		spots = append(spots, s)
	}
	return spots, rows.Err()
}
