package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no conversation matches the lookup.
var ErrNotFound = errors.New("conversation: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversations.
type Store struct {
	db querier
}

// NewStore creates a store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return &Store{db: pool}
}

// NewStoreWithQuerier allows injecting mocks for tests.
func NewStoreWithQuerier(q querier) *Store {
	if q == nil {
		panic("conversation: querier required")
	}
	return &Store{db: q}
}

// WithTx returns a view of the store bound to the transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const conversationColumns = `id, org_id, customer_id, status, context, created_at, updated_at`

// GetOrCreateActive returns the single active conversation for the
// (org, customer) pair, creating it on first contact. The partial unique
// index makes concurrent first messages converge on one row.
func (s *Store) GetOrCreateActive(ctx context.Context, orgID, customerID string) (*Conversation, error) {
	query := `
		INSERT INTO conversations (id, org_id, customer_id, status, context)
		VALUES ($1, $2, $3, 'active', '{}')
		ON CONFLICT (org_id, customer_id) WHERE status = 'active' DO UPDATE
		SET updated_at = now()
		RETURNING ` + conversationColumns
	return scanConversation(s.db.QueryRow(ctx, query, uuid.NewString(), orgID, customerID))
}

// UpdateContext writes the free-form context blob back.
func (s *Store) UpdateContext(ctx context.Context, conv *Conversation) error {
	data, err := json.Marshal(conv.Context)
	if err != nil {
		return fmt.Errorf("conversation: encode context: %w", err)
	}
	query := `UPDATE conversations SET context = $2, updated_at = now() WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, conv.ID, data)
	if err != nil {
		return fmt.Errorf("conversation: update context: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close ends the thread, freeing the (org, customer) active slot.
func (s *Store) Close(ctx context.Context, id string) error {
	query := `UPDATE conversations SET status = 'closed', updated_at = now() WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("conversation: close: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	var status string
	var data []byte
	if err := row.Scan(&c.ID, &c.OrgID, &c.CustomerID, &status, &data, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("conversation: select: %w", err)
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	c.Status = parsed
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.Context); err != nil {
			return nil, fmt.Errorf("conversation: decode context: %w", err)
		}
	}
	return &c, nil
}
