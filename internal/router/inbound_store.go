package router

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

// InboundStore is the idempotency gate. Each processed message leaves one
// row keyed by the provider's message id; the unique constraint, not the
// pre-check, is what survives concurrent redelivery.
type InboundStore struct {
	db querier
}

// NewInboundStore creates a store backed by a pgx pool.
func NewInboundStore(pool *pgxpool.Pool) *InboundStore {
	if pool == nil {
		panic("router: pgx pool required")
	}
	return &InboundStore{db: pool}
}

// WithTx returns a view of the store bound to the transaction, so the dedup
// row commits atomically with the handler's mutations.
func (s *InboundStore) WithTx(tx pgx.Tx) *InboundStore {
	return &InboundStore{db: tx}
}

// NewInboundStoreWithQuerier allows injecting mocks for tests.
func NewInboundStoreWithQuerier(q querier) *InboundStore {
	if q == nil {
		panic("router: querier required")
	}
	return &InboundStore{db: q}
}

// Seen reports whether the provider message id was already recorded. A fast
// path only; Record is the authoritative gate.
func (s *InboundStore) Seen(ctx context.Context, providerMessageID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM inbound_messages WHERE provider_message_id = $1)`
	if err := s.db.QueryRow(ctx, query, providerMessageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("router: check inbound: %w", err)
	}
	return exists, nil
}

// Record inserts the dedup row. Returns false without error when another
// delivery of the same message already holds the row.
func (s *InboundStore) Record(ctx context.Context, providerMessageID, senderPhone, recipientNumber, route string, receivedAt time.Time) (bool, error) {
	query := `
		INSERT INTO inbound_messages (id, provider_message_id, sender_phone, recipient_number, route, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_message_id) DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, uuid.NewString(), providerMessageID, senderPhone, recipientNumber, route, receivedAt)
	if err != nil {
		return false, fmt.Errorf("router: record inbound: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
