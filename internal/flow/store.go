package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no session matches the lookup.
var ErrNotFound = errors.New("flow: session not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists flow sessions. The partial unique index on
// (conversation_id) WHERE is_active enforces the single-active invariant at
// the storage layer.
type Store struct {
	db querier
}

// NewStore creates a store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("flow: pgx pool required")
	}
	return &Store{db: pool}
}

// WithTx returns a view of the store bound to the transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

// NewStoreWithQuerier allows injecting mocks for tests.
func NewStoreWithQuerier(q querier) *Store {
	if q == nil {
		panic("flow: querier required")
	}
	return &Store{db: q}
}

const sessionColumns = `id, org_id, conversation_id, flow_type, state, collected_data, is_active, last_message_at, created_at, updated_at`

// GetActiveForConversation returns the conversation's single active session,
// locking the row when called inside a transaction.
func (s *Store) GetActiveForConversation(ctx context.Context, conversationID string) (*FlowSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM flow_sessions WHERE conversation_id = $1 AND is_active FOR UPDATE`
	return scanSession(s.db.QueryRow(ctx, query, conversationID))
}

// GetLatestForConversation returns the most recent session regardless of
// activity, used to find an abandoned session worth resuming.
func (s *Store) GetLatestForConversation(ctx context.Context, conversationID string) (*FlowSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM flow_sessions WHERE conversation_id = $1 ORDER BY last_message_at DESC, created_at DESC LIMIT 1`
	return scanSession(s.db.QueryRow(ctx, query, conversationID))
}

// Create inserts a new session. The partial unique index rejects a second
// active session for the conversation.
func (s *Store) Create(ctx context.Context, sess *FlowSession) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	data, err := json.Marshal(sess.Data())
	if err != nil {
		return fmt.Errorf("flow: encode collected data: %w", err)
	}
	query := `
		INSERT INTO flow_sessions (id, org_id, conversation_id, flow_type, state, collected_data, is_active, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRow(ctx, query,
		sess.ID, sess.OrgID, sess.ConversationID, string(sess.Type), sess.Current, data, sess.Active, sess.LastMsgAt,
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("flow: insert session: %w", err)
	}
	return nil
}

// Update writes session state back. Runs inside the per-message transaction;
// the FOR UPDATE read plus the partial unique index keep concurrent turns
// from diverging.
func (s *Store) Update(ctx context.Context, sess *FlowSession) error {
	data, err := json.Marshal(sess.Data())
	if err != nil {
		return fmt.Errorf("flow: encode collected data: %w", err)
	}
	query := `
		UPDATE flow_sessions
		SET state = $2, collected_data = $3, is_active = $4, last_message_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := s.db.QueryRow(ctx, query, sess.ID, sess.Current, data, sess.Active, sess.LastMsgAt).Scan(&sess.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("flow: update session: %w", err)
	}
	return nil
}

// SweepAbandoned pauses every active non-terminal session idle since before
// the cutoff, snapshotting each one's state for later resume. Idempotent and
// safe to run concurrently with live traffic: the is_active guard means a
// session swept by one runner is invisible to the next.
func (s *Store) SweepAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE flow_sessions
		SET collected_data = jsonb_set(collected_data, '{last_active_state}', to_jsonb(state)),
		    state = 'abandoned',
		    is_active = false,
		    updated_at = now()
		WHERE is_active
		  AND last_message_at < $1
		  AND state NOT IN ('confirmed', 'cancelled', 'submitted', 'inquiry_answered', 'abandoned')
	`
	ct, err := s.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("flow: sweep abandoned: %w", err)
	}
	return ct.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*FlowSession, error) {
	var sess FlowSession
	var flowType string
	var data []byte
	err := row.Scan(&sess.ID, &sess.OrgID, &sess.ConversationID, &flowType, &sess.Current,
		&data, &sess.Active, &sess.LastMsgAt, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("flow: select session: %w", err)
	}
	parsed, err := ParseFlowType(flowType)
	if err != nil {
		return nil, err
	}
	sess.Type = parsed
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sess.Collected); err != nil {
			return nil, fmt.Errorf("flow: decode collected data: %w", err)
		}
	}
	return &sess, nil
}
