package flow

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRows(sess *FlowSession, data []byte) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "org_id", "conversation_id", "flow_type", "state",
		"collected_data", "is_active", "last_message_at", "created_at", "updated_at",
	}).AddRow(
		sess.ID, sess.OrgID, sess.ConversationID, string(sess.Type), sess.Current,
		data, sess.Active, sess.LastMsgAt, sess.CreatedAt, sess.UpdatedAt,
	)
}

func TestStoreGetActiveForConversation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	want := &FlowSession{
		ID: "sess-1", OrgID: "org-1", ConversationID: "conv-1",
		Type: FlowBooking, Current: StateCollectingDatetime,
		Active: true, LastMsgAt: now, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery("SELECT (.+) FROM flow_sessions WHERE conversation_id").
		WithArgs("conv-1").
		WillReturnRows(sessionRows(want, []byte(`{"service_id":"svc-1"}`)))

	store := NewStoreWithQuerier(mock)
	got, err := store.GetActiveForConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, FlowBooking, got.Type)
	assert.Equal(t, StateCollectingDatetime, got.Current)
	assert.Equal(t, "svc-1", got.Collected["service_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetActiveNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM flow_sessions WHERE conversation_id").
		WithArgs("conv-missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	store := NewStoreWithQuerier(mock)
	_, err = store.GetActiveForConversation(context.Background(), "conv-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	sess := &FlowSession{
		OrgID: "org-1", ConversationID: "conv-1",
		Type: FlowBooking, Current: StateInitiated,
		Active: true, LastMsgAt: now,
	}
	mock.ExpectQuery("INSERT INTO flow_sessions").
		WithArgs(pgxmock.AnyArg(), "org-1", "conv-1", "booking", StateInitiated, pgxmock.AnyArg(), true, now).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	store := NewStoreWithQuerier(mock)
	require.NoError(t, store.Create(context.Background(), sess))
	assert.NotEmpty(t, sess.ID, "create should assign an id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	sess := &FlowSession{
		ID: "sess-1", Type: FlowBooking, Current: StateConfirmed,
		Active: false, LastMsgAt: now,
	}
	mock.ExpectQuery("UPDATE flow_sessions").
		WithArgs("sess-1", StateConfirmed, pgxmock.AnyArg(), false, now).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))

	store := NewStoreWithQuerier(mock)
	require.NoError(t, store.Update(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSweepAbandoned(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Now().UTC().Add(-30 * time.Minute)
	mock.ExpectExec("UPDATE flow_sessions").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	store := NewStoreWithQuerier(mock)
	swept, err := store.SweepAbandoned(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), swept)
	assert.NoError(t, mock.ExpectationsWereMet())
}
