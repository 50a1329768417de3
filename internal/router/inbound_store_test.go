package router

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundStoreSeen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM inbound_messages`).
		WithArgs("SM1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewInboundStoreWithQuerier(mock)
	seen, err := store.Seen(context.Background(), "SM1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInboundStoreRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	received := time.Now().UTC()
	mock.ExpectExec("INSERT INTO inbound_messages").
		WithArgs(pgxmock.AnyArg(), "SM1", "+15551234567", "+14155550000", "customer", received).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO inbound_messages").
		WithArgs(pgxmock.AnyArg(), "SM1", "+15551234567", "+14155550000", "customer", received).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	store := NewInboundStoreWithQuerier(mock)
	inserted, err := store.Record(context.Background(), "SM1", "+15551234567", "+14155550000", "customer", received)
	require.NoError(t, err)
	assert.True(t, inserted, "first record should insert")

	inserted, err = store.Record(context.Background(), "SM1", "+15551234567", "+14155550000", "customer", received)
	require.NoError(t, err)
	assert.False(t, inserted, "redelivery should not insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}
