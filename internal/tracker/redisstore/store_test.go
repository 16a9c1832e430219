package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalward/signalward/internal/domain"
)

func testRecord() domain.SignalExecutionData {
	return domain.SignalExecutionData{
		ID:            "sig-1",
		ProviderID:    "prov-a",
		Symbol:        "EURUSD",
		Direction:     domain.ActionBuy,
		Status:        domain.StatusClosed,
		Outcome:       domain.OutcomeWin,
		PnL:           125.5,
		ExecutionTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestStore_Upsert(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client)
	rec := testRecord()

	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectSet("signalward:exec:sig-1", payload, 0).SetVal("OK")
	mock.ExpectSAdd("signalward:provider:prov-a", "sig-1").SetVal(1)
	mock.ExpectSAdd("signalward:providers", "prov-a").SetVal(1)

	require.NoError(t, store.Upsert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListByProvider(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client)
	rec := testRecord()

	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectSMembers("signalward:provider:prov-a").SetVal([]string{"sig-1"})
	mock.ExpectGet("signalward:exec:sig-1").SetVal(string(payload))

	recs, err := store.ListByProvider(context.Background(), "prov-a")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
	assert.Equal(t, rec.Outcome, recs[0].Outcome)
	assert.InDelta(t, rec.PnL, recs[0].PnL, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListByProvider_SkipsDanglingIndexEntries(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client)

	mock.ExpectSMembers("signalward:provider:prov-a").SetVal([]string{"gone"})
	mock.ExpectGet("signalward:exec:gone").RedisNil()

	recs, err := store.ListByProvider(context.Background(), "prov-a")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStore_ResetProvider(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client)

	mock.ExpectSMembers("signalward:provider:prov-a").SetVal([]string{"sig-1", "sig-2"})
	mock.ExpectDel("signalward:exec:sig-1").SetVal(1)
	mock.ExpectDel("signalward:exec:sig-2").SetVal(1)
	mock.ExpectDel("signalward:provider:prov-a").SetVal(1)
	mock.ExpectSRem("signalward:providers", "prov-a").SetVal(1)

	require.NoError(t, store.Reset(context.Background(), "prov-a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Count(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client)

	mock.ExpectSMembers("signalward:providers").SetVal([]string{"prov-a", "prov-b"})
	mock.ExpectSCard("signalward:provider:prov-a").SetVal(3)
	mock.ExpectSCard("signalward:provider:prov-b").SetVal(2)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
