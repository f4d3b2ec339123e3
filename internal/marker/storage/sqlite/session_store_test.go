package sqlite

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/marker.anchor/internal/db"
)

func testStore(t *testing.T) *SessionStore {
	t.Helper()
	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.EnsureSchema())
	return NewSessionStore(database.DB)
}

func TestCreateAndGetSession(t *testing.T) {
	store := testStore(t)

	sess := &Session{Dictionary: "DICT_4X4_50", FrameWidth: 640, FrameHeight: 480}
	require.NoError(t, store.CreateSession(sess))
	assert.NotEmpty(t, sess.SessionID)
	assert.NotZero(t, sess.StartedAt)

	got, err := store.GetSession(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sess.SessionID, got.SessionID)
	assert.Equal(t, "DICT_4X4_50", got.Dictionary)
	assert.Equal(t, 640, got.FrameWidth)
	assert.Equal(t, 480, got.FrameHeight)
	assert.Nil(t, got.FinishedAt)
	assert.Empty(t, got.SummaryJSON)
}

func TestUpdateFrameSize(t *testing.T) {
	store := testStore(t)

	sess := &Session{Dictionary: "DICT_4X4_50"}
	require.NoError(t, store.CreateSession(sess))
	require.NoError(t, store.UpdateFrameSize(sess.SessionID, 1280, 720))

	got, err := store.GetSession(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1280, got.FrameWidth)
	assert.Equal(t, 720, got.FrameHeight)
}

func TestFinishSession(t *testing.T) {
	store := testStore(t)

	sess := &Session{Dictionary: "DICT_4X4_50"}
	require.NoError(t, store.CreateSession(sess))

	summary := json.RawMessage(`{"total_ticks": 42}`)
	require.NoError(t, store.FinishSession(sess.SessionID, summary))

	got, err := store.GetSession(sess.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.Greater(t, *got.FinishedAt, sess.StartedAt)
	assert.JSONEq(t, `{"total_ticks": 42}`, string(got.SummaryJSON))
}

func TestRecordAndListTicks(t *testing.T) {
	store := testStore(t)

	sess := &Session{Dictionary: "DICT_4X4_50"}
	require.NoError(t, store.CreateSession(sess))

	for tick := uint64(3); tick <= 9; tick += 3 {
		require.NoError(t, store.RecordTick(&TickStat{
			SessionID:   sess.SessionID,
			Tick:        tick,
			MarkerCount: 1,
			AnchorCount: 1,
			PoseCount:   1,
		}))
	}

	stats, err := store.TicksForSession(sess.SessionID)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, uint64(3), stats[0].Tick)
	assert.Equal(t, uint64(9), stats[2].Tick)
	for _, s := range stats {
		assert.NotZero(t, s.RecordedAt)
	}
}

func TestLatestSession(t *testing.T) {
	store := testStore(t)

	latest, err := store.LatestSession()
	require.NoError(t, err)
	assert.Nil(t, latest)

	old := &Session{Dictionary: "DICT_4X4_50", StartedAt: 100}
	require.NoError(t, store.CreateSession(old))
	recent := &Session{Dictionary: "DICT_4X4_50", StartedAt: 200}
	require.NoError(t, store.CreateSession(recent))

	latest, err = store.LatestSession()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, recent.SessionID, latest.SessionID)
}

func TestListSessions(t *testing.T) {
	store := testStore(t)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.CreateSession(&Session{Dictionary: "DICT_4X4_50", StartedAt: i * 100}))
	}

	sessions, err := store.ListSessions(3)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, int64(500), sessions[0].StartedAt)
	assert.Equal(t, int64(300), sessions[2].StartedAt)
}

func TestGetSession_Missing(t *testing.T) {
	store := testStore(t)
	_, err := store.GetSession("nope")
	assert.Error(t, err)
}

func TestRetryOnBusy(t *testing.T) {
	attempts := 0
	err := retryOnBusy(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryOnBusy_NonBusyFailsFast(t *testing.T) {
	attempts := 0
	err := retryOnBusy(func() error {
		attempts++
		return errors.New("constraint failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryOnBusy_GivesUp(t *testing.T) {
	attempts := 0
	err := retryOnBusy(func() error {
		attempts++
		return errors.New("database is locked")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}
