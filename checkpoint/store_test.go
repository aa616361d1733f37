package checkpoint

import (
	"testing"
	"time"

	"github.com/evotree/symreg/evolution"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *evolution.Engine {
	t.Helper()
	X := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10}, {11}}
	y := []float64{0, 1, 4, 9, 16, 25, 36, 49, 64, 81, 100, 121}
	cfg := evolution.DefaultConfig()
	cfg.PopulationSize = 15
	eng, err := evolution.New(X, y, cfg)
	require.NoError(t, err)
	eng.Evolve(3, nil)
	return eng
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	eng := testEngine(t)
	snap := eng.Capture()

	id := ID("sess-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	meta := Metadata{
		SessionID:  "sess-1",
		Name:       "before-restart",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Generation: snap.Generation,
		Config:     snap.Config,
		DataInfo:   DataInfo{NFeatures: snap.NFeatures, NTrain: len(eng.Data.YTrain), NTest: len(eng.Data.YTest)},
	}
	require.NoError(t, store.Save(id, snap, meta))

	gotSnap, gotMeta, err := store.Load(id)
	require.NoError(t, err)
	require.Equal(t, snap.Generation, gotSnap.Generation)
	require.Equal(t, len(snap.Population), len(gotSnap.Population))
	require.Equal(t, "sess-1", gotMeta.SessionID)
	require.Equal(t, "before-restart", gotMeta.Name)
	require.Greater(t, gotMeta.FileSizeBytes, int64(0))
}

func TestLoadMissingCheckpointErrors(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Load("does-not-exist")
	require.Error(t, err)
}

func TestListFiltersBySessionAndSortsNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	eng := testEngine(t)
	snap := eng.Capture()

	times := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	for i, tm := range times {
		sess := "a"
		if i == 1 {
			sess = "b"
		}
		id := ID(sess, tm)
		require.NoError(t, store.Save(id, snap, Metadata{SessionID: sess, CreatedAt: tm}))
	}

	all, err := store.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	require.True(t, all[1].CreatedAt.After(all[2].CreatedAt))

	onlyA, err := store.List("a")
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	for _, m := range onlyA {
		require.Equal(t, "a", m.SessionID)
	}
}

func TestDeleteRemovesBothFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	eng := testEngine(t)
	snap := eng.Capture()

	id := ID("sess-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(id, snap, Metadata{SessionID: "sess-1"}))

	require.NoError(t, store.Delete(id))
	_, _, err = store.Load(id)
	require.Error(t, err)

	require.NoError(t, store.Delete("never-existed"))
}

func TestCleanupKeepsNewestPerSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	eng := testEngine(t)
	snap := eng.Capture()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tm := base.Add(time.Duration(i) * time.Hour)
		id := ID("sess-1", tm)
		require.NoError(t, store.Save(id, snap, Metadata{SessionID: "sess-1", CreatedAt: tm}))
	}

	require.NoError(t, store.Cleanup(2))

	remaining, err := store.List("sess-1")
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	require.Equal(t, base.Add(4*time.Hour), remaining[0].CreatedAt)
	require.Equal(t, base.Add(3*time.Hour), remaining[1].CreatedAt)
}
