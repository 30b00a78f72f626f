package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
)

func snapshot(id, run string, step int, ts time.Time) *checkpoint.Snapshot {
	return &checkpoint.Snapshot{
		ID:        id,
		GraphID:   "g1",
		RunID:     run,
		NodeID:    fmt.Sprintf("n%d", step),
		Step:      step,
		Timestamp: ts,
		State: checkpoint.State{
			Phase:     "executing",
			FeeRate:   1,
			Variables: map[string]interface{}{"X": 15.0},
			Wallets:   map[string]string{"w1": "1abc"},
		},
	}
}

func TestSnapshotSaver_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotSaver(Config{})

	want := snapshot("s1", "r1", 1, time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, 15.0, got.State.Variables["X"])
	assert.Equal(t, "1abc", got.State.Wallets["w1"])

	// stored copies are independent of the caller's value
	want.State.Variables["X"] = 99.0
	again, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 15.0, again.State.Variables["X"])

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, checkpoint.ErrSnapshotNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "s1"), checkpoint.ErrSnapshotNotFound)
}

func TestSnapshotSaver_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotSaver(Config{})

	assert.ErrorIs(t, s.Save(ctx, nil), checkpoint.ErrNilSnapshot)
	assert.ErrorIs(t, s.Save(ctx, &checkpoint.Snapshot{ID: "x", GraphID: "g"}), checkpoint.ErrInvalidRunID)
	_, err := s.Load(ctx, "")
	assert.ErrorIs(t, err, checkpoint.ErrInvalidSnapshotID)
	_, err = s.List(ctx, checkpoint.Filter{Limit: -1})
	assert.ErrorIs(t, err, checkpoint.ErrInvalidLimit)
}

func TestSnapshotSaver_List(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotSaver(Config{})
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, snapshot(fmt.Sprintf("a%d", i), "ra", i, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, s.Save(ctx, snapshot("b0", "rb", 0, base)))

	all, err := s.List(ctx, checkpoint.Filter{RunID: "ra"})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a4", all[0].ID, "newest first")

	page, err := s.List(ctx, checkpoint.Filter{RunID: "ra", Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a3", page[0].ID)

	empty, err := s.List(ctx, checkpoint.Filter{RunID: "ra", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSnapshotSaver_ExpiryAndEviction(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotSaver(Config{TTL: time.Minute, MaxEntries: 2})
	clock := time.Now()
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Save(ctx, snapshot("1", "r", 1, clock)))
	clock = clock.Add(time.Second)
	require.NoError(t, s.Save(ctx, snapshot("2", "r", 2, clock)))
	clock = clock.Add(time.Second)
	require.NoError(t, s.Save(ctx, snapshot("3", "r", 3, clock)))

	assert.Equal(t, 2, s.Len())
	_, err := s.Load(ctx, "1")
	assert.ErrorIs(t, err, checkpoint.ErrSnapshotNotFound)

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 0, s.Len())
}
