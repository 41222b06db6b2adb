package hnr_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/reap/pkg/hnr"
	"github.com/macropower/reap/pkg/torrent"
)

func snapshot(t *testing.T, hashes ...string) *torrent.Snapshot {
	t.Helper()

	ts := make([]*torrent.Torrent, 0, len(hashes))
	for _, h := range hashes {
		ts = append(ts, &torrent.Torrent{Hash: h})
	}

	snap, err := torrent.NewSnapshot(torrent.ClientStatus{TakenAt: 1_700_000_000}, ts...)
	require.NoError(t, err)

	return snap
}

func TestCondition_Apply(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{codes: map[string]int{"a": 20, "b": 5}}
	srv := newServer(t, api)

	cond := hnr.NewCondition(hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client())))

	remove, remain, err := cond.Apply(t.Context(), snapshot(t, "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, remove.Sorted())
	assert.Equal(t, []string{"b", "c"}, remain.Sorted())
}

func TestCondition_ApplyFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		codes: map[string]int{"a": 20, "b": 20, "c": 20},
		fail:  map[int]int{1: http.StatusInternalServerError},
	}
	srv := newServer(t, api)

	cond := hnr.NewCondition(hnr.NewClient(srv.URL, "secret",
		hnr.WithHTTPClient(srv.Client()),
		hnr.WithBatchSize(2),
	))

	remove, remain, err := cond.Apply(t.Context(), snapshot(t, "a", "b", "c"))
	require.ErrorIs(t, err, hnr.ErrConnectionFailure)
	assert.Empty(t, remove)
	assert.Equal(t, []string{"a", "b", "c"}, remain.Sorted())
}

type checkerFunc func(ctx context.Context, hashes []string) (map[string]bool, error)

func (f checkerFunc) CheckTorrents(ctx context.Context, hashes []string) (map[string]bool, error) {
	return f(ctx, hashes)
}

func TestCondition_Partition(t *testing.T) {
	t.Parallel()

	snap := snapshot(t, "a", "b", "c", "d")

	cond := hnr.NewCondition(checkerFunc(func(_ context.Context, hashes []string) (map[string]bool, error) {
		assert.Equal(t, []string{"a", "b", "c", "d"}, hashes)

		// Records for unknown torrents are ignored.
		return map[string]bool{"a": true, "c": false, "zz": true}, nil
	}))

	remove, remain, err := cond.Apply(t.Context(), snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, remove.Sorted())
	assert.Equal(t, []string{"b", "c", "d"}, remain.Sorted())
	assert.Empty(t, remove.Intersect(remain))
	assert.True(t, remove.Union(remain).Equal(snap.All()))
}
