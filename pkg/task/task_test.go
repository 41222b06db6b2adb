package task_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/reap/api/v1beta1/configs"
	"github.com/macropower/reap/pkg/condition"
	"github.com/macropower/reap/pkg/hnr"
	"github.com/macropower/reap/pkg/strategy"
	"github.com/macropower/reap/pkg/task"
	"github.com/macropower/reap/pkg/torrent"
)

type checkerFunc func(ctx context.Context, hashes []string) (map[string]bool, error)

func (f checkerFunc) CheckTorrents(ctx context.Context, hashes []string) (map[string]bool, error) {
	return f(ctx, hashes)
}

func fixture(t *testing.T) *torrent.Snapshot {
	t.Helper()

	snap, err := torrent.NewSnapshot(torrent.ClientStatus{TakenAt: 1_700_000_000},
		&torrent.Torrent{Hash: "a", Ratio: 3, Seeders: 5, Category: "movies"},
		&torrent.Torrent{Hash: "b", Ratio: 0.5, Seeders: 0, Category: "tv"},
		&torrent.Torrent{Hash: "c", Ratio: 3, Seeders: 0, Category: "tv"},
	)
	require.NoError(t, err)

	return snap
}

func mustExpression(t *testing.T, name, src string, opts ...strategy.Opt) *strategy.Strategy {
	t.Helper()

	s, err := strategy.NewExpression(name, src, opts...)
	require.NoError(t, err)

	return s
}

func TestTask_Apply(t *testing.T) {
	t.Parallel()

	snap := fixture(t)

	tk := task.New(
		mustExpression(t, "ratio", "ratio > 2"),
		mustExpression(t, "unseeded", "seeder < 1", strategy.WithDeleteData(true)),
	)
	require.Equal(t, 2, tk.Len())
	require.NoError(t, tk.Check())

	report := tk.Apply(t.Context(), snap)

	assert.Equal(t, int64(1_700_000_000), report.TakenAt)
	assert.Equal(t, []string{"a", "b", "c"}, report.Remove)
	assert.Equal(t, []string{"b", "c"}, report.DeleteData)
	assert.Zero(t, report.Failed())
	assert.False(t, report.AllFailed())

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, &task.Outcome{
		Strategy: "ratio",
		Path:     "expression",
		Remove:   []string{"a", "c"},
		Remain:   []string{"b"},
	}, report.Outcomes[0])
	assert.Equal(t, &task.Outcome{
		Strategy:   "unseeded",
		Path:       "expression",
		Remove:     []string{"b", "c"},
		Remain:     []string{"a"},
		DeleteData: true,
	}, report.Outcomes[1])
}

func TestTask_ApplySkipsFailures(t *testing.T) {
	t.Parallel()

	snap := fixture(t)
	boom := errors.New("boom")

	remote := strategy.NewRemoteOverride("hnr", checkerFunc(func(context.Context, []string) (map[string]bool, error) {
		return nil, &hnr.ConnectionError{Err: boom}
	}), strategy.WithDeleteData(true))

	tk := task.New(
		remote,
		mustExpression(t, "bogus", "bogus > 1"),
		mustExpression(t, "ratio", "ratio > 2"),
	)

	require.ErrorIs(t, tk.Check(), condition.ErrNoSuchCondition)

	report := tk.Apply(t.Context(), snap)

	assert.Equal(t, []string{"a", "c"}, report.Remove)
	assert.Equal(t, []string{}, report.DeleteData)
	assert.Equal(t, 2, report.Failed())
	assert.False(t, report.AllFailed())

	failed := report.Outcomes[0]
	require.ErrorIs(t, failed.Err, hnr.ErrConnectionFailure)
	assert.Contains(t, failed.Error, "boom")
	assert.Equal(t, []string{}, failed.Remove)
	assert.Equal(t, []string{"a", "b", "c"}, failed.Remain)

	require.ErrorIs(t, report.Outcomes[1].Err, condition.ErrNoSuchCondition)
}

func TestTask_AllFailed(t *testing.T) {
	t.Parallel()

	report := task.New(mustExpression(t, "bogus", "bogus > 1")).Apply(t.Context(), fixture(t))
	assert.True(t, report.AllFailed())
	assert.Equal(t, []string{}, report.Remove)

	empty := task.New().Apply(t.Context(), fixture(t))
	assert.False(t, empty.AllFailed())
	assert.Empty(t, empty.Outcomes)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg := configs.New()
	cfg.Strategies = []*configs.Strategy{
		{Name: "ratio", Remove: "ratio > 2"},
		{Name: "broken", Remove: "ratio >"},
		{Name: "tv", Remove: "seeder < 1", Filter: `torrent.category == "tv"`, DeleteData: true},
	}

	tk, err := task.FromConfig(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 3, tk.Len())
	require.ErrorIs(t, tk.Check(), condition.ErrSyntax)

	report := tk.Apply(t.Context(), fixture(t))
	assert.Equal(t, []string{"a", "b", "c"}, report.Remove)
	assert.Equal(t, []string{"b", "c"}, report.DeleteData)
	assert.Equal(t, 1, report.Failed())
	require.ErrorIs(t, report.Outcomes[1].Err, condition.ErrSyntax)
	assert.Equal(t, []string{"a", "b", "c"}, report.Outcomes[1].Remain)

	t.Run("selected names", func(t *testing.T) {
		t.Parallel()

		tk, err := task.FromConfig(cfg, []string{"tv", "ratio"})
		require.NoError(t, err)
		require.Equal(t, 2, tk.Len())
		require.NoError(t, tk.Check())

		report := tk.Apply(t.Context(), fixture(t))
		require.Len(t, report.Outcomes, 2)
		assert.Equal(t, "ratio", report.Outcomes[0].Strategy, "configuration order")
		assert.Equal(t, "tv", report.Outcomes[1].Strategy)
	})

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()

		_, err := task.FromConfig(cfg, []string{"missing"})
		require.ErrorContains(t, err, `unknown strategy "missing"`)
	})
}
