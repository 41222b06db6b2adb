package condition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/reap/pkg/condition"
	"github.com/macropower/reap/pkg/torrent"
)

func TestRegistry_Units(t *testing.T) {
	t.Parallel()

	tr := &torrent.Torrent{
		Hash:                 "x",
		Size:                 2 * torrent.GiB,
		Downloaded:           3 * torrent.GiB,
		Uploaded:             4 * torrent.GiB,
		UploadSpeed:          512 * torrent.KiB,
		DownloadSpeed:        256 * torrent.KiB,
		AverageUploadSpeed:   128 * torrent.KiB,
		AverageDownloadSpeed: 64 * torrent.KiB,
		Progress:             0.25,
		Ratio:                1.5,
		Seeders:              7,
		Leechers:             8,
		ConnectedSeeders:     2,
		ConnectedLeechers:    3,
		SeedingTime:          3600,
		DownloadingTime:      600,
		AddedOn:              takenAt - 86400,
		LastActivity:         takenAt - 120,
		Name:                 "Some.Show",
		Category:             "tv",
		State:                "seeding",
		Tracker:              "tracker.example.org",
	}

	snap := torrent.MustNewSnapshot(torrent.ClientStatus{TakenAt: takenAt}, tr)
	reg := condition.NewRegistry()

	tcs := map[condition.Name]condition.Literal{
		condition.Size:                 condition.NumberLiteral(2),
		condition.Download:             condition.NumberLiteral(3),
		condition.Upload:               condition.NumberLiteral(4),
		condition.UploadSpeed:          condition.NumberLiteral(512),
		condition.DownloadSpeed:        condition.NumberLiteral(256),
		condition.AverageUploadSpeed:   condition.NumberLiteral(128),
		condition.AverageDownloadSpeed: condition.NumberLiteral(64),
		condition.Progress:             condition.NumberLiteral(25),
		condition.Ratio:                condition.NumberLiteral(1.5),
		condition.UploadRatio:          condition.NumberLiteral(2),
		condition.Seeder:               condition.NumberLiteral(7),
		condition.Leecher:              condition.NumberLiteral(8),
		condition.ConnectedSeeder:      condition.NumberLiteral(2),
		condition.ConnectedLeecher:     condition.NumberLiteral(3),
		condition.SeedingTime:          condition.NumberLiteral(3600),
		condition.DownloadingTime:      condition.NumberLiteral(600),
		condition.CreateTime:           condition.NumberLiteral(86400),
		condition.LastActivity:         condition.NumberLiteral(120),
		condition.Title:                condition.StringLiteral("Some.Show"),
		condition.Category:             condition.StringLiteral("tv"),
		condition.State:                condition.StringLiteral("seeding"),
		condition.Tracker:              condition.StringLiteral("tracker.example.org"),
	}

	for name, value := range tcs {
		t.Run(string(name), func(t *testing.T) {
			t.Parallel()

			c, err := reg.Lookup(string(name))
			require.NoError(t, err)

			eq, err := c.Apply(t.Context(), snap, condition.EQ, value)
			require.NoError(t, err)
			assert.True(t, eq.Has("x"), "%s = %s", name, value)

			lt, err := c.Apply(t.Context(), snap, condition.LT, value)
			require.NoError(t, err)
			assert.False(t, lt.Has("x"), "%s < %s", name, value)

			gt, err := c.Apply(t.Context(), snap, condition.GT, value)
			require.NoError(t, err)
			assert.False(t, gt.Has("x"), "%s > %s", name, value)
		})
	}

	assert.Len(t, reg.Names(), len(tcs))
}

func TestRegistry_LastActivityUnknown(t *testing.T) {
	t.Parallel()

	snap := torrent.MustNewSnapshot(torrent.ClientStatus{TakenAt: takenAt},
		&torrent.Torrent{Hash: "never"},
		&torrent.Torrent{Hash: "idle", LastActivity: takenAt - 10_000},
	)

	got, err := evaluate(t, "last_activity > 60", snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"idle"}, got.Sorted())

	got, err = evaluate(t, "last_activity < 1000000", snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"idle"}, got.Sorted())
}

func TestRegistry_Options(t *testing.T) {
	t.Parallel()

	always := condition.ConditionFunc(
		func(_ context.Context, snap *torrent.Snapshot, _ condition.Operator, _ condition.Literal) (torrent.Set, error) {
			return snap.All(), nil
		},
	)

	reg := condition.NewRegistry(condition.WithoutDefaults(), condition.WithCondition("always", always))
	assert.Equal(t, []condition.Name{"always"}, reg.Names())

	_, err := reg.Lookup("ratio")
	require.ErrorIs(t, err, condition.ErrNoSuchCondition)

	reg = condition.NewRegistry(condition.WithCondition(condition.Ratio, always))

	c, err := reg.Lookup("ratio")
	require.NoError(t, err)

	got, err := c.Apply(t.Context(), torrent.MustNewSnapshot(torrent.ClientStatus{}, &torrent.Torrent{Hash: "a"}),
		condition.GT, condition.NumberLiteral(100))
	require.NoError(t, err)
	assert.True(t, got.Has("a"))
}

func TestRegistry_HNRIsNeverRegistered(t *testing.T) {
	t.Parallel()

	reg := condition.NewRegistry()
	assert.NotContains(t, reg.Names(), condition.HNR)

	_, err := reg.Lookup("hnr")

	var ncErr *condition.NoSuchConditionError
	require.ErrorAs(t, err, &ncErr)
	assert.True(t, ncErr.Reserved)
}
