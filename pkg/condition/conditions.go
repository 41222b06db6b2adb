package condition

import (
	"context"

	"github.com/macropower/reap/pkg/torrent"
)

// Numeric compares a numeric torrent attribute with the literal.
type Numeric struct {
	// Value extracts the attribute. Torrents for which it returns false never
	// match.
	Value func(t *torrent.Torrent, status torrent.ClientStatus) (float64, bool)
}

func (c Numeric) Apply(_ context.Context, snap *torrent.Snapshot, op Operator, value Literal) (torrent.Set, error) {
	want, err := value.Float()
	if err != nil {
		return nil, err
	}

	return snap.Select(func(t *torrent.Torrent) bool {
		got, ok := c.Value(t, snap.Status)
		return ok && op.CompareFloat(got, want)
	}), nil
}

// Lexical compares a string torrent attribute with the literal text.
type Lexical struct {
	Value func(t *torrent.Torrent) string
}

func (c Lexical) Apply(_ context.Context, snap *torrent.Snapshot, op Operator, value Literal) (torrent.Set, error) {
	return snap.Select(func(t *torrent.Torrent) bool {
		return op.CompareString(c.Value(t), value.Text)
	}), nil
}

func numeric(f func(t *torrent.Torrent) float64) Numeric {
	return Numeric{Value: func(t *torrent.Torrent, _ torrent.ClientStatus) (float64, bool) {
		return f(t), true
	}}
}

func defaultConditions() map[Name]Condition {
	return map[Name]Condition{
		// Speeds in KiB/s.
		AverageDownloadSpeed: numeric(func(t *torrent.Torrent) float64 {
			return float64(t.AverageDownloadSpeed) / torrent.KiB
		}),
		AverageUploadSpeed: numeric(func(t *torrent.Torrent) float64 {
			return float64(t.AverageUploadSpeed) / torrent.KiB
		}),
		DownloadSpeed: numeric(func(t *torrent.Torrent) float64 {
			return float64(t.DownloadSpeed) / torrent.KiB
		}),
		UploadSpeed: numeric(func(t *torrent.Torrent) float64 {
			return float64(t.UploadSpeed) / torrent.KiB
		}),

		// Amounts in GiB.
		Size: numeric(func(t *torrent.Torrent) float64 {
			return float64(t.Size) / torrent.GiB
		}),
		Download: numeric(func(t *torrent.Torrent) float64 {
			return float64(t.Downloaded) / torrent.GiB
		}),
		Upload: numeric(func(t *torrent.Torrent) float64 {
			return float64(t.Uploaded) / torrent.GiB
		}),

		Ratio:       numeric(func(t *torrent.Torrent) float64 { return t.Ratio }),
		UploadRatio: numeric(func(t *torrent.Torrent) float64 { return t.UploadRatio() }),
		Progress:    numeric(func(t *torrent.Torrent) float64 { return t.Progress * 100 }),

		Seeder:           numeric(func(t *torrent.Torrent) float64 { return float64(t.Seeders) }),
		Leecher:          numeric(func(t *torrent.Torrent) float64 { return float64(t.Leechers) }),
		ConnectedSeeder:  numeric(func(t *torrent.Torrent) float64 { return float64(t.ConnectedSeeders) }),
		ConnectedLeecher: numeric(func(t *torrent.Torrent) float64 { return float64(t.ConnectedLeechers) }),

		// Durations in seconds.
		SeedingTime:     numeric(func(t *torrent.Torrent) float64 { return float64(t.SeedingTime) }),
		DownloadingTime: numeric(func(t *torrent.Torrent) float64 { return float64(t.DownloadingTime) }),
		CreateTime: Numeric{Value: func(t *torrent.Torrent, status torrent.ClientStatus) (float64, bool) {
			return t.Age(status.Now()).Seconds(), true
		}},
		LastActivity: Numeric{Value: func(t *torrent.Torrent, status torrent.ClientStatus) (float64, bool) {
			idle, ok := t.Idle(status.Now())
			return idle.Seconds(), ok
		}},

		Title:    Lexical{Value: func(t *torrent.Torrent) string { return t.Name }},
		Category: Lexical{Value: func(t *torrent.Torrent) string { return t.Category }},
		State:    Lexical{Value: func(t *torrent.Torrent) string { return t.State }},
		Tracker:  Lexical{Value: func(t *torrent.Torrent) string { return t.Tracker }},
	}
}
