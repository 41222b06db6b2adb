package torrent

import (
	"strings"
	"time"
)

// Byte multiples used by the size and speed conditions.
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)

// Torrent is a single torrent as reported by a download client.
//
// Durations and timestamps use whole seconds, the way most client APIs
// report them. Speeds are in bytes per second.
type Torrent struct {
	// Hash is the info-hash that identifies the torrent.
	Hash string `json:"hash" jsonschema:"title=Info Hash"`
	// Name is the display name of the torrent.
	Name string `json:"name,omitempty"`
	// Category is the client-side category or label.
	Category string `json:"category,omitempty"`
	// Tracker is the announce host of the active tracker.
	Tracker string `json:"tracker,omitempty"`
	// State is the client-reported state, e.g. "seeding" or "paused".
	State string `json:"state,omitempty"`

	Size       int64   `json:"size,omitempty"`
	Progress   float64 `json:"progress,omitempty"` // Fraction in [0, 1].
	Ratio      float64 `json:"ratio,omitempty"`
	Uploaded   int64   `json:"uploaded,omitempty"`
	Downloaded int64   `json:"downloaded,omitempty"`

	UploadSpeed          int64 `json:"upload_speed,omitempty"`
	DownloadSpeed        int64 `json:"download_speed,omitempty"`
	AverageUploadSpeed   int64 `json:"average_upload_speed,omitempty"`
	AverageDownloadSpeed int64 `json:"average_download_speed,omitempty"`

	Seeders           int `json:"seeders,omitempty"`
	Leechers          int `json:"leechers,omitempty"`
	ConnectedSeeders  int `json:"connected_seeders,omitempty"`
	ConnectedLeechers int `json:"connected_leechers,omitempty"`

	AddedOn         int64 `json:"added_on,omitempty"`      // Unix seconds.
	LastActivity    int64 `json:"last_activity,omitempty"` // Unix seconds, 0 if unknown.
	SeedingTime     int64 `json:"seeding_time,omitempty"`
	DownloadingTime int64 `json:"downloading_time,omitempty"`
}

// NormalizeHash returns the canonical form of an info-hash.
func NormalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// Age returns how long before now the torrent was added.
func (t *Torrent) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(t.AddedOn, 0))
}

// Idle returns how long before now the torrent was last active. The second
// return value is false when the client never reported any activity.
func (t *Torrent) Idle(now time.Time) (time.Duration, bool) {
	if t.LastActivity <= 0 {
		return 0, false
	}

	return now.Sub(time.Unix(t.LastActivity, 0)), true
}

// UploadRatio returns the uploaded amount relative to the torrent size.
func (t *Torrent) UploadRatio() float64 {
	if t.Size <= 0 {
		return 0
	}

	return float64(t.Uploaded) / float64(t.Size)
}

// Fields returns the torrent attributes keyed by their serialized names. It is
// the representation exposed to filter expressions.
func (t *Torrent) Fields() map[string]any {
	return map[string]any{
		"hash":                   t.Hash,
		"name":                   t.Name,
		"category":               t.Category,
		"tracker":                t.Tracker,
		"state":                  t.State,
		"size":                   t.Size,
		"progress":               t.Progress,
		"ratio":                  t.Ratio,
		"uploaded":               t.Uploaded,
		"downloaded":             t.Downloaded,
		"upload_speed":           t.UploadSpeed,
		"download_speed":         t.DownloadSpeed,
		"average_upload_speed":   t.AverageUploadSpeed,
		"average_download_speed": t.AverageDownloadSpeed,
		"seeders":                int64(t.Seeders),
		"leechers":               int64(t.Leechers),
		"connected_seeders":      int64(t.ConnectedSeeders),
		"connected_leechers":     int64(t.ConnectedLeechers),
		"added_on":               t.AddedOn,
		"last_activity":          t.LastActivity,
		"seeding_time":           t.SeedingTime,
		"downloading_time":       t.DownloadingTime,
	}
}
