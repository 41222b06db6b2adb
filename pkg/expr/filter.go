package expr

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/macropower/reap/pkg/torrent"
)

// Filter is a compiled CEL expression that selects torrents.
//
// Filter expressions must return a boolean value, for example:
//   - torrent.category == "tv"
//   - torrent.state in ["uploading", "stalledUP"] && torrent.ratio >= 1.0
//   - trackerHost(torrent.tracker).endsWith("example.org")
//   - torrent.name.glob("*.S0?E*")
//   - torrent.size > 10 * GiB
//   - now - torrent.added_on > 7 * 86400
type Filter struct {
	program cel.Program

	// Source is the expression the filter was compiled from.
	Source string
}

// Match evaluates the filter for one torrent. Field maps only hold strings,
// int64s and float64s, which CEL's default adapter converts directly.
func (f *Filter) Match(t *torrent.Torrent, status torrent.ClientStatus) (bool, error) {
	result, _, err := f.program.Eval(map[string]any{
		"torrent": t.Fields(),
		"status":  status.Fields(),
		"now":     status.TakenAt,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q for %s: %w", f.Source, t.Hash, err)
	}

	match, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate filter %q for %s: %w, got %s", f.Source, t.Hash, ErrNotBool, result.Type())
	}

	return match, nil
}

// Select returns the torrents of snap that match the filter.
func (f *Filter) Select(snap *torrent.Snapshot) (torrent.Set, error) {
	out := torrent.Set{}

	for _, t := range snap.Torrents {
		match, err := f.Match(t, snap.Status)
		if err != nil {
			return nil, err
		}

		if match {
			out.Add(t.Hash)
		}
	}

	return out, nil
}
