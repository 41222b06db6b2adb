package hnr

import (
	"context"

	"github.com/macropower/reap/pkg/torrent"
)

// Checker reports per info-hash whether the HNR obligation is satisfied.
// [*Client] implements it.
type Checker interface {
	CheckTorrents(ctx context.Context, hashes []string) (map[string]bool, error)
}

// Condition partitions a whole snapshot by remote HNR status. Unlike
// expression conditions it cannot be combined with `and` or `or`.
type Condition struct {
	checker Checker
}

// NewCondition creates a new [Condition].
func NewCondition(checker Checker) *Condition {
	return &Condition{checker: checker}
}

// Apply places a torrent in remove iff its obligation is reported satisfied.
// Torrents the API has no record for remain. On error, remove is empty and
// remain holds every torrent of the snapshot.
func (c *Condition) Apply(ctx context.Context, snap *torrent.Snapshot) (torrent.Set, torrent.Set, error) {
	all := snap.All()

	status, err := c.checker.CheckTorrents(ctx, snap.Hashes())
	if err != nil {
		return torrent.Set{}, all, err
	}

	remove := snap.Select(func(t *torrent.Torrent) bool {
		return status[t.Hash]
	})

	return remove, all.Difference(remove), nil
}
