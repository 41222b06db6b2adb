package torrent

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/macropower/reap/pkg/yaml"
)

// ErrDuplicateHash is returned when a snapshot lists the same torrent twice.
var ErrDuplicateHash = errors.New("duplicate info-hash")

// ClientStatus is the client-wide state reported alongside the torrents.
type ClientStatus struct {
	// TakenAt is the Unix time the snapshot was taken. Time based conditions
	// measure against it instead of the wall clock.
	TakenAt            int64 `json:"taken_at,omitempty"`
	FreeSpace          int64 `json:"free_space,omitempty"`
	TotalUploadSpeed   int64 `json:"total_upload_speed,omitempty"`
	TotalDownloadSpeed int64 `json:"total_download_speed,omitempty"`
}

// Now returns the reference time of the status snapshot.
func (cs ClientStatus) Now() time.Time {
	return time.Unix(cs.TakenAt, 0)
}

// Fields returns the status keyed by serialized names, like [Torrent.Fields].
func (cs ClientStatus) Fields() map[string]any {
	return map[string]any{
		"taken_at":             cs.TakenAt,
		"free_space":           cs.FreeSpace,
		"total_upload_speed":   cs.TotalUploadSpeed,
		"total_download_speed": cs.TotalDownloadSpeed,
	}
}

// Snapshot is everything a download client reports for one evaluation pass.
// It must not be modified once handed to a strategy.
type Snapshot struct {
	byHash   map[string]*Torrent
	Torrents []*Torrent   `json:"torrents"`
	Status   ClientStatus `json:"status"`
}

// NewSnapshot indexes the torrents by info-hash. The snapshot holds copies
// with normalized hashes; torrents itself is not modified.
func NewSnapshot(status ClientStatus, torrents ...*Torrent) (*Snapshot, error) {
	s := &Snapshot{
		Status:   status,
		Torrents: make([]*Torrent, len(torrents)),
	}

	for i, t := range torrents {
		if t != nil {
			c := *t
			s.Torrents[i] = &c
		}
	}

	err := s.index()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// MustNewSnapshot is like [NewSnapshot] but panics on error.
func MustNewSnapshot(status ClientStatus, torrents ...*Torrent) *Snapshot {
	s, err := NewSnapshot(status, torrents...)
	if err != nil {
		panic(err)
	}

	return s
}

// DecodeSnapshot reads a YAML or JSON snapshot document. Unknown attribute
// names are rejected. A missing taken_at is filled in with the current time.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	s := &Snapshot{}

	err := yaml.NewStrictDecoder(r).Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	if s.Status.TakenAt == 0 {
		s.Status.TakenAt = time.Now().Unix()
	}

	err = s.index()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// ParseSnapshot is [DecodeSnapshot] over a byte slice.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	return DecodeSnapshot(bytes.NewReader(data))
}

// index normalizes the hashes of the snapshot's own torrents in place.
func (s *Snapshot) index() error {
	s.byHash = make(map[string]*Torrent, len(s.Torrents))
	for i, t := range s.Torrents {
		if t == nil {
			return fmt.Errorf("torrent %d: empty entry", i)
		}

		t.Hash = NormalizeHash(t.Hash)
		if t.Hash == "" {
			return fmt.Errorf("torrent %d (%q): missing hash", i, t.Name)
		}
		if _, ok := s.byHash[t.Hash]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateHash, t.Hash)
		}

		s.byHash[t.Hash] = t
	}

	return nil
}

// Get returns the torrent with the given info-hash.
func (s *Snapshot) Get(hash string) (*Torrent, bool) {
	t, ok := s.byHash[hash]
	return t, ok
}

// Len returns the number of torrents.
func (s *Snapshot) Len() int {
	return len(s.Torrents)
}

// Hashes returns the info-hashes in snapshot order.
func (s *Snapshot) Hashes() []string {
	hashes := make([]string, 0, len(s.Torrents))
	for _, t := range s.Torrents {
		hashes = append(hashes, t.Hash)
	}

	return hashes
}

// All returns the set of every torrent in the snapshot.
func (s *Snapshot) All() Set {
	return NewSet(s.Hashes()...)
}

// Select returns the set of torrents for which match returns true.
func (s *Snapshot) Select(match func(*Torrent) bool) Set {
	out := Set{}
	for _, t := range s.Torrents {
		if match(t) {
			out.Add(t.Hash)
		}
	}

	return out
}

// Subset returns a snapshot holding only the torrents in keep, in snapshot
// order. The torrents and status are shared with s.
func (s *Snapshot) Subset(keep Set) *Snapshot {
	out := &Snapshot{
		Status: s.Status,
		byHash: make(map[string]*Torrent, len(keep)),
	}

	for _, t := range s.Torrents {
		if keep.Has(t.Hash) {
			out.Torrents = append(out.Torrents, t)
			out.byHash[t.Hash] = t
		}
	}

	return out
}
