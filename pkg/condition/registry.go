package condition

import (
	"context"
	"maps"
	"slices"

	"github.com/macropower/reap/pkg/torrent"
)

// Name is the name a [Condition] is registered under.
type Name string

const (
	AverageDownloadSpeed Name = "average_downloadspeed"
	AverageUploadSpeed   Name = "average_uploadspeed"
	ConnectedLeecher     Name = "connected_leecher"
	ConnectedSeeder      Name = "connected_seeder"
	CreateTime           Name = "create_time"
	Download             Name = "download"
	DownloadSpeed        Name = "download_speed"
	DownloadingTime      Name = "downloading_time"
	LastActivity         Name = "last_activity"
	Leecher              Name = "leecher"
	Progress             Name = "progress"
	Ratio                Name = "ratio"
	Seeder               Name = "seeder"
	SeedingTime          Name = "seeding_time"
	Size                 Name = "size"
	Upload               Name = "upload"
	UploadRatio          Name = "upload_ratio"
	UploadSpeed          Name = "upload_speed"

	Category Name = "category"
	State    Name = "state"
	Tracker  Name = "tracker"
	Title    Name = "name"

	// HNR is the remote hit-and-run directive. It selects a whole strategy
	// and is never registered as an expression condition.
	HNR Name = "hnr"
)

// Condition computes the torrents of a snapshot whose attribute stands in
// relation op to value.
type Condition interface {
	Apply(ctx context.Context, snap *torrent.Snapshot, op Operator, value Literal) (torrent.Set, error)
}

// ConditionFunc adapts a function to the [Condition] interface.
type ConditionFunc func(ctx context.Context, snap *torrent.Snapshot, op Operator, value Literal) (torrent.Set, error)

func (f ConditionFunc) Apply(ctx context.Context, snap *torrent.Snapshot, op Operator, value Literal) (torrent.Set, error) {
	return f(ctx, snap, op, value)
}

// Registry maps condition names to [Condition]s.
//
// A Registry is safe for concurrent lookups once construction and any calls
// to [Registry.Register] have finished.
type Registry struct {
	conditions map[Name]Condition
}

// RegistryOpt configures a [Registry].
type RegistryOpt func(*Registry)

// WithCondition registers an additional condition, replacing any default of
// the same name.
func WithCondition(name Name, c Condition) RegistryOpt {
	return func(r *Registry) {
		r.Register(name, c)
	}
}

// WithoutDefaults starts from an empty registry.
func WithoutDefaults() RegistryOpt {
	return func(r *Registry) {
		clear(r.conditions)
	}
}

// NewRegistry creates a [Registry] holding every built-in condition.
func NewRegistry(opts ...RegistryOpt) *Registry {
	r := &Registry{conditions: defaultConditions()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds or replaces a condition.
func (r *Registry) Register(name Name, c Condition) {
	r.conditions[name] = c
}

// Lookup returns the condition registered under name, or a
// [*NoSuchConditionError].
//
//nolint:ireturn // Conditions are polymorphic by design.
func (r *Registry) Lookup(name string) (Condition, error) {
	c, ok := r.conditions[Name(name)]
	if !ok {
		return nil, &NoSuchConditionError{Name: name, Reserved: Name(name) == HNR}
	}

	return c, nil
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []Name {
	return slices.Sorted(maps.Keys(r.conditions))
}
