// Package task applies every configured strategy to one snapshot and merges
// their decisions.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/reap/api/v1beta1/configs"
	"github.com/macropower/reap/pkg/expr"
	"github.com/macropower/reap/pkg/log"
	"github.com/macropower/reap/pkg/strategy"
	"github.com/macropower/reap/pkg/torrent"
)

var tracer = otel.Tracer("github.com/macropower/reap/pkg/task")

// Outcome is the result of one strategy.
type Outcome struct {
	// Err is set when the strategy failed. It then removes nothing.
	Err        error    `json:"-"`
	Strategy   string   `json:"strategy"`
	Path       string   `json:"path,omitempty"`
	Error      string   `json:"error,omitempty"`
	Remove     []string `json:"remove"`
	Remain     []string `json:"remain"`
	DeleteData bool     `json:"delete_data,omitempty"`
}

// Report merges the outcomes of a [Task].
type Report struct {
	Outcomes []*Outcome `json:"strategies"`
	// Remove is the union of the remove sets of all successful strategies.
	Remove []string `json:"remove"`
	// DeleteData lists the torrents of Remove whose data should be deleted
	// too, because a strategy with delete_data selected them.
	DeleteData []string `json:"delete_data"`
	TakenAt    int64    `json:"taken_at"`
}

// Failed returns the number of failed strategies.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}

	return n
}

// AllFailed reports whether there was at least one strategy and all of them
// failed.
func (r *Report) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Failed() == len(r.Outcomes)
}

type entry struct {
	strategy *strategy.Strategy
	err      error
	name     string
}

// Task is an ordered list of strategies.
type Task struct {
	entries []entry
}

// New creates a [Task] from strategies.
func New(strategies ...*strategy.Strategy) *Task {
	t := &Task{}
	for _, s := range strategies {
		t.entries = append(t.entries, entry{name: s.Name, strategy: s})
	}

	return t
}

// FromConfig builds the strategies of cfg. When names is not empty only
// those strategies are used, in configuration order; an unknown name is an
// error. A strategy that cannot be built is kept as a failure, so that
// [Task.Apply] reports it without affecting the others.
func FromConfig(cfg *configs.Config, names []string, opts ...strategy.Opt) (*Task, error) {
	for _, name := range names {
		if cfg.Strategy(name) == nil {
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
	}

	env, err := expr.NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create filter environment: %w", err)
	}

	t := &Task{}

	for _, sc := range cfg.Strategies {
		if len(names) > 0 && !slices.Contains(names, sc.Name) {
			continue
		}

		s, err := strategy.FromConfig(sc, env, opts...)
		t.entries = append(t.entries, entry{name: sc.Name, strategy: s, err: err})
	}

	return t, nil
}

// Len returns the number of strategies.
func (t *Task) Len() int {
	return len(t.entries)
}

// Check returns the first construction error or unknown condition name.
func (t *Task) Check() error {
	for _, e := range t.entries {
		if e.err != nil {
			return e.err
		}

		err := e.strategy.Check()
		if err != nil {
			return err //nolint:wrapcheck // Names the strategy.
		}
	}

	return nil
}

// Apply runs every strategy against snap, in order. Failures are logged and
// recorded in the [Report]; they never stop the remaining strategies.
func (t *Task) Apply(ctx context.Context, snap *torrent.Snapshot) *Report {
	ctx, span := tracer.Start(ctx, "task.Apply", trace.WithAttributes(
		attribute.Int("strategies", len(t.entries)),
		attribute.Int("torrents", snap.Len()),
	))
	defer span.End()

	logger := log.WithContext(ctx)

	report := &Report{TakenAt: snap.Status.TakenAt}
	remove := torrent.Set{}
	deleteData := torrent.Set{}

	for _, e := range t.entries {
		out := &Outcome{Strategy: e.name}
		report.Outcomes = append(report.Outcomes, out)

		if e.err != nil {
			out.Err = e.err
			out.Error = e.err.Error()
			out.Remain = list(snap.All())

			logger.ErrorContext(ctx, "skip strategy",
				slog.String("strategy", e.name),
				slog.Any("error", e.err),
			)

			continue
		}

		out.Path = e.strategy.Kind.String()
		out.DeleteData = e.strategy.DeleteData

		res, err := e.strategy.Apply(ctx, snap)
		out.Remove = list(res.Remove)
		out.Remain = list(res.Remain)

		if err != nil {
			out.Err = err
			out.Error = err.Error()

			logger.ErrorContext(ctx, "strategy failed",
				slog.String("strategy", e.name),
				slog.Any("error", err),
			)

			continue
		}

		logger.InfoContext(ctx, "strategy applied",
			slog.String("strategy", e.name),
			slog.Int("remove", res.Remove.Len()),
			slog.Int("remain", res.Remain.Len()),
		)

		remove = remove.Union(res.Remove)
		if e.strategy.DeleteData {
			deleteData = deleteData.Union(res.Remove)
		}
	}

	report.Remove = list(remove)
	report.DeleteData = list(deleteData)

	span.SetAttributes(
		attribute.Int("torrents.remove", remove.Len()),
		attribute.Int("strategies.failed", report.Failed()),
	)

	return report
}

// list returns the sorted members of s, never nil.
func list(s torrent.Set) []string {
	out := s.Sorted()
	if out == nil {
		return []string{}
	}

	return out
}
