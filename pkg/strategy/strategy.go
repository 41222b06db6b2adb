package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/reap/api/v1beta1/configs"
	"github.com/macropower/reap/pkg/condition"
	"github.com/macropower/reap/pkg/expr"
	"github.com/macropower/reap/pkg/hnr"
	"github.com/macropower/reap/pkg/log"
	"github.com/macropower/reap/pkg/metrics"
	"github.com/macropower/reap/pkg/torrent"
)

var (
	tracer = otel.Tracer("github.com/macropower/reap/pkg/strategy")

	// ErrFilter is returned when the candidate filter fails on a torrent.
	ErrFilter = errors.New("candidate filter")
)

// Kind is the evaluation path of a [Strategy].
type Kind int

const (
	KindExpression Kind = iota
	KindRemoteOverride
)

func (k Kind) String() string {
	switch k {
	case KindExpression:
		return "expression"
	case KindRemoteOverride:
		return "hnr"
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result partitions a snapshot. Both sets are owned by the caller.
type Result struct {
	Remove torrent.Set
	Remain torrent.Set
}

// conservative returns the result used when evaluation fails.
func conservative(snap *torrent.Snapshot) *Result {
	return &Result{Remove: torrent.Set{}, Remain: snap.All()}
}

// Strategy is a named removal rule.
type Strategy struct {
	filter   *expr.Filter
	root     condition.Node
	registry *condition.Registry
	remote   *hnr.Condition

	// Name identifies the strategy in logs and metrics.
	Name string
	// Expression is the source of the condition expression. It is empty for
	// [KindRemoteOverride].
	Expression string
	Kind       Kind
	// DeleteData is passed through to the caller, which asks the client to
	// delete downloaded data along with removed torrents.
	DeleteData bool
}

// Opt configures a [Strategy].
type Opt func(*options)

type options struct {
	filter     *expr.Filter
	registry   *condition.Registry
	lexerOpts  []condition.LexerOpt
	clientOpts []hnr.ClientOpt
	deleteData bool
}

// WithFilter restricts the strategy to torrents matching f.
func WithFilter(f *expr.Filter) Opt {
	return func(o *options) {
		o.filter = f
	}
}

// WithRegistry replaces the default [condition.Registry].
func WithRegistry(reg *condition.Registry) Opt {
	return func(o *options) {
		o.registry = reg
	}
}

// WithLexerOptions sets options used to tokenize the expression.
func WithLexerOptions(opts ...condition.LexerOpt) Opt {
	return func(o *options) {
		o.lexerOpts = append(o.lexerOpts, opts...)
	}
}

// WithClientOptions adds options for the HNR client built by [FromConfig].
func WithClientOptions(opts ...hnr.ClientOpt) Opt {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// WithDeleteData sets [Strategy.DeleteData].
func WithDeleteData(deleteData bool) Opt {
	return func(o *options) {
		o.deleteData = deleteData
	}
}

func newOptions(opts []Opt) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil {
		o.registry = condition.NewRegistry()
	}

	return o
}

// NewExpression creates a [KindExpression] strategy. The expression is parsed
// immediately, so lexical and syntax errors are returned here. Unknown
// condition names are reported when the strategy is applied; use
// [Strategy.Check] to find them earlier.
func NewExpression(name, expression string, opts ...Opt) (*Strategy, error) {
	o := newOptions(opts)

	root, err := condition.Parse(expression, o.lexerOpts...)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: %w", name, err)
	}

	return &Strategy{
		Name:       name,
		Expression: expression,
		Kind:       KindExpression,
		DeleteData: o.deleteData,
		filter:     o.filter,
		root:       root,
		registry:   o.registry,
	}, nil
}

// NewRemoteOverride creates a [KindRemoteOverride] strategy backed by checker.
func NewRemoteOverride(name string, checker hnr.Checker, opts ...Opt) *Strategy {
	o := newOptions(opts)

	return &Strategy{
		Name:       name,
		Kind:       KindRemoteOverride,
		DeleteData: o.deleteData,
		filter:     o.filter,
		remote:     hnr.NewCondition(checker),
	}
}

// FromConfig builds a [Strategy] from its configuration. A configured hnr
// directive selects [KindRemoteOverride], and the remove expression is then
// never parsed. env compiles the filter; nil means a default environment.
func FromConfig(cfg *configs.Strategy, env *expr.Environment, opts ...Opt) (*Strategy, error) {
	opts = append([]Opt{WithDeleteData(cfg.DeleteData)}, opts...)

	if cfg.Filter != "" {
		if env == nil {
			var err error

			env, err = expr.NewEnvironment()
			if err != nil {
				return nil, fmt.Errorf("create filter environment: %w", err)
			}
		}

		f, err := env.CompileFilter(cfg.Filter)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: filter: %w", cfg.Name, err)
		}

		opts = append(opts, WithFilter(f))
	}

	if cfg.HNR != nil {
		token, err := cfg.HNR.Token()
		if err != nil {
			return nil, fmt.Errorf("strategy %q: hnr: %w", cfg.Name, err)
		}

		o := newOptions(opts)
		client := hnr.NewClient(cfg.HNR.Host, token, append(cfg.HNR.ClientOpts(), o.clientOpts...)...)

		return NewRemoteOverride(cfg.Name, client, opts...), nil
	}

	if cfg.CaseSensitiveKeywords {
		opts = append(opts, WithLexerOptions(condition.WithCaseSensitiveKeywords(true)))
	}

	return NewExpression(cfg.Name, cfg.Remove, opts...)
}

// Check reports unknown condition names without evaluating anything.
func (s *Strategy) Check() error {
	if s.Kind != KindExpression {
		return nil
	}

	err := condition.Validate(s.root, s.registry)
	if err != nil {
		return fmt.Errorf("strategy %q: %w", s.Name, err)
	}

	return nil
}

// Apply partitions snap into torrents to remove and torrents to keep. On
// error the returned [Result] removes nothing.
func (s *Strategy) Apply(ctx context.Context, snap *torrent.Snapshot) (*Result, error) {
	path := s.Kind.String()

	ctx, span := tracer.Start(ctx, "strategy.Apply",
		trace.WithAttributes(
			attribute.String("strategy.name", s.Name),
			attribute.String("strategy.path", path),
			attribute.Int("torrents", snap.Len()),
		),
	)
	defer span.End()

	ctx = log.WithStrategy(ctx, s.Name)
	logger := log.WithContext(ctx).With(slog.String("path", path))

	start := time.Now()
	res, err := s.apply(ctx, snap)
	metrics.EvaluationDuration.WithLabelValues(s.Name, path).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(s.Name, path, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		logger.DebugContext(ctx, "evaluation failed", slog.Any("error", err))

		return conservative(snap), fmt.Errorf("strategy %q: %w", s.Name, err)
	}

	metrics.EvaluationsTotal.WithLabelValues(s.Name, path, "success").Inc()
	metrics.TorrentsSelected.WithLabelValues(s.Name, "remove").Set(float64(res.Remove.Len()))
	metrics.TorrentsSelected.WithLabelValues(s.Name, "remain").Set(float64(res.Remain.Len()))

	span.SetAttributes(attribute.Int("torrents.remove", res.Remove.Len()))

	logger.DebugContext(ctx, "evaluated",
		slog.Int("remove", res.Remove.Len()),
		slog.Int("remain", res.Remain.Len()),
	)

	return res, nil
}

func (s *Strategy) apply(ctx context.Context, snap *torrent.Snapshot) (*Result, error) {
	candidates := snap

	if s.filter != nil {
		keep, err := s.filter.Select(snap)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFilter, err)
		}

		candidates = snap.Subset(keep)
	}

	var (
		remove torrent.Set
		err    error
	)

	switch s.Kind {
	case KindRemoteOverride:
		remove, _, err = s.remote.Apply(ctx, candidates)
	default:
		remove, err = condition.Evaluate(ctx, s.root, s.registry, candidates)
	}

	if err != nil {
		return nil, err //nolint:wrapcheck // Wrapped by Apply.
	}

	return &Result{
		Remove: remove,
		Remain: snap.All().Difference(remove),
	}, nil
}

// Evaluate builds the strategy described by cfg and applies it to snap. If
// the strategy cannot be built, the conservative result is returned with the
// error.
func Evaluate(ctx context.Context, cfg *configs.Strategy, snap *torrent.Snapshot, opts ...Opt) (*Result, error) {
	s, err := FromConfig(cfg, nil, opts...)
	if err != nil {
		return conservative(snap), err
	}

	return s.Apply(ctx, snap)
}
