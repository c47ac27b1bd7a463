package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dirt-rain/code-editor-agent/pkg/log"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

const defaultConcurrency = 8

// ErrAgentNotFound is returned by a [Store] when it holds no rules for an agent.
var ErrAgentNotFound = errors.New("agent not found")

// Store provides rule records and rule bodies.
type Store interface {
	// ListRules returns the rules of an agent, or an error wrapping
	// [ErrAgentNotFound].
	ListRules(agent string) ([]*rule.Rule, error)
	// FetchBody returns the text of a rule file after its front matter.
	FetchBody(ctx context.Context, path string) (string, error)
}

// Agents provides the referenced agents of an agent, in declared order.
type Agents interface {
	References(agent string) ([]string, error)
}

// Resolver resolves context rules for file paths.
type Resolver struct {
	store       Store
	agents      Agents
	tracer      trace.Tracer
	concurrency int
}

// Opt configures a [Resolver].
type Opt func(*Resolver)

// WithConcurrency limits how many bodies are fetched at once.
func WithConcurrency(n int) Opt {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New creates a new [Resolver].
func New(store Store, agents Agents, opts ...Opt) *Resolver {
	r := &Resolver{
		store:       store,
		agents:      agents,
		tracer:      otel.Tracer("resolver"),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Result is the outcome of resolving one file path.
type Result struct {
	// Agent is the requested agent.
	Agent string
	// Path is the resolved file path.
	Path string
	// Rules are the emitted rules in display order.
	Rules []*rule.Unit
	// Dropped are selected rules removed by priority filtering.
	Dropped []*rule.Unit
	// Bodies holds the body of each rule in Rules, at the same index.
	Bodies []string
	// Warnings are non-fatal problems, such as a referenced agent without rules.
	Warnings []string
}

// Empty reports whether no rule was selected for the path. A result whose
// selected rules were all dropped by priority is not empty.
func (r *Result) Empty() bool {
	return len(r.Rules)+len(r.Dropped) == 0
}

// WriteTo writes the bodies followed by the closing marker, or the
// no-context message when the result is empty.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder

	if !r.Empty() {
		for _, body := range r.Bodies {
			b.WriteString(body)
			b.WriteString("\n")
		}
	}

	b.WriteString(r.Footer())

	n, err := io.WriteString(w, b.String())
	if err != nil {
		return int64(n), fmt.Errorf("write result: %w", err)
	}

	return int64(n), nil
}

// Footer returns the closing marker, or the no-context message when the
// result is empty.
func (r *Result) Footer() string {
	if r.Empty() {
		return fmt.Sprintf("No additional context found for %s. Continue.\n", r.Path)
	}

	return fmt.Sprintf("* * *\n\nEnd of additional context for %s. Continue.\n", r.Path)
}

func (r *Result) String() string {
	var b strings.Builder

	_, _ = r.WriteTo(&b)

	return b.String()
}

// Resolve returns the rules and bodies that apply to path for the given agent.
func (r *Resolver) Resolve(ctx context.Context, agent, path string) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "resolve", trace.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("path", path),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(
		slog.String("agent", agent),
		slog.String("path", path),
	)

	refs, err := r.agents.References(agent)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("agent %q: %w", agent, err)
	}

	units, warnings, err := LoadUnits(r.store, append([]string{agent}, refs...))
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("load rules for agent %q, path %q: %w", agent, path, err)
	}

	for _, w := range warnings {
		logger.WarnContext(ctx, w)
	}

	res := &Result{
		Agent:    agent,
		Path:     path,
		Warnings: warnings,
	}

	selected := Select(units, path)
	if len(selected) == 0 {
		logger.DebugContext(ctx, "no rules selected", slog.Int("loaded", len(units)))

		return res, nil
	}

	kept, dropped := FilterByPriority(selected)
	SortForDisplay(kept)
	SortForDisplay(dropped)

	res.Rules = kept
	res.Dropped = dropped

	res.Bodies, err = r.fetchBodies(ctx, kept)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("agent %q, path %q: %w", agent, path, err)
	}

	logger.DebugContext(ctx, "resolved rules",
		slog.Int("loaded", len(units)),
		slog.Int("selected", len(selected)),
		slog.Int("kept", len(kept)),
	)

	span.SetAttributes(attribute.Int("rules", len(kept)))

	return res, nil
}

// fetchBodies fetches rule bodies concurrently. The returned slice follows
// the order of units regardless of completion order.
func (r *Resolver) fetchBodies(ctx context.Context, units []*rule.Unit) ([]string, error) {
	bodies := make([]string, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, u := range units {
		g.Go(func() error {
			body, err := r.store.FetchBody(gctx, u.Path)
			if err != nil {
				return fmt.Errorf("read rule file %s: %w", u.Path, err)
			}

			bodies[i] = body

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped per rule.
	}

	return bodies, nil
}
