package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dirt-rain/code-editor-agent/pkg/log"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

// Generator builds rule records by scanning a project for rule files.
type Generator struct {
	fs      afero.Fs
	tracer  trace.Tracer
	exclude []string
}

// GeneratorOpt configures a [Generator].
type GeneratorOpt func(*Generator)

// WithExclude skips files matching any of the patterns. A leading "./" is
// ignored.
func WithExclude(patterns ...string) GeneratorOpt {
	return func(g *Generator) {
		for _, p := range patterns {
			g.exclude = append(g.exclude, strings.TrimPrefix(p, "./"))
		}
	}
}

// NewGenerator creates a [Generator] scanning fsys, which should be rooted at
// the project root.
func NewGenerator(fsys afero.Fs, opts ...GeneratorOpt) *Generator {
	g := &Generator{
		fs:     fsys,
		tracer: otel.Tracer("generator"),
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate scans the rule files of each agent, given as a map of agent name
// to rule file pattern. Any invalid rule file fails the whole run.
func (g *Generator) Generate(ctx context.Context, agents map[string]string) (Rules, error) {
	ctx, span := g.tracer.Start(ctx, "generate")
	defer span.End()

	rules := make(Rules, len(agents))

	for _, agent := range slices.Sorted(maps.Keys(agents)) {
		rs, err := g.Scan(ctx, agents[agent])
		if err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("agent %q: %w", agent, err)
		}

		log.WithContext(ctx).InfoContext(ctx, "scanned rules",
			slog.String("agent", agent),
			slog.Int("count", len(rs)),
		)

		rules[agent] = rs
	}

	return rules, nil
}

// Scan parses every file matching pattern that is not excluded. The result is
// sorted by path.
func (g *Generator) Scan(ctx context.Context, pattern string) ([]*rule.Rule, error) {
	_, span := g.tracer.Start(ctx, "scan", trace.WithAttributes(
		attribute.String("pattern", pattern),
	))
	defer span.End()

	files, err := g.Files(pattern)
	if err != nil {
		return nil, err
	}

	rules := make([]*rule.Rule, 0, len(files))
	for _, name := range files {
		content, err := afero.ReadFile(g.fs, name)
		if err != nil {
			return nil, fmt.Errorf("read rule file: %w", err)
		}

		r, err := ParseRule(name, content)
		if err != nil {
			return nil, err
		}

		rules = append(rules, r)
	}

	return rules, nil
}

// Files returns the sorted, non-excluded files matching pattern.
func (g *Generator) Files(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(afero.NewIOFS(g.fs), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("find rule files %q: %w", pattern, err)
	}

	files := slices.DeleteFunc(matches, g.Excluded)
	slices.Sort(files)

	return files, nil
}

// Excluded reports whether name matches an exclude pattern.
func (g *Generator) Excluded(name string) bool {
	return rule.MatchAny(name, g.exclude...)
}
