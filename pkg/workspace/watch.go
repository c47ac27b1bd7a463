package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dirt-rain/code-editor-agent/pkg/log"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
	"github.com/dirt-rain/code-editor-agent/pkg/store"
)

// ErrNoRoot is returned by [Workspace.Watch] for workspaces without an OS
// root directory.
var ErrNoRoot = errors.New("workspace has no root directory")

// Watch regenerates the cache whenever a rule file or the config file
// changes, until ctx is done. onGenerate is called after each successful
// regeneration.
func (w *Workspace) Watch(ctx context.Context, onGenerate func(*GenerateResult)) error {
	if w.root == "" {
		return ErrNoRoot
	}

	cfg, err := w.Config(ctx)
	if err != nil {
		return err
	}

	patterns := []string{w.configPath}
	for _, name := range cfg.AgentNames() {
		patterns = append(patterns, cfg.Agents[name].RuleFilePattern)
	}

	match := func(name string) bool {
		return rule.MatchAny(name, patterns...)
	}

	regenerate := func(ctx context.Context) error {
		res, err := w.Generate(ctx, GenerateOpts{Force: true})
		if err != nil {
			return err
		}

		onGenerate(res)

		return nil
	}

	watcher, err := store.NewWatcher(w.root, match, regenerate,
		store.WithSkipDirs(append([]string{".git"}, cfg.Exclude...)...),
	)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}

	log.WithContext(ctx).InfoContext(ctx, "watching for rule changes",
		slog.String("root", w.root),
		slog.Int("patterns", len(patterns)),
	)

	return watcher.Run(ctx) //nolint:wrapcheck // Only returns on shutdown.
}
