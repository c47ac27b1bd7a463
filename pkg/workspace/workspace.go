package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	_ "embed"

	"github.com/dirt-rain/code-editor-agent/pkg/config"
	"github.com/dirt-rain/code-editor-agent/pkg/expr"
	"github.com/dirt-rain/code-editor-agent/pkg/log"
	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
	"github.com/dirt-rain/code-editor-agent/pkg/store"
)

const (
	// ExampleRulePath is the example rule file written by [Workspace.Init].
	ExampleRulePath = "RENAME-ME.code-editor-agent.md"
	// AgentDefinitionPath is the Claude Code agent definition written by
	// [Workspace.Init].
	AgentDefinitionPath = ".claude/agents/code-editor.md"
)

var (
	//go:embed templates/example-rule.md
	exampleRule []byte

	//go:embed templates/agent.md
	agentDefinition []byte

	// ErrAlreadyInitialized is returned by [Workspace.Init] when a cache exists.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrStaleCache is returned by a checking [Workspace.Generate] when the
	// cache differs from the rule files.
	ErrStaleCache = errors.New("rule cache is out of date")
)

// Workspace is a project with a config file and a rule cache.
type Workspace struct {
	fs          afero.Fs
	loader      *config.Loader
	tracer      trace.Tracer
	root        string
	configPath  string
	cachePath   string
	concurrency int
}

// Opt configures a [Workspace].
type Opt func(*Workspace)

// WithConfigPath overrides [config.DefaultPath].
func WithConfigPath(p string) Opt {
	return func(w *Workspace) {
		w.configPath = p
	}
}

// WithCachePath overrides [store.DefaultCachePath].
func WithCachePath(p string) Opt {
	return func(w *Workspace) {
		w.cachePath = p
	}
}

// WithConcurrency limits concurrent rule body reads.
func WithConcurrency(n int) Opt {
	return func(w *Workspace) {
		w.concurrency = n
	}
}

// WithRoot records the OS directory backing the filesystem. It is required
// by [Workspace.Watch].
func WithRoot(dir string) Opt {
	return func(w *Workspace) {
		w.root = dir
	}
}

// New creates a [Workspace] over fsys, which must be rooted at the project
// root.
func New(fsys afero.Fs, opts ...Opt) *Workspace {
	w := &Workspace{
		fs:         fsys,
		loader:     config.NewLoader(),
		tracer:     otel.Tracer("workspace"),
		configPath: config.DefaultPath,
		cachePath:  store.DefaultCachePath,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Open creates a [Workspace] for the OS directory dir.
func Open(dir string, opts ...Opt) *Workspace {
	fsys := afero.NewBasePathFs(afero.NewOsFs(), dir)

	return New(fsys, append([]Opt{WithRoot(dir)}, opts...)...)
}

// Config loads the project configuration, logging its warnings.
func (w *Workspace) Config(ctx context.Context) (*config.Config, error) {
	cfg, err := w.loader.Load(w.fs, w.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	for _, warning := range cfg.Warnings() {
		log.WithContext(ctx).WarnContext(ctx, warning)
	}

	return cfg, nil
}

// ConfigPath returns the config file path relative to the project root.
func (w *Workspace) ConfigPath() string {
	return w.configPath
}

// CachePath returns the cache file path relative to the project root.
func (w *Workspace) CachePath() string {
	return w.cachePath
}

// Init writes the default config, an example rule file and the agent
// definition, then generates the cache. It refuses to run when the cache
// already exists.
func (w *Workspace) Init(ctx context.Context) (*GenerateResult, error) {
	ctx, span := w.tracer.Start(ctx, "init")
	defer span.End()

	exists, err := afero.Exists(w.fs, w.cachePath)
	if err != nil {
		return nil, fmt.Errorf("stat cache: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: to re-initialize, delete the %s file and retry", ErrAlreadyInitialized, w.cachePath)
	}

	err = config.WriteDefault(w.fs, w.configPath)
	if err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	err = w.writeFile(ExampleRulePath, exampleRule)
	if err != nil {
		return nil, err
	}

	err = w.writeFile(AgentDefinitionPath, agentDefinition)
	if err != nil {
		return nil, err
	}

	log.WithContext(ctx).InfoContext(ctx, "initialized project",
		slog.String("config", w.configPath),
	)

	return w.Generate(ctx, GenerateOpts{Force: true})
}

func (w *Workspace) writeFile(name string, data []byte) error {
	err := w.fs.MkdirAll(path.Dir(name), 0o755)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	err = afero.WriteFile(w.fs, name, data, 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}

// GenerateOpts configures [Workspace.Generate].
type GenerateOpts struct {
	// Force generates even when no cache exists yet.
	Force bool
	// Check compares the generated cache with the existing one instead of
	// writing it.
	Check bool
}

// GenerateResult describes a generated cache.
type GenerateResult struct {
	Rules store.Rules
	// Path is the cache file path.
	Path string
	// Diff is the difference to the existing cache, set in check mode.
	Diff string
	// Size is the encoded cache size in bytes.
	Size int
	// Written reports whether the cache file was written.
	Written bool
}

// Generate scans the rule files of every agent and writes the cache.
//
// Without Force, the cache must already exist; a missing cache most likely
// means the working directory is not the project root. With Check, the
// cache is not written and [ErrStaleCache] is returned if it would change.
func (w *Workspace) Generate(ctx context.Context, opts GenerateOpts) (*GenerateResult, error) {
	ctx, span := w.tracer.Start(ctx, "generate", trace.WithAttributes(
		attribute.Bool("force", opts.Force),
		attribute.Bool("check", opts.Check),
	))
	defer span.End()

	current, err := afero.ReadFile(w.fs, w.cachePath)
	if errors.Is(err, fs.ErrNotExist) && !opts.Force {
		return nil, fmt.Errorf("%w: %s: very likely the current working directory is not the project root, "+
			"or `code-editor-agent cmd init` has not been run yet", store.ErrNoCache, w.cachePath)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	cfg, err := w.Config(ctx)
	if err != nil {
		return nil, err
	}

	g := store.NewGenerator(w.fs, store.WithExclude(cfg.Exclude...))

	rules, err := g.Generate(ctx, cfg.RuleFilePatterns())
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("generate: %w", err)
	}

	data, err := store.Encode(rules)
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	res := &GenerateResult{
		Rules: rules,
		Path:  w.cachePath,
		Size:  len(data),
	}

	if opts.Check {
		res.Diff = store.Diff(w.cachePath, current, data)
		if res.Diff != "" {
			return res, fmt.Errorf("%w: run `code-editor-agent cmd generate`", ErrStaleCache)
		}

		return res, nil
	}

	err = store.WriteCache(w.fs, w.cachePath, rules)
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	res.Written = true

	return res, nil
}

// Load resolves the context for path using agent.
func (w *Workspace) Load(ctx context.Context, agent, filePath string) (*resolve.Result, error) {
	cfg, err := w.Config(ctx)
	if err != nil {
		return nil, err
	}

	cache, err := store.ReadCache(w.fs, w.cachePath)
	if err != nil {
		return nil, fmt.Errorf("%w: run `code-editor-agent cmd generate`", err)
	}

	r := resolve.New(cache, cfg, resolve.WithConcurrency(w.concurrency))

	return r.Resolve(ctx, agent, filePath) //nolint:wrapcheck // Carries agent and path.
}

// LoadGroup resolves the context for path using the agent selected by
// group. A nil group selects the agent whose command group is null.
func (w *Workspace) LoadGroup(ctx context.Context, group *string, filePath string) (*resolve.Result, error) {
	cfg, err := w.Config(ctx)
	if err != nil {
		return nil, err
	}

	agent, err := cfg.AgentByCommandGroup(group)
	if err != nil {
		return nil, err //nolint:wrapcheck // Already descriptive.
	}

	return w.Load(ctx, agent, filePath)
}

// LoadAgentOrGroup resolves the context for path using the agent called
// name, or, when no agent has that name, the agent whose command group is
// name. An empty name selects the agent whose command group is null.
func (w *Workspace) LoadAgentOrGroup(ctx context.Context, name, filePath string) (*resolve.Result, error) {
	if name == "" {
		return w.LoadGroup(ctx, nil, filePath)
	}

	cfg, err := w.Config(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := cfg.Agents[name]; ok {
		return w.Load(ctx, name, filePath)
	}

	return w.LoadGroup(ctx, &name, filePath)
}

// AgentInfo describes a configured agent.
type AgentInfo struct {
	CommandGroup    *string  `json:"commandGroup"`
	Name            string   `json:"name"`
	RuleFilePattern string   `json:"ruleFilePattern"`
	References      []string `json:"references"`
	// Rules is the number of cached rules, or -1 without a cache entry.
	Rules int `json:"rules"`
}

// Agents lists the configured agents in name order.
func (w *Workspace) Agents(ctx context.Context) ([]AgentInfo, error) {
	cfg, err := w.Config(ctx)
	if err != nil {
		return nil, err
	}

	cache, err := store.ReadCache(w.fs, w.cachePath)
	if err != nil && !errors.Is(err, store.ErrNoCache) {
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	agents := make([]AgentInfo, 0, len(cfg.Agents))
	for _, name := range cfg.AgentNames() {
		a := cfg.Agents[name]
		info := AgentInfo{
			Name:            name,
			CommandGroup:    a.CommandGroup,
			RuleFilePattern: a.RuleFilePattern,
			References:      a.References,
			Rules:           -1,
		}

		if cache != nil {
			rules, err := cache.ListRules(name)
			if err == nil {
				info.Rules = len(rules)
			}
		}

		agents = append(agents, info)
	}

	return agents, nil
}

// ListedRule is a cached rule with the agent it belongs to.
type ListedRule struct {
	*rule.Rule

	Agent string `json:"agent"`
}

// Rules lists cached rules ordered by agent and path. An empty agent lists
// every agent; a non-empty filter is a CEL expression (see package expr)
// that each listed rule must satisfy.
func (w *Workspace) Rules(agent, filter string) ([]ListedRule, error) {
	cache, err := store.ReadCache(w.fs, w.cachePath)
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	var f *expr.RuleFilter
	if filter != "" {
		f, err = expr.NewRuleFilter(filter)
		if err != nil {
			return nil, err //nolint:wrapcheck // Already wrapped.
		}
	}

	agents := cache.Agents()
	if agent != "" {
		agents = []string{agent}
	}

	var out []ListedRule

	for _, a := range agents {
		rules, err := cache.ListRules(a)
		if err != nil {
			return nil, err //nolint:wrapcheck // Already wrapped.
		}

		for _, r := range rules {
			if f != nil {
				ok, err := f.Match(a, r)
				if err != nil {
					return nil, err //nolint:wrapcheck // Already wrapped.
				}
				if !ok {
					continue
				}
			}

			out = append(out, ListedRule{Rule: r, Agent: a})
		}
	}

	return out, nil
}
