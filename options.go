package funkyorm

import "log/slog"

// Config holds the engine-wide configuration assembled from Options. Callers
// that construct a Query facade directly pass a *Config built by NewConfig.
type Config struct {
	logger          *slog.Logger
	likeEscapeChar  rune
	slowQueryMillis int64
	cache           Cache
	stats           *QueryStats
}

// Option configures engine-wide behavior, in the functional-options style
// the teacher uses for generator options (compiler/gen/option.go).
type Option func(*Config)

// WithLogger sets the structured logger used for translation and execution
// diagnostics. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithLikeEscapeChar overrides the escape character used when emitting LIKE
// patterns for StartsWith/EndsWith/Contains (Open Question §9, resolved in
// SPEC_FULL.md §A/DESIGN.md). Defaults to backslash. The two standard
// wildcards (%, _) and the escape character itself are always escaped
// regardless of this setting.
func WithLikeEscapeChar(r rune) Option {
	return func(c *Config) { c.likeEscapeChar = r }
}

// WithSlowQueryThreshold sets the duration, in milliseconds, at or above
// which an executed command is counted as a slow query in QueryStats.
func WithSlowQueryThreshold(ms int64) Option {
	return func(c *Config) { c.slowQueryMillis = ms }
}

// WithCache attaches an optional result cache consulted before execution by
// Query.ToList and the calls built on it (First, FirstOrDefault, Last,
// LastOrDefault) (SPEC_FULL.md §D.3). Aggregate terminal calls (Count, Any,
// All, Min, Max, Avg) and projected Select queries do not consult it.
func WithCache(cache Cache) Option {
	return func(c *Config) { c.cache = cache }
}

// NewConfig builds a Config from a list of Options.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		logger:          slog.Default(),
		likeEscapeChar:  '\\',
		slowQueryMillis: 500,
		stats:           &QueryStats{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the configured logger.
func (c *Config) Logger() *slog.Logger { return c.logger }

// LikeEscapeChar returns the configured LIKE escape character.
func (c *Config) LikeEscapeChar() rune { return c.likeEscapeChar }

// SlowQueryThresholdMillis returns the configured slow-query threshold.
func (c *Config) SlowQueryThresholdMillis() int64 { return c.slowQueryMillis }

// CacheHook returns the configured result cache, or nil.
func (c *Config) CacheHook() Cache { return c.cache }

// Stats returns the per-Config query statistics counters (SPEC_FULL.md §D.2).
func (c *Config) Stats() *QueryStats { return c.stats }
