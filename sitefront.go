// Package sitefront serves frontend applications in two interchangeable
// modes: development, where requests are proxied to a live frontend dev
// server, and production, where pre-built assets are served from memory.
// The embedding application configures one or more sites with a Builder
// and mounts the resulting App in front of its own handlers.
package sitefront

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rathix/sitefront/internal/assets"
	"github.com/rathix/sitefront/internal/mode"
	"github.com/rathix/sitefront/internal/route"
	"github.com/rathix/sitefront/internal/server"
	"github.com/rathix/sitefront/internal/supervisor"
)

// Mode selects the process-wide serving strategy. It is resolved once at
// Build time: from the Builder override if set, otherwise from the
// SITEFRONT_MODE environment variable ("embed" or "proxy"), otherwise
// from the build type (-tags dev builds default to Development).
type Mode = mode.Mode

const (
	Production  = mode.Production
	Development = mode.Development
)

// Site configures one mountable frontend application.
type Site struct {
	// Pattern claims request paths: "/about" exactly, "/admin/*" as a
	// prefix, "/*" as the single permitted catch-all.
	Pattern string
	// Assets is the production asset source, e.g. an embed.FS subtree.
	// Optional for sites that only exist in development.
	Assets fs.FS
	// FallbackFile, when set (typically "index.html"), is served for
	// navigational paths that miss the asset store, enabling client-side
	// routing.
	FallbackFile string
	// DevTarget is the dev server URL proxied to in development.
	DevTarget string
	// DevCommand optionally launches the dev server, run in WorkingDir.
	// Without it the dev server is assumed to be managed externally.
	DevCommand []string
	// WorkingDir is the directory DevCommand runs in.
	WorkingDir string
}

// Builder accumulates sites and global options. Zero values get
// sensible defaults at Build time.
type Builder struct {
	sites          []Site
	healthInterval time.Duration
	startupTimeout time.Duration
	grace          time.Duration
	modeOverride   *Mode
	logger         *slog.Logger
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{
		healthInterval: 5 * time.Second,
		startupTimeout: 30 * time.Second,
		grace:          10 * time.Second,
	}
}

// Site adds a site. Registration order matters: it breaks resolution
// ties between otherwise equal-priority patterns.
func (b *Builder) Site(s Site) *Builder {
	b.sites = append(b.sites, s)
	return b
}

// HealthInterval sets the steady-state dev server probe interval.
func (b *Builder) HealthInterval(d time.Duration) *Builder {
	b.healthInterval = d
	return b
}

// StartupTimeout bounds how long a launched dev server may take to
// answer its first successful probe.
func (b *Builder) StartupTimeout(d time.Duration) *Builder {
	b.startupTimeout = d
	return b
}

// GracePeriod bounds how long a request arriving during dev server
// startup waits before getting a 503.
func (b *Builder) GracePeriod(d time.Duration) *Builder {
	b.grace = d
	return b
}

// Mode overrides mode detection.
func (b *Builder) Mode(m Mode) *Builder {
	b.modeOverride = &m
	return b
}

// Logger sets the logger for supervisors and the dispatcher. Nil means
// no diagnostics.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration and assembles the App. All
// configuration problems surface here, before any traffic is accepted.
// In Development mode every dev-capable site's supervisor is started
// eagerly so dev servers warm up ahead of the first request.
func (b *Builder) Build() (*App, error) {
	if len(b.sites) == 0 {
		return nil, fmt.Errorf("no sites configured")
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	resolved := mode.Resolve()
	if b.modeOverride != nil {
		resolved = *b.modeOverride
	}

	rules := make([]*route.Rule, len(b.sites))
	for i, s := range b.sites {
		pattern, err := route.ParsePattern(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", i, err)
		}
		if s.Assets == nil && s.DevTarget == "" {
			return nil, fmt.Errorf("site %d (%s): needs Assets, DevTarget, or both", i, s.Pattern)
		}
		if len(s.DevCommand) > 0 {
			if s.DevTarget == "" {
				return nil, fmt.Errorf("site %d (%s): DevCommand requires a DevTarget to probe", i, s.Pattern)
			}
			if s.WorkingDir == "" {
				return nil, fmt.Errorf("site %d (%s): DevCommand requires a WorkingDir", i, s.Pattern)
			}
			if info, err := os.Stat(s.WorkingDir); err != nil {
				return nil, fmt.Errorf("site %d (%s): working directory: %w", i, s.Pattern, err)
			} else if !info.IsDir() {
				return nil, fmt.Errorf("site %d (%s): working directory %q is not a directory", i, s.Pattern, s.WorkingDir)
			}
		}
		rules[i] = &route.Rule{
			Pattern:      pattern,
			DevTarget:    s.DevTarget,
			DevCommand:   s.DevCommand,
			WorkingDir:   s.WorkingDir,
			FallbackFile: s.FallbackFile,
		}
	}

	table, err := route.NewTable(rules)
	if err != nil {
		return nil, err
	}

	sites := make([]*server.Site, len(b.sites))
	var supervisors []*supervisor.Supervisor
	for i, s := range b.sites {
		site := &server.Site{Rule: rules[i]}
		if s.Assets != nil {
			store, err := assets.NewStoreFS(s.Assets)
			if err != nil {
				return nil, fmt.Errorf("site %d (%s): %w", i, s.Pattern, err)
			}
			site.Store = store
		}
		if s.DevTarget != "" {
			sup := supervisor.New(s.DevTarget, s.DevCommand, s.WorkingDir,
				supervisor.WithLogger(logger),
				supervisor.WithStartupTimeout(b.startupTimeout),
				supervisor.WithHealthInterval(b.healthInterval),
			)
			site.Supervisor = sup
			supervisors = append(supervisors, sup)
		}
		sites[i] = site
	}

	dispatcher, err := server.NewDispatcher(resolved, table, sites, b.grace, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("sitefront configured", "mode", resolved.String(), "sites", len(sites))

	if resolved == Development {
		for _, sup := range supervisors {
			sup.EnsureStarted()
		}
	}

	return &App{
		dispatcher:  dispatcher,
		supervisors: supervisors,
		mode:        resolved,
	}, nil
}

// App is a built, immutable serving configuration.
type App struct {
	dispatcher  *server.Dispatcher
	supervisors []*supervisor.Supervisor
	mode        Mode
	shutdown    sync.Once
}

// Handler returns the request entry point. Paths no site claims are
// forwarded to next; a nil next turns them into 404s.
func (a *App) Handler(next http.Handler) http.Handler {
	return a.dispatcher.Handler(next)
}

// Mode reports the resolved serving mode.
func (a *App) Mode() Mode {
	return a.mode
}

// Shutdown terminates all supervised dev servers. Idempotent; call once
// at process exit.
func (a *App) Shutdown() {
	a.shutdown.Do(func() {
		for _, sup := range a.supervisors {
			sup.Shutdown()
		}
	})
}
