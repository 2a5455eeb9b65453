package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"time"

	"github.com/rathix/sitefront/internal/assets"
	"github.com/rathix/sitefront/internal/mode"
	"github.com/rathix/sitefront/internal/route"
	"github.com/rathix/sitefront/internal/supervisor"
)

// Site bundles one rule with its serving collaborators: the asset store
// for production and the supervisor for development. Either may be nil
// when the rule has no behavior for that mode.
type Site struct {
	Rule       *route.Rule
	Store      *assets.Store
	Supervisor *supervisor.Supervisor

	proxy http.Handler
}

// Dispatcher is the per-request entry point: it resolves the rule for a
// path and either proxies to a healthy dev server or serves embedded
// assets with SPA fallback. Unresolved paths pass through to the next
// handler. Safe for concurrent use; the only shared mutable state it
// touches is each supervisor's state slot.
type Dispatcher struct {
	table  *route.Table
	mode   mode.Mode
	sites  []*Site
	grace  time.Duration
	logger *slog.Logger
}

// NewDispatcher builds a dispatcher. sites must be in rule registration
// order, one per table rule. grace bounds how long a request arriving
// during dev server startup is willing to wait.
func NewDispatcher(m mode.Mode, table *route.Table, sites []*Site, grace time.Duration, logger *slog.Logger) (*Dispatcher, error) {
	if len(sites) != table.Len() {
		return nil, fmt.Errorf("got %d sites for %d rules", len(sites), table.Len())
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := &Dispatcher{
		table:  table,
		mode:   m,
		sites:  sites,
		grace:  grace,
		logger: logger,
	}

	for _, site := range sites {
		target := site.Rule.DevTarget
		if target == "" {
			continue
		}
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid dev target %q: %w", target, err)
		}
		proxy := httputil.NewSingleHostReverseProxy(u)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				// Client went away mid-forward; nothing to report.
				return
			}
			// A dropped forward is unavailability for this request only;
			// the probe loop alone decides ProcessState.
			d.logger.Warn("proxy forward failed", "target", target, "path", r.URL.Path, "error", err)
			serveUnavailable(w, target)
		}
		site.proxy = proxy
	}

	return d, nil
}

// Handler returns the dispatch handler. Requests no rule claims are
// forwarded to next; a nil next turns them into 404s.
func (d *Dispatcher) Handler(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule, ok := d.table.Resolve(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		site := d.sites[rule.Index()]

		if d.mode == mode.Development && rule.DevTarget != "" {
			d.serveDev(w, r, site)
			return
		}
		d.serveStatic(w, r, site)
	})
}

// serveDev forwards the request to the site's dev server, granting a
// starting server the grace period before giving up.
func (d *Dispatcher) serveDev(w http.ResponseWriter, r *http.Request, site *Site) {
	sup := site.Supervisor
	sup.EnsureStarted()

	ctx, cancel := context.WithTimeout(r.Context(), d.grace)
	state := sup.WaitUntilHealthy(ctx)
	cancel()

	if state != supervisor.StateHealthy {
		d.logger.Warn("dev server unavailable",
			"target", site.Rule.DevTarget,
			"state", string(state),
			"path", r.URL.Path,
		)
		serveUnavailable(w, site.Rule.DevTarget)
		return
	}

	// Upstream responses, including error statuses, relay verbatim:
	// those are the dev server's own application errors.
	site.proxy.ServeHTTP(w, r)
}

// serveStatic serves embedded assets with the SPA fallback policy: a
// miss on an extensionless path serves the fallback file, a miss on a
// path that names a file is a genuine 404.
func (d *Dispatcher) serveStatic(w http.ResponseWriter, r *http.Request, site *Site) {
	if site.Store == nil {
		http.NotFound(w, r)
		return
	}

	lookup := site.Rule.Pattern.Strip(r.URL.Path)
	if a, ok := site.Store.Lookup(lookup); ok {
		w.Header().Set("Content-Type", a.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Write(a.Data)
		return
	}

	if fb := site.Rule.FallbackFile; fb != "" && path.Ext(r.URL.Path) == "" {
		if a, ok := site.Store.Lookup(fb); ok {
			w.Header().Set("Content-Type", a.ContentType)
			w.Header().Set("Cache-Control", "no-cache")
			w.Write(a.Data)
			return
		}
	}

	http.NotFound(w, r)
}

const unavailablePage = `<!DOCTYPE html>
<html>
<head>
<title>Development server unavailable</title>
<meta http-equiv="refresh" content="3">
</head>
<body>
<h1>Development server unavailable</h1>
<p>Could not reach the frontend dev server at <code>%s</code>.</p>
<p>This page retries automatically once the dev server is up.</p>
</body>
</html>
`

// serveUnavailable writes the dependency-unavailable response, distinct
// from any status the dev server itself might return.
func serveUnavailable(w http.ResponseWriter, target string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, unavailablePage, html.EscapeString(target))
}
