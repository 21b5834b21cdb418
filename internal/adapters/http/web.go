package web

import (
	"net/http"
	"time"

	"trainingplan/internal/adapters/http/middleware"
	"trainingplan/internal/adapters/http/perf"
	"trainingplan/internal/adapters/spreadsheet"
	scheduleStore "trainingplan/internal/adapters/storage/schedule"
	"trainingplan/internal/application/orchestrators"
	"trainingplan/internal/domain/session"
)

// DefaultBodyLimit caps JSON request bodies.
const DefaultBodyLimit = 10 << 20

// Options configures the HTTP surface.
type Options struct {
	StaticDir      string
	CSRFKey        []byte // 32 bytes; also signs the session cookie
	Production     bool   // secure cookies, HTTPS-only CSRF checks
	TrustedOrigins []string
	CORSOrigin     string
	BodyLimit      int64
	EnforceRoles   bool // POST/DELETE and parsing require an admin session
	SlowRequest    time.Duration
}

// Deps holds the collaborators the handlers call.
type Deps struct {
	Store      scheduleStore.Store
	Credential session.Credential
	Parser     orchestrators.WorkbookParser // defaults to spreadsheet.NewParser()
	Collector  *perf.Collector              // optional; enables /api/perf
}

// Global store instance (set by NewMux)
var store scheduleStore.Store

// Global cookie codec (set by NewMux)
var cookies *middleware.CookieCodec

// Configured admin login
var credential session.Credential

// Workbook parser for /api/schedule/parse
var parser orchestrators.WorkbookParser = spreadsheet.NewParser()

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

var bodyLimit int64 = DefaultBodyLimit

var enforceRoles bool

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// NewMux wires HTTP handlers for the app.
// PRE: opts.CSRFKey is 32 bytes; deps.Store is non-nil
func NewMux(opts Options, deps Deps) http.Handler {
	store = deps.Store
	credential = deps.Credential
	perfCollector = deps.Collector
	if deps.Parser != nil {
		parser = deps.Parser
	}
	cookies = middleware.NewCookieCodec(opts.CSRFKey, opts.Production)
	bodyLimit = opts.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}
	enforceRoles = opts.EnforceRoles

	mux := http.NewServeMux()
	mux.Handle("/", staticHandler(opts.StaticDir))
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Order of execution: Timing -> RateLimit -> CORS -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{Secure: opts.Production, TrustedOrigins: opts.TrustedOrigins}),
		middleware.Auth(cookies),
		middleware.CORS(opts.CORSOrigin),
		middleware.RateLimit(limiter),
		middleware.Timing(deps.Collector, opts.SlowRequest),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/schedule", handleSchedule)
	mux.HandleFunc("/api/schedule/export", handleScheduleExport)
	mux.HandleFunc("/api/schedule/parse", handleScheduleParse)
	mux.HandleFunc("/api/session", handleSession)
	mux.Handle("/api/perf", middleware.RequireAdmin(http.HandlerFunc(handlePerf)))

	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/schedule", handleScheduleRedirect)
	mux.HandleFunc("/schedule/print", handleSchedulePrint)
}
