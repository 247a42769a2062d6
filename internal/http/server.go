package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"bucks2bar/internal/core"
	applog "bucks2bar/internal/log"
	"bucks2bar/internal/middleware/ratelimit"
	"bucks2bar/internal/middleware/security"
	"bucks2bar/internal/middleware/trace"
	"bucks2bar/internal/services"
	appweb "bucks2bar/web"
)

// SnapshotReader reads the last persisted snapshot.
type SnapshotReader interface {
	Load(ctx context.Context) (core.Snapshot, bool)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Session   *services.Session
	Snapshots SnapshotReader
	Logger    *applog.Logger
	RateLimit ratelimit.Config
	// DebounceWait is reported to the page so it knows when to refresh the chart.
	DebounceWait time.Duration
	Now          func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	session   *services.Session
	snapshots SnapshotReader
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *applog.Logger
	wait      time.Duration
	now       func() time.Time
	started   time.Time
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server. The rate limiter's cleanup loop is not started;
// run Limiter().Run alongside the server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		session:   deps.Session,
		snapshots: deps.Snapshots,
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		detector:  security.NewDetector(deps.Logger.WithComponent(applog.ComponentSecurity)),
		logger:    logger,
		wait:      deps.DebounceWait,
		now:       deps.Now,
		started:   deps.Now(),
	}
	s.tracer = trace.NewMiddleware(deps.Logger.WithComponent(applog.ComponentTrace), s.detector.ExtractClientIP)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(template.FuncMap{
		"currency": core.FormatCurrency,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /inputs/{id}", s.handleInput)
	mux.HandleFunc("POST /inputs/{id}/commit", s.handleCommit)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("POST /clear-storage", s.handleClearStorage)
	mux.HandleFunc("GET /ui/chart", s.handleChartPanel)
	mux.HandleFunc("GET /chart.png", s.handleChartPNG)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /username", s.handleUsername)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(logger)(handler)
	s.Handler = handler

	return s
}

// Limiter exposes the rate limiter so its cleanup loop can be run.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
		Header("Retry-After", "60").
		Write(w)
}
