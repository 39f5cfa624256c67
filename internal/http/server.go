package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"otchet/internal/cache"
	"otchet/internal/chart"
	"otchet/internal/core"
	applog "otchet/internal/log"
	"otchet/internal/middleware/ratelimit"
	"otchet/internal/middleware/security"
	"otchet/internal/middleware/trace"
	"otchet/internal/view"
	appweb "otchet/web"
)

// Check is one named readiness probe. Detail is reported next to the
// status in /readyz.
type Check struct {
	Name  string
	Probe func(ctx context.Context) (detail string, err error)
}

// Config carries everything the server needs besides the dataset.
type Config struct {
	Addr               string
	ChartWidth         int
	ChartHeight        int
	CacheSize          int
	CacheTTL           time.Duration
	RateLimitPerMinute int

	// Renderer draws the summary pie; nil selects chart.SVGRenderer.
	Renderer view.ChartRenderer
	Logger   *applog.Logger
	Checks   []Check
}

type Server struct {
	http.Server
	templates *template.Template

	// dashboard is the shared read-only snapshot; handlers Fork it.
	dashboard   *view.Dashboard
	renderer    view.ChartRenderer
	chartWidth  int
	chartHeight int

	// fragments memoises rendered panes keyed "<period-id>/<view>".
	fragments    *cache.LRUCache[template.HTML]
	cacheManager *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	logger     *applog.Logger
	structured *applog.StructuredLogger
	checks     []Check
	started    time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates over a snapshot of periods,
// returning a ready-to-run http.Server.
func NewServer(cfg Config, periods []core.ReportPeriod) *Server {
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.Renderer == nil {
		cfg.Renderer = chart.SVGRenderer{}
	}
	if cfg.ChartWidth <= 0 {
		cfg.ChartWidth = view.DefaultChartWidth
	}
	if cfg.ChartHeight <= 0 {
		cfg.ChartHeight = view.DefaultChartHeight
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	logger := cfg.Logger.WithComponent(applog.ComponentDashboard)
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		dashboard:        view.NewDashboard(periods),
		renderer:         cfg.Renderer,
		chartWidth:       cfg.ChartWidth,
		chartHeight:      cfg.ChartHeight,
		fragments:        cache.NewLRUCache[template.HTML](cfg.CacheSize, cfg.CacheTTL),
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		logger:           logger,
		structured:       applog.NewStructuredLogger(cfg.Logger),
		checks:           cfg.Checks,
		started:          time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, cfg.Logger)

	s.cacheManager.Register(s.fragments)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError("Слишком много запросов, попробуйте позже").Write(w)
	})
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, limited(h))
	}

	route("/{$}", s.handleIndex)
	route("/ui/periods/{id}", s.handlePeriodPartial)
	route("/ui/periods/{id}/views/{view}", s.handleViewPartial)
	route("/periods/{id}/entries.csv", s.handleEntriesCSV)
	route("/periods/{id}/summary.txt", s.handleSummaryText)
	route("/api/periods", s.handlePeriodsJSON)
	route("/", s.handleNotFound)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = s.securityDetector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	logger.Info("Dashboard ready",
		applog.FieldPeriods, s.dashboard.Len(),
		"chart_width", s.chartWidth,
		"chart_height", s.chartHeight)

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
