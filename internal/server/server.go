package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/vitals/internal/mcp"
	"github.com/claude/vitals/internal/snapshot"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	snapshots  *snapshot.Store
	dispatcher *mcp.Dispatcher
	log        *slog.Logger
	apiKey     string
	mcpSecret  string
	version    string
	router     chi.Router

	// now is the ingestion clock; overridable in tests. Ingested data
	// describes a rolling 24-hour window, so it is filed under yesterday.
	now func() time.Time
}

// New creates a new Server with all routes configured. Empty apiKey or
// mcpSecret disables the corresponding auth check.
func New(snapshots *snapshot.Store, dispatcher *mcp.Dispatcher, apiKey, mcpSecret, version string, log *slog.Logger) *Server {
	s := &Server{
		snapshots:  snapshots,
		dispatcher: dispatcher,
		log:        log,
		apiKey:     apiKey,
		mcpSecret:  mcpSecret,
		version:    version,
		router:     chi.NewRouter(),
		now:        time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Ingest endpoints (bearer token required for submission; the GET
	// description payload is public)
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Get("/", s.handleIngestInfo)
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(s.apiKey))
			r.Post("/", s.handleIngest)
		})
	})

	// MCP endpoints (query-string secret required)
	s.router.Route("/mcp", func(r chi.Router) {
		r.Use(QuerySecretAuth(s.mcpSecret))
		r.Get("/", s.handleMCPInfo)
		r.Post("/", s.handleMCP)
	})
}
