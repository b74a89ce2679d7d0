package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"repdir-backend/internal/directory"
	"repdir-backend/internal/model"
	"repdir-backend/internal/rejections"
)

// Directory is the store surface the handlers use.
type Directory interface {
	ListAll() model.Directory
	Generation() uint64
	Snapshot() (model.Directory, uint64)
	ListByLocality(locality string) ([]model.Representative, error)
	Add(ctx context.Context, locality string, rep model.Representative) error
	Update(ctx context.Context, id directory.Identifier, rep model.Representative) error
	Remove(ctx context.Context, id directory.Identifier) error
}

var _ Directory = (*directory.Store)(nil)

// Options configures the API.
type Options struct {
	StaticDir      string
	AllowedOrigins []string
	StatsCacheTTL  time.Duration
	Rejections     rejections.Recorder
	Logger         *zap.Logger
}

// Server serves the directory API.
type Server struct {
	dir       Directory
	rejects   rejections.Recorder
	logger    *zap.Logger
	stats     *cache.Cache
	staticDir string
	origins   []string
}

// NewServer builds the API over dir.
func NewServer(dir Directory, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rejections == nil {
		opts.Rejections = rejections.Discard{}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = defaultStatsTTL
	}
	return &Server{
		dir:     dir,
		rejects: opts.Rejections,
		logger:  opts.Logger,
		// patrickmn/go-cache: no janitor goroutine. Entries are keyed by
		// directory generation and writes flush the cache.
		stats:     cache.New(opts.StatsCacheTTL, 0),
		staticDir: opts.StaticDir,
		origins:   opts.AllowedOrigins,
	}
}

// RegisterRoutes wires the API and the dashboard fallback onto r.
// gorilla/mux: routes are matched in registration order, so the catch-alls go last.
func (s *Server) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/representatives", s.listHandler).Methods(http.MethodGet)
	api.HandleFunc("/representatives/{locality}", s.localityHandler).Methods(http.MethodGet)
	api.HandleFunc("/representatives", s.addHandler).Methods(http.MethodPost)
	api.HandleFunc("/representatives", s.updateHandler).Methods(http.MethodPut)
	api.HandleFunc("/representatives", s.deleteHandler).Methods(http.MethodDelete)
	api.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	api.HandleFunc("/designations", s.designationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/suggestions", s.suggestionsHandler).Methods(http.MethodGet)
	api.PathPrefix("/").HandlerFunc(s.apiNotFound)

	r.PathPrefix("/").HandlerFunc(s.spaHandler).Methods(http.MethodGet, http.MethodHead)
}

// Handler returns the full HTTP handler: CORS, panic recovery and request
// logging around the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)

	// rs/cors answers preflight requests before they reach the router.
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "Origin"},
		MaxAge:         86400,
	})
	return c.Handler(recoverer(s.logger, requestLogger(s.logger, r)))
}
