package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/city-locator/internal/amap"
	"github.com/couchcryptid/city-locator/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CityResolver resolves a known coordinate to a city.
type CityResolver interface {
	Resolve(ctx context.Context, fix domain.PositionFix) (domain.ResolvedCity, error)
}

// CityLocator runs one acquisition cycle on the device provider.
type CityLocator interface {
	Locate(ctx context.Context) (domain.ResolvedCity, error)
}

// ReadinessFunc adapts a function to sharedobs.ReadinessChecker.
type ReadinessFunc func(ctx context.Context) error

func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// Deps are the collaborators behind the HTTP routes.
type Deps struct {
	Ready    sharedobs.ReadinessChecker
	Resolver CityResolver
	Locator  CityLocator
	AMap     amap.Options

	// LocateTimeout bounds POST /v1/locate.
	LocateTimeout time.Duration
}

// Server exposes health, readiness, metrics and lookup endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 lookup routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: deps.LocateTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/city", s.handleCity)
	mux.HandleFunc("POST /v1/locate", s.handleLocate)
	mux.HandleFunc("GET /v1/amap/path", s.handleAMapPath)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	at, err := parseCoordinate(r, "lat", "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	city, err := s.deps.Resolver.Resolve(r.Context(), domain.PositionFix{
		Coordinate: at,
		Timestamp:  domain.Clock().Now(),
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, city)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.LocateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.LocateTimeout)
		defer cancel()
	}

	city, err := s.deps.Locator.Locate(ctx)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, city)
}

func (s *Server) handleAMapPath(w http.ResponseWriter, r *http.Request) {
	current, err := parseCoordinate(r, "slat", "slon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, err := parseCoordinate(r, "dlat", "dlon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u := amap.BuildPathURL(target, current, r.URL.Query().Get("name"), s.deps.AMap)
	if u == nil {
		writeError(w, http.StatusUnprocessableEntity, errors.New("deep link could not be encoded"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"url": u.String()})
}

// writeFailure maps a locator failure to an HTTP status.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, errors.New("timed out waiting for a location"))
		return
	}

	var f *domain.Failure
	if !errors.As(err, &f) {
		s.logger.Error("lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	status := http.StatusBadGateway
	switch f.Kind {
	case domain.ServiceDisabled:
		status = http.StatusServiceUnavailable
	case domain.PermissionInsufficient, domain.PermissionDenied:
		status = http.StatusForbidden
	case domain.GeocodeEmptyResult, domain.GeocodeIncompletePlace:
		status = http.StatusNotFound
	}

	s.logger.Warn("lookup failed", "kind", f.Kind.String(), "error", f)
	sharedobs.WriteJSON(w, status, map[string]string{
		"kind":  f.Kind.String(),
		"error": f.Error(),
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func parseCoordinate(r *http.Request, latKey, lonKey string) (domain.Coordinate, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get(latKey), 64)
	if err != nil || lat < -90 || lat > 90 {
		return domain.Coordinate{}, errors.New("invalid " + latKey)
	}
	lon, err := strconv.ParseFloat(q.Get(lonKey), 64)
	if err != nil || lon < -180 || lon > 180 {
		return domain.Coordinate{}, errors.New("invalid " + lonKey)
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}
