package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ytdash/internal/dash"
	"ytdash/internal/logger"
	"ytdash/internal/metrics"
)

const (
	manifestContentType = "application/dash+xml"
	maxRequestBody      = 1 << 20
	healthCheckTimeout  = 2 * time.Second
)

// ManifestCreator synthesizes a manifest for a request.
type ManifestCreator interface {
	Create(ctx context.Context, req dash.Request) (string, error)
}

type API struct {
	creator ManifestCreator
	logger  logger.Logger
	metrics *metrics.Metrics
	// cacheSize refreshes the cache gauge on each scrape; may be nil.
	cacheSize func() int
	checks    []healthCheck
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// Option configures the API.
type Option func(*API)

// WithHealthCheck adds a dependency check to /healthz. A failing check turns the
// response into 503.
func WithHealthCheck(name string, check func(context.Context) error) Option {
	return func(a *API) {
		a.checks = append(a.checks, healthCheck{name: name, check: check})
	}
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	Element    string `json:"element,omitempty"`
	StatusCode int    `json:"originStatus,omitempty"`
}

// New builds the HTTP handler. m may be nil to disable metrics.
func New(creator ManifestCreator, log logger.Logger, m *metrics.Metrics, cacheSize func() int, opts ...Option) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	api := &API{
		creator:   creator,
		logger:    log,
		metrics:   m,
		cacheSize: cacheSize,
	}
	for _, opt := range opts {
		opt(api)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(m))

	r.Get("/healthz", api.handleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler(api.updateGauges))
	r.Post("/v1/manifests", api.handleCreateManifest)

	return r
}

func (a *API) updateGauges() {
	if a.cacheSize != nil {
		a.metrics.SetCacheEntries(a.cacheSize())
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	for _, hc := range a.checks {
		if err := hc.check(ctx); err != nil {
			a.logger.Warnf("Health check %s failed: %v", hc.name, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "%s: %v", hc.name, err)
			return
		}
	}
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleCreateManifest(w http.ResponseWriter, r *http.Request) {
	var req dash.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.logger.Debugf("Invalid manifest request body: %v", err)
		writeError(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	// Clients may send only the itag number for well-known formats.
	req.Itag = req.Itag.WithDefaults()

	manifest, err := a.creator.Create(r.Context(), req)
	if err != nil {
		status, body := mapError(err)
		if status >= http.StatusInternalServerError {
			a.logger.Errorf("Manifest creation failed for %s itag %d: %v", req.DeliveryType, req.Itag.ID, err)
		}
		writeError(w, status, body)
		return
	}

	w.Header().Set("Content-Type", manifestContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(manifest))
}

// mapError converts a synthesis failure into an HTTP status and body.
func mapError(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error()}

	var ce *dash.CreationError
	if errors.As(err, &ce) {
		body.Kind = ce.Kind.String()
		body.Element = ce.Element
		body.StatusCode = ce.StatusCode
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, body
	}
	if ce == nil {
		return http.StatusInternalServerError, body
	}

	switch ce.Kind {
	case dash.KindPrecondition, dash.KindElement:
		return http.StatusBadRequest, body
	case dash.KindProbe:
		return http.StatusBadGateway, body
	case dash.KindDuration:
		return http.StatusUnprocessableEntity, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
