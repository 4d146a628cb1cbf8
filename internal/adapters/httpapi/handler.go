// Package httpapi exposes the model service over HTTP using the routes of
// the public USEEIO API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"useeio/docs/schema/openapi"
	"useeio/internal/core"
	"useeio/internal/matrix"
	"useeio/pkg/domain"
)

// maxBodyBytes bounds calculation request bodies.
const maxBodyBytes = 8 << 20

// Backend is the subset of core.Service the handler needs.
type Backend interface {
	Models(ctx context.Context) []core.ModelInfo
	Model(ctx context.Context, model string) (*core.Model, error)
	Sectors(ctx context.Context, model string) ([]core.Sector, error)
	Sector(ctx context.Context, model, id string) (core.Sector, error)
	Flows(ctx context.Context, model string) ([]core.Flow, error)
	Flow(ctx context.Context, model, id string) (core.Flow, error)
	Indicators(ctx context.Context, model string) ([]core.Indicator, error)
	Indicator(ctx context.Context, model, id string) (core.Indicator, error)
	Demands(ctx context.Context, model string) ([]core.DemandInfo, error)
	Demand(ctx context.Context, model, id string) (core.Demand, error)
	Calculate(ctx context.Context, model string, req core.CalculationRequest) (core.Result, error)
	Matrix(ctx context.Context, model, name string, sel matrix.Selector) (core.MatrixView, error)
}

var _ Backend = (*core.Service)(nil)

// Handler routes API requests to a Backend.
type Handler struct {
	backend Backend
	router  *mux.Router
	logger  *slog.Logger
	limiter *rate.Limiter
	metrics http.Handler
	ready   func() bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRateLimit limits calculation requests to rps per second with the
// given burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(h *Handler) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetricsHandler mounts m at /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithReadiness makes /healthz report 503 while ready returns false.
func WithReadiness(ready func() bool) Option {
	return func(h *Handler) { h.ready = ready }
}

// New builds the API handler.
func New(backend Backend, opts ...Option) *Handler {
	h := &Handler{backend: backend, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h
}

func (h *Handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests, noCache)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/models", h.handleModels).Methods(http.MethodGet)
	api.HandleFunc("/openapi.yaml", handleOpenAPI).Methods(http.MethodGet)
	api.HandleFunc("/{model}/demands", h.handleDemands).Methods(http.MethodGet)
	api.HandleFunc("/{model}/demands/{id}", h.handleDemand).Methods(http.MethodGet)
	api.HandleFunc("/{model}/sectors", h.handleSectors).Methods(http.MethodGet)
	api.HandleFunc("/{model}/sectors/{id:.+}", h.handleSector).Methods(http.MethodGet)
	api.HandleFunc("/{model}/flows", h.handleFlows).Methods(http.MethodGet)
	api.HandleFunc("/{model}/flows/{id:.+}", h.handleFlow).Methods(http.MethodGet)
	api.HandleFunc("/{model}/indicators", h.handleIndicators).Methods(http.MethodGet)
	api.HandleFunc("/{model}/indicators/{id:.+}", h.handleIndicator).Methods(http.MethodGet)
	api.HandleFunc("/{model}/calculate", h.handleCalculate).Methods(http.MethodPost)
	api.HandleFunc("/{model}/matrix/{name}", h.handleMatrix).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if h.ready != nil && !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Models(r.Context()))
}

func (h *Handler) handleDemands(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Demands(ctx, v["model"])
	})
}

// handleDemand answers with the demand's info record and its entries.
func (h *Handler) handleDemand(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Demand(ctx, v["model"], v["id"])
	})
}

func (h *Handler) handleSectors(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Sectors(ctx, v["model"])
	})
}

func (h *Handler) handleSector(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Sector(ctx, v["model"], v["id"])
	})
}

func (h *Handler) handleFlows(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Flows(ctx, v["model"])
	})
}

func (h *Handler) handleFlow(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Flow(ctx, v["model"], v["id"])
	})
}

func (h *Handler) handleIndicators(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Indicators(ctx, v["model"])
	})
}

func (h *Handler) handleIndicator(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		return h.backend.Indicator(ctx, v["model"], v["id"])
	})
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "calculation rate limit exceeded")
		return
	}
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		if _, err := h.backend.Model(ctx, v["model"]); err != nil {
			return nil, err
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return nil, domain.InvalidArgument("calculate", "read body: %v", err)
		}
		req, err := DecodeCalculationRequest(body)
		if err != nil {
			return nil, err
		}
		return h.backend.Calculate(ctx, v["model"], req)
	})
}

// handleMatrix checks the model, then the matrix name, then the selector,
// so an unknown model or matrix is NotFound whatever the query holds.
func (h *Handler) handleMatrix(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h, func(ctx context.Context, v map[string]string) (any, error) {
		m, err := h.backend.Model(ctx, v["model"])
		if err != nil {
			return nil, err
		}
		if err := m.HasMatrix(v["name"]); err != nil {
			return nil, err
		}
		q := r.URL.Query()
		sel, err := matrix.ParseSelector(q.Get("row"), q.Get("col"))
		if err != nil {
			return nil, err
		}
		view, err := h.backend.Matrix(ctx, v["model"], v["name"], sel)
		if err != nil {
			return nil, err
		}
		return view.Payload(), nil
	})
}

// DecodeCalculationRequest accepts either a request object with demand,
// demandId and perspective fields or a bare demand in any encoding
// understood by domain.DemandVector.
func DecodeCalculationRequest(body []byte) (core.CalculationRequest, error) {
	const op = "decode calculation"
	var req core.CalculationRequest
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil && isRequestObject(fields) {
		if err := json.Unmarshal(body, &req); err != nil {
			return req, domain.InvalidArgument(op, "%v", err)
		}
		return req, nil
	}
	if err := json.Unmarshal(body, &req.Demand); err != nil {
		return req, domain.InvalidArgument(op, "%v", err)
	}
	return req, nil
}

func isRequestObject(fields map[string]json.RawMessage) bool {
	for _, k := range []string{"demand", "demandId", "perspective"} {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func respond(w http.ResponseWriter, r *http.Request, h *Handler, fn func(context.Context, map[string]string) (any, error)) {
	out, err := fn(r.Context(), mux.Vars(r))
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.DebugContext(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.APISpec)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
