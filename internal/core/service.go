package core

import (
	"context"
	"io"
	"log/slog"
	"time"

	"useeio/internal/matrix"
)

// Service exposes model queries and calculations to transport adapters and
// wraps every operation with tracing, metrics and logging.
type Service struct {
	registry *ModelRegistry
	logger   *slog.Logger
	metrics  MetricsRecorder
	tracer   Tracer
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the clock used for durations.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service over the given registry.
func NewService(registry *ModelRegistry, opts ...ServiceOption) *Service {
	if registry == nil {
		registry = NewModelRegistry()
	}
	s := &Service{
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:  noopMetrics{},
		tracer:   noopTracer{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the model registry backing the service.
func (s *Service) Registry() *ModelRegistry { return s.registry }

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

func observe[T any](ctx context.Context, s *Service, op string, fn func() (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.now()
	out, err := fn()
	s.metrics.Observe(ctx, op, err == nil, s.now().Sub(start))
	span.End(err)
	if err != nil {
		s.logger.DebugContext(ctx, "operation failed", "operation", op, "error", err)
	}
	return out, err
}

// Discover loads every model in src and publishes the admitted set.
func (s *Service) Discover(ctx context.Context, src Source, concurrency int) (DiscoveryReport, error) {
	return observe(ctx, s, "discover", func() (DiscoveryReport, error) {
		return Discover(ctx, src, s.registry, DiscoverOptions{Concurrency: concurrency, Logger: s.logger})
	})
}

// Models lists the published models.
func (s *Service) Models(ctx context.Context) []ModelInfo {
	out, _ := observe(ctx, s, "list_models", func() ([]ModelInfo, error) {
		models := s.registry.Models()
		infos := make([]ModelInfo, len(models))
		for i, m := range models {
			infos[i] = m.Info()
		}
		return infos, nil
	})
	return out
}

// Model returns a published model.
func (s *Service) Model(ctx context.Context, model string) (*Model, error) {
	return observe(ctx, s, "get_model", func() (*Model, error) {
		return s.registry.Get(model)
	})
}

func withModel[T any](ctx context.Context, s *Service, op, model string, fn func(*Model) (T, error)) (T, error) {
	return observe(ctx, s, op, func() (T, error) {
		m, err := s.registry.Get(model)
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(m)
	})
}

// Sectors lists the sectors of a model.
func (s *Service) Sectors(ctx context.Context, model string) ([]Sector, error) {
	return withModel(ctx, s, "list_sectors", model, func(m *Model) ([]Sector, error) { return m.Sectors(), nil })
}

// Sector returns one sector of a model.
func (s *Service) Sector(ctx context.Context, model, id string) (Sector, error) {
	return withModel(ctx, s, "get_sector", model, func(m *Model) (Sector, error) { return m.Sector(id) })
}

// Flows lists the flows of a model.
func (s *Service) Flows(ctx context.Context, model string) ([]Flow, error) {
	return withModel(ctx, s, "list_flows", model, func(m *Model) ([]Flow, error) { return m.Flows(), nil })
}

// Flow returns one flow of a model.
func (s *Service) Flow(ctx context.Context, model, id string) (Flow, error) {
	return withModel(ctx, s, "get_flow", model, func(m *Model) (Flow, error) { return m.Flow(id) })
}

// Indicators lists the indicators of a model.
func (s *Service) Indicators(ctx context.Context, model string) ([]Indicator, error) {
	return withModel(ctx, s, "list_indicators", model, func(m *Model) ([]Indicator, error) { return m.Indicators(), nil })
}

// Indicator returns one indicator of a model.
func (s *Service) Indicator(ctx context.Context, model, id string) (Indicator, error) {
	return withModel(ctx, s, "get_indicator", model, func(m *Model) (Indicator, error) { return m.Indicator(id) })
}

// Demands lists the stored demand scenarios of a model.
func (s *Service) Demands(ctx context.Context, model string) ([]DemandInfo, error) {
	return withModel(ctx, s, "list_demands", model, func(m *Model) ([]DemandInfo, error) { return m.Demands(), nil })
}

// Demand returns a stored demand scenario.
func (s *Service) Demand(ctx context.Context, model, id string) (Demand, error) {
	return withModel(ctx, s, "get_demand", model, func(m *Model) (Demand, error) { return m.Demand(id) })
}

// Calculate runs a calculation against a model.
func (s *Service) Calculate(ctx context.Context, model string, req CalculationRequest) (Result, error) {
	return withModel(ctx, s, "calculate", model, func(m *Model) (Result, error) { return m.Calculate(req) })
}

// Matrix queries a numeric or DQI matrix of a model.
func (s *Service) Matrix(ctx context.Context, model, name string, sel matrix.Selector) (MatrixView, error) {
	return withModel(ctx, s, "get_matrix", model, func(m *Model) (MatrixView, error) { return m.QueryMatrix(name, sel) })
}
