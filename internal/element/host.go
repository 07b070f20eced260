package element

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
)

// Host binds a Native substrate to the scheduler of one execution context.
type Host struct {
	native    Native
	scheduler *Scheduler
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records mutations, flushes and UI method results.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Host) {
		h.metrics = m
	}
}

// NewHost creates a host whose flushes are deferred through deferrer.
func NewHost(native Native, deferrer Deferrer, opts ...Option) *Host {
	h := &Host{
		native: native,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.scheduler = NewScheduler(deferrer, native, h.metrics)
	return h
}

// Scheduler returns the host's flush scheduler.
func (h *Host) Scheduler() *Scheduler {
	return h.scheduler
}

// Wrap returns a fresh view of ref, or nil for a nil ref.
func (h *Host) Wrap(ref NodeRef) *Element {
	if ref == nil {
		return nil
	}
	return &Element{
		host:   h,
		ref:    ref,
		styles: make(map[string]string),
	}
}

// Document returns a view of the native root.
func (h *Host) Document() *Element {
	return h.Wrap(h.native.Root())
}

// QuerySelector queries from the native root.
func (h *Host) QuerySelector(selector string) *Element {
	doc := h.Document()
	if doc == nil {
		return nil
	}
	return doc.QuerySelector(selector)
}

// QuerySelectorAll queries from the native root.
func (h *Host) QuerySelectorAll(selector string) []*Element {
	doc := h.Document()
	if doc == nil {
		return []*Element{}
	}
	return doc.QuerySelectorAll(selector)
}
