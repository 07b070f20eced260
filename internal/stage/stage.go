package stage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/bridge"
	"github.com/GriffinCanCode/motionbridge/internal/element"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/motionbridge/internal/motion"
	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
	"github.com/GriffinCanCode/motionbridge/internal/native"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/scene"
	"github.com/GriffinCanCode/motionbridge/internal/script"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

// Config configures a Stage.
type Config struct {
	FrameInterval time.Duration
	Sanitize      bool
	Script        script.Config
}

// DefaultConfig returns a 60fps stage with the default script limits.
func DefaultConfig() Config {
	return Config{
		FrameInterval: 16 * time.Millisecond,
		Sanitize:      true,
		Script:        script.DefaultConfig(),
	}
}

// Stage wires one page to one privileged loop: the native tree, the element
// host flushing on that loop, the animation engine and the script runtime.
type Stage struct {
	metrics *monitoring.Metrics
	logger  *zap.Logger

	registry *registry.Registry
	main     *thread.Loop
	bridge   *bridge.Bridge
	tree     *native.Tree
	host     *element.Host
	engine   *tween.Engine
	motion   *motion.Motion
	runtime  *script.Runtime
}

// Option configures a Stage.
type Option func(*Stage)

// WithLogger sets the logger. Components log under named children.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics shares a metrics set. By default the stage creates its own.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Stage) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New builds and starts a stage holding an empty page.
func New(cfg Config, opts ...Option) (*Stage, error) {
	s := &Stage{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = monitoring.NewMetrics()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultConfig().FrameInterval
	}

	s.registry = registry.New(
		registry.WithLogger(s.logger.Named("registry")),
		registry.WithMetrics(s.metrics),
	)
	s.main = bridge.NewMainLoop("main", s.registry,
		thread.WithLogger(s.logger.Named("loop")),
		thread.WithMetrics(s.metrics),
	)
	s.main.Start()

	s.bridge = bridge.New(s.main, s.registry, bridge.WithLogger(s.logger.Named("bridge")))
	s.tree = native.New(
		native.WithLogger(s.logger.Named("native")),
		native.WithSanitize(cfg.Sanitize),
	)
	s.host = element.NewHost(s.tree, s.main,
		element.WithLogger(s.logger.Named("element")),
		element.WithMetrics(s.metrics),
	)
	s.engine = tween.NewEngine(s.main,
		tween.WithFrameInterval(cfg.FrameInterval),
		tween.WithLogger(s.logger.Named("tween")),
	)
	s.motion = motion.New(s.bridge, s.engine, motion.WithLogger(s.logger.Named("motion")))

	rt, err := script.New(s.bridge, s.host, s.motion, cfg.Script,
		script.WithLogger(s.logger.Named("script")),
		script.WithMetrics(s.metrics),
	)
	if err != nil {
		s.main.Stop()
		return nil, fmt.Errorf("failed to create script runtime: %w", err)
	}
	s.runtime = rt
	return s, nil
}

// Metrics returns the stage metrics.
func (s *Stage) Metrics() *monitoring.Metrics { return s.metrics }

// Bridge returns the bridge of the privileged loop.
func (s *Stage) Bridge() *bridge.Bridge { return s.bridge }

// Tree returns the native tree.
func (s *Stage) Tree() *native.Tree { return s.tree }

// Host returns the element host.
func (s *Stage) Host() *element.Host { return s.host }

// Motion returns the animation entry points.
func (s *Stage) Motion() *motion.Motion { return s.motion }

// Runtime returns the script runtime.
func (s *Stage) Runtime() *script.Runtime { return s.runtime }

// LoadPage replaces the page. The script VM is rebuilt so document globals
// point at the new page; registered handles stay bound.
func (s *Stage) LoadPage(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, native.MaxPageSize+1))
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	_, err = s.bridge.RunOnMain(ctx, func(ctx context.Context) (any, error) {
		if err := s.tree.Load(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		return nil, s.runtime.Reset(ctx)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Page loaded", zap.Int("bytes", len(data)))
	return nil
}

// Execute runs a script on the privileged loop.
func (s *Stage) Execute(ctx context.Context, source string) (*script.Result, error) {
	return s.runtime.Execute(ctx, source)
}

// PlayResult reports one scene run.
type PlayResult struct {
	Scene   string           `json:"scene"`
	Origin  string           `json:"origin,omitempty"`
	Scripts []*script.Result `json:"scripts"`
}

// Play loads the scene page, if any, then runs its scripts in order. It
// stops at the first failing script; the partial result is returned with
// the error.
func (s *Stage) Play(ctx context.Context, sc *scene.Scene) (*PlayResult, error) {
	res := &PlayResult{Scene: sc.Name, Origin: sc.Origin, Scripts: []*script.Result{}}
	if sc.Page != "" {
		if err := s.LoadPage(ctx, bytes.NewBufferString(sc.Page)); err != nil {
			return res, fmt.Errorf("scene %q: %w", sc.Name, err)
		}
	}
	for _, sp := range sc.Scripts {
		r, err := s.Execute(ctx, sp.Source)
		if r != nil {
			res.Scripts = append(res.Scripts, r)
		}
		if err != nil {
			return res, fmt.Errorf("scene %q script %q: %w", sc.Name, sp.Name, err)
		}
	}
	s.logger.Info("Scene played",
		zap.String("scene", sc.Name),
		zap.Int("scripts", len(res.Scripts)),
	)
	return res, nil
}

// Status summarizes the stage for health reporting.
type Status struct {
	Seq        uint64                     `json:"seq"`
	Pending    int                        `json:"pending"`
	Handles    int                        `json:"handles"`
	Animations int                        `json:"animations"`
	Exports    map[string]registry.Handle `json:"exports"`
	Snapshot   monitoring.Snapshot        `json:"metrics"`
}

// Status reports flush and registry state.
func (s *Stage) Status() Status {
	return Status{
		Seq:        s.tree.Seq(),
		Pending:    len(s.tree.Pending()),
		Handles:    s.registry.Len(),
		Animations: s.motion.Running(),
		Exports:    s.bridge.Exports(),
		Snapshot:   s.metrics.Snapshot(),
	}
}

// Close shuts the runtime down, then the loop.
func (s *Stage) Close() error {
	err := s.runtime.Close()
	s.main.Stop()
	if errors.Is(err, thread.ErrLoopStopped) {
		err = nil
	}
	return err
}
