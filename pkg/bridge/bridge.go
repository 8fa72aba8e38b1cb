package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/packbridge/scalebridge/internal/app"
	"github.com/packbridge/scalebridge/internal/domain"
	"github.com/packbridge/scalebridge/internal/mettler"
	"github.com/packbridge/scalebridge/internal/ports"
	"github.com/packbridge/scalebridge/internal/queue"
	"github.com/packbridge/scalebridge/internal/sender"
	"github.com/packbridge/scalebridge/internal/zpl"
)

type counter struct {
	v atomic.Uint64
}

func (c *counter) inc()         { c.v.Add(1) }
func (c *counter) load() uint64 { return c.v.Load() }

// Stats is a point-in-time snapshot of bridge activity.
type Stats struct {
	Records      uint64
	ParseErrors  uint64
	RenderErrors uint64
	Filtered     uint64
	Submitted    uint64
	Rejected     uint64
	Delivered    uint64
	Dropped      uint64

	QueueDepth    int
	QueueCapacity int

	Connection string
	State      string
}

// Bridge ties the frame parser, template engine, print queue and sender
// together behind a single lifecycle.
type Bridge struct {
	cfgMu  sync.Mutex
	cfg    Config
	logger Logger

	lifecycle *app.Lifecycle
	pipeline  *app.Pipeline
	queue     *queue.Queue
	sender    *sender.Sender
	events    *eventBridge

	runCtx context.Context
	cancel context.CancelFunc

	delivered counter
	dropped   counter
}

// New creates a Bridge from the configuration. The returned bridge is
// stopped; call Start to begin accepting data.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	b := &Bridge{
		cfg:    cfg,
		logger: o.logger,
	}
	b.events = &eventBridge{
		handler:   o.handler,
		delivered: &b.delivered,
		dropped:   &b.dropped,
	}

	policy, err := queue.ParsePolicy(cfg.AdmissionPolicy)
	if err != nil {
		return nil, err
	}
	b.queue = queue.New(cfg.QueueCapacity, policy)

	engine := zpl.NewEngine(zpl.Config{
		LabelWidth:       cfg.LabelWidth,
		LabelHeight:      cfg.LabelHeight,
		DPI:              cfg.DPI,
		DetailedPrefix:   cfg.DetailedPrefix,
		CompactThreshold: cfg.CompactThreshold,
		UnstableMarker:   cfg.UnstableMarker,
		LineNumber:       cfg.LineNumber,
	})

	filter := o.filter
	if filter == nil {
		filter = app.DefaultFilter
	}
	parser := mettler.NewParser(o.checksum)
	b.pipeline = app.NewPipeline(parser, engine, b.queue, filter, cfg.Template, o.logger, b.events)

	b.sender = sender.New(sender.Config{
		Addr:           cfg.PrinterAddr,
		ConnectTimeout: cfg.ConnectTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		SendInterval:   cfg.SendInterval,
		MaxRetries:     cfg.MaxRetries,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
	}, b.queue, o.dialer, o.clock, o.logger, b.events)

	b.lifecycle = app.NewLifecycle(o.logger, b.events)
	return b, nil
}

// Start transitions the bridge to running and launches the sender.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "start requested"); err != nil {
		return err
	}

	b.runCtx, b.cancel = context.WithCancel(ctx)
	b.lifecycle.SetCancel(b.cancel)

	b.lifecycle.AddWorker()
	go func() {
		defer b.lifecycle.WorkerDone()
		if err := b.sender.Run(b.runCtx); err != nil {
			b.logger.Error("sender stopped", ports.Err(err))
		}
	}()

	if err := b.lifecycle.TransitionTo(app.StateRunning, "started"); err != nil {
		return err
	}
	b.logger.Info("bridge started",
		ports.String("printer", b.cfg.PrinterAddr),
		ports.Int("queue_capacity", b.cfg.QueueCapacity),
		ports.String("admission", b.cfg.AdmissionPolicy))
	return nil
}

// Feed pushes raw bytes from the scale into the pipeline. Chunks may
// split frames at any byte boundary.
func (b *Bridge) Feed(chunk []byte) error {
	if b.lifecycle.State() != app.StateRunning {
		return domain.ErrNotRunning
	}
	b.pipeline.Ingest(b.runCtx, chunk)
	return nil
}

// Stop drains the queue and shuts the bridge down. Labels still queued
// after DrainTimeout are dropped.
func (b *Bridge) Stop() error {
	if !b.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateDraining, "stop requested"); err != nil {
		return err
	}

	b.queue.Close()

	err := b.lifecycle.Drain(b.cfg.DrainTimeout, func() {
		for _, job := range b.queue.Drain() {
			b.events.OnDropped(job, domain.ErrShutdownTimeout)
		}
	})
	if err != nil {
		b.lifecycle.TransitionTo(app.StateCrashed, "shutdown timed out")
		return err
	}
	if err := b.lifecycle.TransitionTo(app.StateStopped, "stopped"); err != nil {
		return err
	}
	b.logger.Info("bridge stopped")
	return nil
}

// Status returns the current lifecycle state.
func (b *Bridge) Status() State {
	return convertState(b.lifecycle.State())
}

// Connection returns the current printer connection state.
func (b *Bridge) Connection() string {
	return b.sender.State().String()
}

// Stats returns a snapshot of pipeline and delivery counters.
func (b *Bridge) Stats() Stats {
	snap := b.pipeline.Snapshot()
	return Stats{
		Records:       snap.Records,
		ParseErrors:   snap.ParseErrors,
		RenderErrors:  snap.RenderErrors,
		Filtered:      snap.Filtered,
		Submitted:     snap.Submitted,
		Rejected:      snap.Rejected,
		Delivered:     b.delivered.load(),
		Dropped:       b.dropped.load(),
		QueueDepth:    b.queue.Len(),
		QueueCapacity: b.queue.Cap(),
		Connection:    b.sender.State().String(),
		State:         b.lifecycle.State().String(),
	}
}

// RenderConfig returns the rendering subset of the current
// configuration. Callers changing individual settings start from this
// snapshot so untouched settings survive the swap.
func (b *Bridge) RenderConfig() Config {
	b.cfgMu.Lock()
	defer b.cfgMu.Unlock()
	return Config{
		LabelWidth:       b.cfg.LabelWidth,
		LabelHeight:      b.cfg.LabelHeight,
		DPI:              b.cfg.DPI,
		Template:         b.cfg.Template,
		DetailedPrefix:   b.cfg.DetailedPrefix,
		CompactThreshold: b.cfg.CompactThreshold,
		UnstableMarker:   b.cfg.UnstableMarker,
		LineNumber:       b.cfg.LineNumber,
	}
}

// SetRenderConfig swaps the rendering configuration at runtime. It is
// used by the config watcher plugin for hot reload. Only the rendering
// fields of cfg are applied.
func (b *Bridge) SetRenderConfig(cfg Config) {
	b.cfgMu.Lock()
	b.cfg.LabelWidth = cfg.LabelWidth
	b.cfg.LabelHeight = cfg.LabelHeight
	b.cfg.DPI = cfg.DPI
	b.cfg.Template = cfg.Template
	b.cfg.DetailedPrefix = cfg.DetailedPrefix
	b.cfg.CompactThreshold = cfg.CompactThreshold
	b.cfg.UnstableMarker = cfg.UnstableMarker
	b.cfg.LineNumber = cfg.LineNumber
	b.cfgMu.Unlock()

	engine := zpl.NewEngine(zpl.Config{
		LabelWidth:       cfg.LabelWidth,
		LabelHeight:      cfg.LabelHeight,
		DPI:              cfg.DPI,
		DetailedPrefix:   cfg.DetailedPrefix,
		CompactThreshold: cfg.CompactThreshold,
		UnstableMarker:   cfg.UnstableMarker,
		LineNumber:       cfg.LineNumber,
	})
	b.pipeline.SetRender(engine, cfg.Template)
}

// SetFilter swaps the status filter at runtime.
func (b *Bridge) SetFilter(filter FilterFunc) {
	b.pipeline.SetFilter(filter)
}
