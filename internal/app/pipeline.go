// Package app wires the conversion pipeline together and manages the
// bridge lifecycle state machine.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/packbridge/scalebridge/internal/domain"
	"github.com/packbridge/scalebridge/internal/mettler"
	"github.com/packbridge/scalebridge/internal/ports"
	"github.com/packbridge/scalebridge/internal/queue"
	"github.com/packbridge/scalebridge/internal/zpl"
)

// FilterFunc decides whether a validated record produces a label.
type FilterFunc func(domain.WeightRecord) bool

// DefaultFilter prints stable weighments unconditionally and
// under-weight ones only when they carry the target qualifier; unstable
// and over-weight readings produce no label.
func DefaultFilter(rec domain.WeightRecord) bool {
	switch rec.Status {
	case domain.StatusStable:
		return true
	case domain.StatusUnder:
		return rec.Target == "T"
	default:
		return false
	}
}

// Stats are the pipeline's monotonic processing counters.
type Stats struct {
	Records      uint64
	ParseErrors  uint64
	RenderErrors uint64
	Filtered     uint64
	Submitted    uint64
	Rejected     uint64
}

// Pipeline consumes raw scale bytes and submits rendered labels to the
// print queue. Ingest runs synchronously on the byte source's goroutine;
// the queue boundary is where backpressure applies.
type Pipeline struct {
	parser  *mettler.Parser
	qu      *queue.Queue
	logger  ports.Logger
	emitter ports.EventEmitter

	// engine, filter and template are swappable at runtime by the config
	// watcher; reads take the lock once per record.
	mu       sync.RWMutex
	engine   *zpl.Engine
	filter   FilterFunc
	template string

	records      atomic.Uint64
	parseErrors  atomic.Uint64
	renderErrors atomic.Uint64
	filtered     atomic.Uint64
	submitted    atomic.Uint64
	rejected     atomic.Uint64
}

// NewPipeline creates a pipeline submitting to q. A nil filter defaults
// to DefaultFilter; an empty template name means per-record inference.
func NewPipeline(parser *mettler.Parser, engine *zpl.Engine, q *queue.Queue, filter FilterFunc, template string, logger ports.Logger, emitter ports.EventEmitter) *Pipeline {
	if filter == nil {
		filter = DefaultFilter
	}
	return &Pipeline{
		parser:   parser,
		qu:       q,
		logger:   logger,
		emitter:  emitter,
		engine:   engine,
		filter:   filter,
		template: template,
	}
}

// Ingest feeds one chunk of raw bytes through parse, filter, render and
// submit. No record-scoped error ever stops the pipeline: bad frames and
// unrenderable records are reported and skipped.
func (p *Pipeline) Ingest(ctx context.Context, chunk []byte) {
	for _, res := range p.parser.Feed(chunk) {
		if res.Err != nil {
			p.parseErrors.Add(1)
			p.logger.Warn("frame discarded", ports.Err(res.Err))
			if p.emitter != nil {
				p.emitter.OnParseError(res.Err)
			}
			continue
		}
		p.records.Add(1)
		p.process(ctx, res.Record)
	}
}

func (p *Pipeline) process(ctx context.Context, rec domain.WeightRecord) {
	p.mu.RLock()
	engine, filter, template := p.engine, p.filter, p.template
	p.mu.RUnlock()

	if !filter(rec) {
		p.filtered.Add(1)
		p.logger.Debug("record filtered",
			ports.String("status", rec.Status.String()),
			ports.Float64("weight", rec.Weight),
		)
		return
	}

	doc, err := engine.Render(rec, template)
	if err != nil {
		p.renderErrors.Add(1)
		p.logger.Warn("render failed", ports.Err(err), ports.String("product", rec.Product))
		if p.emitter != nil {
			p.emitter.OnRenderError(err)
		}
		return
	}

	job, err := p.qu.Submit(ctx, doc)
	if err != nil {
		p.rejected.Add(1)
		if errors.Is(err, domain.ErrQueueFull) {
			p.logger.Warn("queue full, label rejected", ports.String("product", rec.Product))
			if p.emitter != nil {
				p.emitter.OnRejected(err)
			}
			return
		}
		p.logger.Warn("submit failed", ports.Err(err))
		return
	}

	p.submitted.Add(1)
	p.logger.Info("label queued",
		ports.String("job", job.ID.String()),
		ports.Uint64("seq", job.Seq),
		ports.String("template", doc.Template),
		ports.Float64("weight", rec.Weight),
		ports.String("unit", rec.Unit),
	)
}

// SetRender swaps the template engine and explicit template name.
// Used by the config watcher for hot reload.
func (p *Pipeline) SetRender(engine *zpl.Engine, template string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine = engine
	p.template = template
}

// SetFilter swaps the status predicate. A nil filter restores the default.
func (p *Pipeline) SetFilter(filter FilterFunc) {
	if filter == nil {
		filter = DefaultFilter
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = filter
}

// Snapshot returns the current processing counters.
func (p *Pipeline) Snapshot() Stats {
	return Stats{
		Records:      p.records.Load(),
		ParseErrors:  p.parseErrors.Load(),
		RenderErrors: p.renderErrors.Load(),
		Filtered:     p.filtered.Load(),
		Submitted:    p.submitted.Load(),
		Rejected:     p.rejected.Load(),
	}
}
