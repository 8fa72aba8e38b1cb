package main

import (
	"context"
	"fmt"
	"time"

	"github.com/judwhite/go-svc"
	"github.com/rs/zerolog"

	"github.com/packbridge/scalebridge/internal/cliconfig"
	"github.com/packbridge/scalebridge/internal/ingest"
	"github.com/packbridge/scalebridge/internal/monitor"
	"github.com/packbridge/scalebridge/pkg/bridge"
	"github.com/packbridge/scalebridge/pkg/log"
	"github.com/packbridge/scalebridge/plugins/configwatcher"
)

const monitorShutdownTimeout = 5 * time.Second

// program implements svc.Service. It assembles the bridge, the scale
// listener, the monitor server and the config watcher.
type program struct {
	cfg     cliconfig.Config
	cfgPath string
	zl      zerolog.Logger

	cancel   context.CancelFunc
	bridge   *bridge.Bridge
	listener *ingest.Listener
	monitor  *monitor.Server
	watcher  *configwatcher.Watcher
}

func newProgram(cfg cliconfig.Config, cfgPath string, zl zerolog.Logger) *program {
	return &program{cfg: cfg, cfgPath: cfgPath, zl: zl}
}

func (p *program) Init(env svc.Environment) error {
	if env != nil && env.IsWindowsService() {
		p.zl.Info().Msg("running as a service")
	}
	return nil
}

func (p *program) Start() error {
	logger := log.NewZerologAdapterWithLogger(p.zl)

	p.monitor = monitor.New(monitor.Config{Addr: p.cfg.MonitorAddr}, p.stats, logger)

	b, err := bridge.New(bridgeConfig(p.cfg),
		bridge.WithLogger(logger),
		bridge.WithEventHandler(monitor.NewEventHandler(p.monitor)),
	)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	p.bridge = b

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	if err := p.bridge.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start bridge: %w", err)
	}

	p.listener = ingest.New(ingest.Config{Addr: p.cfg.ListenAddr}, p.bridge, logger)
	if err := p.listener.Start(); err != nil {
		_ = p.bridge.Stop()
		cancel()
		return fmt.Errorf("start scale listener: %w", err)
	}

	p.monitor.Start()

	p.watcher = configwatcher.New(configwatcher.Config{Path: p.cfgPath}, logger)
	if err := p.watcher.Start(ctx, p.bridge); err != nil {
		p.zl.Warn().Err(err).Msg("config watcher unavailable")
		p.watcher = nil
	}

	return nil
}

func (p *program) Stop() error {
	if p.watcher != nil {
		p.watcher.Stop()
	}
	if p.listener != nil {
		if err := p.listener.Stop(); err != nil {
			p.zl.Warn().Err(err).Msg("scale listener close failed")
		}
	}

	var stopErr error
	if p.bridge != nil {
		stopErr = p.bridge.Stop()
	}

	if p.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), monitorShutdownTimeout)
		defer cancel()
		if err := p.monitor.Shutdown(ctx); err != nil {
			p.zl.Warn().Err(err).Msg("monitor shutdown failed")
		}
	}

	if p.cancel != nil {
		p.cancel()
	}
	return stopErr
}

func (p *program) stats() bridge.Stats {
	if p.bridge == nil {
		return bridge.Stats{}
	}
	return p.bridge.Stats()
}

func bridgeConfig(cfg cliconfig.Config) bridge.Config {
	return bridge.Config{
		PrinterAddr:      cfg.PrinterAddr(),
		LabelWidth:       cfg.LabelWidth,
		LabelHeight:      cfg.LabelHeight,
		DPI:              cfg.DPI,
		QueueCapacity:    cfg.QueueCapacity,
		AdmissionPolicy:  cfg.AdmissionPolicy,
		SendInterval:     cfg.SendInterval,
		MaxRetries:       cfg.MaxRetries,
		ConnectTimeout:   cfg.ConnectTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		DrainTimeout:     cfg.DrainTimeout,
		BackoffInitial:   cfg.BackoffInitial,
		BackoffMax:       cfg.BackoffMax,
		Template:         cfg.Template,
		DetailedPrefix:   cfg.DetailedPrefix,
		CompactThreshold: cfg.CompactThreshold,
		UnstableMarker:   cfg.UnstableMarker,
		LineNumber:       cfg.LineNumber,
	}
}
