// Package ingest accepts TCP connections from the checkweigher and feeds
// raw chunks into the bridge.
package ingest

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/packbridge/scalebridge/internal/ports"
)

const defaultBufferSize = 4096

// Feeder consumes raw bytes from a scale connection.
type Feeder interface {
	Feed(chunk []byte) error
}

// Config holds the listener configuration.
type Config struct {
	// Addr is the TCP listen address for scale connections.
	Addr string

	// BufferSize is the per-connection read buffer size.
	BufferSize int

	// IdleTimeout closes connections that stay silent longer than this.
	// Zero disables the timeout.
	IdleTimeout time.Duration
}

// Listener accepts scale connections and pumps their bytes into a Feeder.
// Multiple scales may connect; each connection gets its own reader.
type Listener struct {
	cfg    Config
	feeder Feeder
	logger ports.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates a listener. It does not accept until Start.
func New(cfg Config, feeder Feeder, logger ports.Logger) *Listener {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return &Listener{
		cfg:    cfg,
		feeder: feeder,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start binds the listen address and begins accepting connections.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.logger.Info("scale listener started", ports.String("addr", ln.Addr().String()))

	l.wg.Add(1)
	go l.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stop closes the listener and all active connections.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	ln := l.ln
	for conn := range l.conns {
		_ = conn.Close()
	}
	l.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	l.wg.Wait()
	return err
}

func (l *Listener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept failed", ports.Err(err))
			continue
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = conn.Close()
			return
		}
		l.conns[conn] = struct{}{}
		l.mu.Unlock()

		l.logger.Info("scale connected", ports.String("remote", conn.RemoteAddr().String()))
		l.wg.Add(1)
		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		_ = conn.Close()
		l.logger.Info("scale disconnected", ports.String("remote", conn.RemoteAddr().String()))
	}()

	buf := make([]byte, l.cfg.BufferSize)
	for {
		if l.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(l.cfg.IdleTimeout))
		}
		n, err := conn.Read(buf)
		if n > 0 {
			if ferr := l.feeder.Feed(buf[:n]); ferr != nil {
				l.logger.Warn("feed rejected, dropping connection", ports.Err(ferr))
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
