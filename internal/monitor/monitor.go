// Package monitor exposes bridge status over HTTP and streams events to
// websocket subscribers.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/packbridge/scalebridge/internal/ports"
	"github.com/packbridge/scalebridge/pkg/bridge"
)

// StatusFunc supplies the current bridge statistics.
type StatusFunc func() bridge.Stats

// Config holds the monitor server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// ReadTimeout bounds request header reads.
	ReadTimeout time.Duration
}

// Event is the wire form of a broadcast bridge event.
type Event struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data,omitempty"`
}

// request is an incoming websocket message.
type request struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Server serves /health for polling and /ws for event streaming.
type Server struct {
	cfg     Config
	status  StatusFunc
	clients *clientRegistry
	logger  ports.Logger
	httpSrv *http.Server
}

// New creates a monitor server. It does not listen until Start.
func New(cfg Config, status StatusFunc, logger ports.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		status:  status,
		clients: newClientRegistry(),
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}
	return s
}

// Handler returns the HTTP handler, for mounting under an existing
// server or for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("monitor listening", ports.String("addr", s.cfg.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitor server failed", ports.Err(err))
		}
	}()
}

// Shutdown stops the HTTP server and closes all subscriber connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.clients.closeAll(websocket.StatusGoingAway, "shutting down")
	return s.httpSrv.Shutdown(ctx)
}

// Subscribers returns the number of connected websocket clients.
func (s *Server) Subscribers() int {
	return s.clients.count()
}

// Publish queues an event for all websocket subscribers. It never
// blocks: a subscriber whose backlog is full misses the event, so a
// stalled client cannot hold up the pipeline emitting it.
func (s *Server) Publish(eventType string, data interface{}) {
	if s.clients.count() == 0 {
		return
	}
	event := Event{Type: eventType, At: time.Now(), Data: data}
	if dropped := s.clients.publish(event); dropped > 0 {
		s.logger.Warn("slow subscribers missed event",
			ports.String("type", eventType),
			ports.Int("subscribers", dropped))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Warn("health encode failed", ports.Err(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", ports.Err(err))
		return
	}

	sub := newSubscriber(conn)
	s.clients.add(sub)
	s.logger.Info("subscriber connected",
		ports.String("remote", r.RemoteAddr),
		ports.Int("total", s.clients.count()))

	ctx, cancel := context.WithCancel(r.Context())
	go s.writeLoop(ctx, sub)

	sub.enqueue(Event{Type: "hello", At: time.Now(), Data: s.status()})

	s.readLoop(ctx, sub)

	s.clients.remove(sub)
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "disconnected")
	s.logger.Info("subscriber disconnected", ports.Int("remaining", s.clients.count()))
}

// writeLoop is the sole writer on the connection, draining the
// subscriber's queue. It exits on the first failed write; the read
// loop then notices the dead connection and cleans up.
func (s *Server) writeLoop(ctx context.Context, sub *subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.send:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, sub.conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, sub *subscriber) {
	for {
		var req request
		if err := wsjson.Read(ctx, sub.conn, &req); err != nil {
			return
		}

		switch req.Type {
		case "status":
			sub.enqueue(Event{Type: "status", At: time.Now(), Data: s.status()})
		case "ping":
			sub.enqueue(Event{Type: "pong", At: time.Now(), Data: req.ID})
		default:
			sub.enqueue(Event{Type: "error", At: time.Now(),
				Data: "unknown request type: " + req.Type})
		}
	}
}

// EventHandler forwards bridge events to websocket subscribers. Register
// it with bridge.WithEventHandler.
type EventHandler struct {
	bridge.BaseEventHandler
	server *Server
}

// NewEventHandler creates a handler publishing to the given server.
func NewEventHandler(server *Server) *EventHandler {
	return &EventHandler{server: server}
}

func (h *EventHandler) OnStateChange(event bridge.StateChangeEvent) {
	h.server.Publish("state_change", map[string]string{
		"previous": event.Previous.String(),
		"current":  event.Current.String(),
		"reason":   event.Reason,
	})
}

func (h *EventHandler) OnConnection(event bridge.ConnectionEvent) {
	h.server.Publish("connection", map[string]string{
		"previous": event.Previous,
		"current":  event.Current,
	})
}

func (h *EventHandler) OnDelivered(event bridge.DeliveredEvent) {
	h.server.Publish("delivered", event)
}

func (h *EventHandler) OnDropped(event bridge.DroppedEvent) {
	h.server.Publish("dropped", event)
}

func (h *EventHandler) OnRejected(event bridge.RejectedEvent) {
	h.server.Publish("rejected", event)
}

func (h *EventHandler) OnParseError(event bridge.ParseErrorEvent) {
	h.server.Publish("parse_error", map[string]string{"error": event.Err.Error()})
}

func (h *EventHandler) OnRenderError(event bridge.RenderErrorEvent) {
	h.server.Publish("render_error", map[string]string{"error": event.Err.Error()})
}
