package bridge_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
	"github.com/packbridge/scalebridge/internal/mettler"
	"github.com/packbridge/scalebridge/pkg/bridge"
)

// printerSink accepts connections like a network printer and records
// everything written to it.
type printerSink struct {
	ln net.Listener

	// readers tracks in-flight connection readers so received() can wait
	// for them to drain after the peer closes.
	readers sync.WaitGroup

	mu  sync.Mutex
	buf []byte
}

func newPrinterSink(t *testing.T) *printerSink {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &printerSink{ln: ln}
	go s.accept()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *printerSink) accept() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.readers.Add(1)
		go func() {
			defer s.readers.Done()
			buf := make([]byte, 4096)
			for {
				n, err := conn.Read(buf)
				if n > 0 {
					s.mu.Lock()
					s.buf = append(s.buf, buf[:n]...)
					s.mu.Unlock()
				}
				if err != nil {
					return
				}
			}
		}()
	}
}

func (s *printerSink) addr() string { return s.ln.Addr().String() }

func (s *printerSink) received() string {
	s.readers.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

type recordingHandler struct {
	bridge.BaseEventHandler
	delivered chan bridge.DeliveredEvent
	dropped   chan bridge.DroppedEvent
	rejected  chan bridge.RejectedEvent
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		delivered: make(chan bridge.DeliveredEvent, 16),
		dropped:   make(chan bridge.DroppedEvent, 16),
		rejected:  make(chan bridge.RejectedEvent, 16),
	}
}

func (h *recordingHandler) OnDelivered(e bridge.DeliveredEvent) { h.delivered <- e }
func (h *recordingHandler) OnDropped(e bridge.DroppedEvent)     { h.dropped <- e }
func (h *recordingHandler) OnRejected(e bridge.RejectedEvent)   { h.rejected <- e }

func frame(body string) []byte {
	return []byte(fmt.Sprintf("\x02%s\x03%s\r\n", body, mettler.Trailer([]byte(body))))
}

func TestBridge_EndToEnd(t *testing.T) {
	sink := newPrinterSink(t)
	handler := newRecordingHandler()

	b, err := bridge.New(bridge.Config{
		PrinterAddr:  sink.addr(),
		SendInterval: 0,
	}, bridge.WithEventHandler(handler))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if b.Status() != bridge.StateRunning {
		t.Fatalf("Status = %v, want running", b.Status())
	}

	if err := b.Feed(frame("WT,01250.5,g,S,T,PROD001,2024-08-25T10:30:15")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	select {
	case e := <-handler.delivered:
		if e.Template != "standard" {
			t.Errorf("delivered Template = %q, want standard", e.Template)
		}
		if e.Attempts != 1 {
			t.Errorf("delivered Attempts = %d, want 1", e.Attempts)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("label never delivered")
	}

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if b.Status() != bridge.StateStopped {
		t.Errorf("Status after Stop = %v, want stopped", b.Status())
	}

	got := sink.received()
	for _, want := range []string{"^XA", "^FD1250.5 g^FS", "^FDPROD001^FS", "^FDOK^FS", "^XZ"} {
		if !strings.Contains(got, want) {
			t.Errorf("printer output missing %q:\n%s", want, got)
		}
	}

	stats := b.Stats()
	if stats.Records != 1 || stats.Submitted != 1 || stats.Delivered != 1 {
		t.Errorf("Stats = %+v, want one record submitted and delivered", stats)
	}
}

func TestBridge_FeedBeforeStart(t *testing.T) {
	b, err := bridge.New(bridge.Config{PrinterAddr: "127.0.0.1:9100"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := b.Feed([]byte("data")); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Feed before Start = %v, want ErrNotRunning", err)
	}
}

func TestBridge_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  bridge.Config
	}{
		{name: "missing printer addr", cfg: bridge.Config{}},
		{name: "bad admission policy", cfg: bridge.Config{PrinterAddr: "p:9100", AdmissionPolicy: "drop"}},
		{name: "bad template", cfg: bridge.Config{PrinterAddr: "p:9100", Template: "fancy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bridge.New(tt.cfg); !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("New error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestBridge_RenderConfigTracksSwaps(t *testing.T) {
	b, err := bridge.New(bridge.Config{PrinterAddr: "127.0.0.1:9100"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got := b.RenderConfig()
	if got.DetailedPrefix != "PRM" {
		t.Errorf("default DetailedPrefix = %q, want PRM", got.DetailedPrefix)
	}
	if got.CompactThreshold != 50.0 {
		t.Errorf("default CompactThreshold = %v, want 50.0", got.CompactThreshold)
	}

	got.Template = "compact"
	b.SetRenderConfig(got)

	got = b.RenderConfig()
	if got.Template != "compact" {
		t.Errorf("Template after swap = %q, want compact", got.Template)
	}
	if got.DetailedPrefix != "PRM" {
		t.Errorf("DetailedPrefix after swap = %q, want PRM unchanged", got.DetailedPrefix)
	}
}

func TestBridge_UnreachablePrinterDropsOnStop(t *testing.T) {
	// Bind then immediately close, so the port refuses connections.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	handler := newRecordingHandler()
	b, err := bridge.New(bridge.Config{
		PrinterAddr:    addr,
		BackoffInitial: 10 * time.Millisecond,
		BackoffMax:     20 * time.Millisecond,
		DrainTimeout:   100 * time.Millisecond,
	}, bridge.WithEventHandler(handler))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := b.Feed(frame("WT,01250.5,g,S,T,PROD001,2024-08-25T10:30:15")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	// Give the pipeline a moment to queue the label.
	time.Sleep(50 * time.Millisecond)

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-handler.dropped:
	case <-time.After(time.Second):
		t.Fatal("undeliverable label was not reported dropped")
	}
}

func TestBridge_RejectWhenQueueFull(t *testing.T) {
	// No printer: jobs pile up in the queue.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	handler := newRecordingHandler()
	b, err := bridge.New(bridge.Config{
		PrinterAddr:     addr,
		QueueCapacity:   1,
		AdmissionPolicy: "reject",
		BackoffInitial:  time.Minute, // keep the sender stuck in backoff
		DrainTimeout:    50 * time.Millisecond,
	}, bridge.WithEventHandler(handler))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = b.Stop() }()

	frames := [][]byte{
		frame("WT,01250.5,g,S,T,PROD001,2024-08-25T10:30:15"),
		frame("WT,0042.0,g,S,T,PROD002,2024-08-25T10:30:16"),
		frame("WT,00200.0,g,S,T,PROD009,2024-08-25T12:00:00"),
	}
	for _, f := range frames {
		if err := b.Feed(f); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}

	select {
	case <-handler.rejected:
	case <-time.After(time.Second):
		t.Fatal("full queue never rejected a label")
	}

	stats := b.Stats()
	if stats.Rejected == 0 {
		t.Errorf("Stats.Rejected = 0, want at least 1")
	}
}
