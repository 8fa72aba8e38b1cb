package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
)

func testDoc(template string) domain.Document {
	return domain.Document{Template: template, Commands: []string{"^XA", "^XZ"}}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    AdmissionPolicy
		wantErr bool
	}{
		{in: "reject", want: AdmitReject},
		{in: "", want: AdmitReject},
		{in: "block", want: AdmitBlock},
		{in: "drop", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("ParsePolicy(%q) error = %v, want ErrInvalidConfig", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePolicy(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := New(10, AdmitReject)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := q.Submit(ctx, testDoc("standard")); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("Len = %d, want 5", q.Len())
	}

	var lastSeq uint64
	for i := 0; i < 5; i++ {
		job, err := q.Take(ctx)
		if err != nil {
			t.Fatalf("Take %d failed: %v", i, err)
		}
		if job.Seq <= lastSeq {
			t.Errorf("Take %d: Seq = %d, not increasing past %d", i, job.Seq, lastSeq)
		}
		lastSeq = job.Seq
	}
}

func TestQueue_RejectWhenFull(t *testing.T) {
	q := New(2, AdmitReject)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := q.Submit(ctx, testDoc("standard")); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}

	if _, err := q.Submit(ctx, testDoc("standard")); !errors.Is(err, domain.ErrQueueFull) {
		t.Errorf("Submit on full queue error = %v, want ErrQueueFull", err)
	}

	// Rejection must not disturb the buffered jobs.
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
}

func TestQueue_BlockUntilSlotFrees(t *testing.T) {
	q := New(1, AdmitBlock)
	ctx := context.Background()

	if _, err := q.Submit(ctx, testDoc("standard")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	submitted := make(chan error, 1)
	go func() {
		_, err := q.Submit(ctx, testDoc("compact"))
		submitted <- err
	}()

	select {
	case err := <-submitted:
		t.Fatalf("Submit returned %v before a slot freed", err)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Take(ctx); err != nil {
		t.Fatalf("Take failed: %v", err)
	}

	select {
	case err := <-submitted:
		if err != nil {
			t.Fatalf("blocked Submit failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit still blocked after a slot freed")
	}
}

func TestQueue_BlockedSubmitHonorsContext(t *testing.T) {
	q := New(1, AdmitBlock)
	if _, err := q.Submit(context.Background(), testDoc("standard")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	submitted := make(chan error, 1)
	go func() {
		_, err := q.Submit(ctx, testDoc("compact"))
		submitted <- err
	}()

	cancel()
	select {
	case err := <-submitted:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Submit error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit did not observe cancellation")
	}
}

func TestQueue_TakeWaitsForJob(t *testing.T) {
	q := New(5, AdmitReject)
	ctx := context.Background()

	taken := make(chan domain.PrintJob, 1)
	go func() {
		job, err := q.Take(ctx)
		if err != nil {
			return
		}
		taken <- job
	}()

	select {
	case <-taken:
		t.Fatal("Take returned from an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	want, err := q.Submit(ctx, testDoc("standard"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case job := <-taken:
		if job.ID != want.ID {
			t.Errorf("Take returned job %v, want %v", job.ID, want.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Take never woke up")
	}
}

func TestQueue_RequeueFrontPrecedesPending(t *testing.T) {
	q := New(5, AdmitReject)
	ctx := context.Background()

	first, err := q.Submit(ctx, testDoc("standard"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	second, err := q.Submit(ctx, testDoc("compact"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	job, err := q.Take(ctx)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if job.ID != first.ID {
		t.Fatalf("Take returned the wrong job")
	}

	job.Attempts = 1
	q.RequeueFront(job)

	next, err := q.Take(ctx)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if next.ID != first.ID {
		t.Errorf("retried job did not come back first")
	}
	if next.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", next.Attempts)
	}

	after, err := q.Take(ctx)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if after.ID != second.ID {
		t.Errorf("pending job lost its turn")
	}
}

func TestQueue_CloseReleasesAndDrains(t *testing.T) {
	q := New(5, AdmitReject)
	ctx := context.Background()

	if _, err := q.Submit(ctx, testDoc("standard")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	q.Close()
	q.Close() // idempotent

	// Admission stops immediately.
	if _, err := q.Submit(ctx, testDoc("compact")); !errors.Is(err, domain.ErrQueueClosed) {
		t.Errorf("Submit after close error = %v, want ErrQueueClosed", err)
	}

	// The buffered job is still takeable.
	if _, err := q.Take(ctx); err != nil {
		t.Fatalf("Take after close failed: %v", err)
	}

	// Then the closed queue reports exhaustion.
	if _, err := q.Take(ctx); !errors.Is(err, domain.ErrQueueClosed) {
		t.Errorf("Take on drained closed queue error = %v, want ErrQueueClosed", err)
	}
}

func TestQueue_CloseWakesBlockedTake(t *testing.T) {
	q := New(5, AdmitReject)

	done := make(chan error, 1)
	go func() {
		_, err := q.Take(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrQueueClosed) {
			t.Errorf("Take error = %v, want ErrQueueClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not observe Close")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New(5, AdmitReject)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := q.Submit(ctx, testDoc("standard")); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	jobs := q.Drain()
	if len(jobs) != 3 {
		t.Fatalf("Drain returned %d jobs, want 3", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].Seq <= jobs[i-1].Seq {
			t.Errorf("drained jobs out of order at %d", i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len after Drain = %d, want 0", q.Len())
	}
}
