// Package queue implements the bounded FIFO of pending print jobs that
// connects the conversion pipeline to the sender.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/packbridge/scalebridge/internal/domain"
)

// AdmissionPolicy governs what Submit does when the queue is full.
type AdmissionPolicy int

const (
	// AdmitReject makes Submit fail immediately with ErrQueueFull.
	AdmitReject AdmissionPolicy = iota

	// AdmitBlock makes Submit wait until a slot frees or the context ends.
	AdmitBlock
)

// String returns the configuration spelling of the policy.
func (p AdmissionPolicy) String() string {
	if p == AdmitBlock {
		return "block"
	}
	return "reject"
}

// ParsePolicy maps a configuration string to an AdmissionPolicy.
func ParsePolicy(s string) (AdmissionPolicy, error) {
	switch s {
	case "reject", "":
		return AdmitReject, nil
	case "block":
		return AdmitBlock, nil
	default:
		return 0, fmt.Errorf("%w: admission policy %q", domain.ErrInvalidConfig, s)
	}
}

// Queue is a bounded FIFO of print jobs. Capacity is fixed at
// construction. Delivery order is strict submission order, except that
// a retried job requeued at the front precedes jobs that were never
// attempted. All methods are safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	jobs     []domain.PrintJob
	capacity int
	policy   AdmissionPolicy
	closed   bool
	nextSeq  uint64
}

// New creates a queue with the given capacity and admission policy.
// Capacity must be positive.
func New(capacity int, policy AdmissionPolicy) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Queue{
		jobs:     make([]domain.PrintJob, 0, capacity),
		capacity: capacity,
		policy:   policy,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit wraps doc in a PrintJob and appends it to the queue. Under the
// reject policy a full queue fails immediately with ErrQueueFull; under
// the block policy Submit waits for a slot, the context ending, or the
// queue closing. The accepted job is returned for telemetry purposes.
func (q *Queue) Submit(ctx context.Context, doc domain.Document) (domain.PrintJob, error) {
	stop := context.AfterFunc(ctx, q.wake)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return domain.PrintJob{}, domain.ErrQueueClosed
		}
		if len(q.jobs) < q.capacity {
			q.nextSeq++
			job := domain.PrintJob{
				ID:         uuid.New(),
				Seq:        q.nextSeq,
				Doc:        doc,
				EnqueuedAt: time.Now(),
			}
			q.jobs = append(q.jobs, job)
			q.cond.Broadcast()
			return job, nil
		}
		if q.policy == AdmitReject {
			return domain.PrintJob{}, domain.ErrQueueFull
		}
		if err := ctx.Err(); err != nil {
			return domain.PrintJob{}, err
		}
		q.cond.Wait()
	}
}

// Take removes and returns the head job, waiting until one is available,
// the queue is closed, or the context ends. After Close, Take keeps
// returning buffered jobs until the queue drains, then ErrQueueClosed.
func (q *Queue) Take(ctx context.Context) (domain.PrintJob, error) {
	stop := context.AfterFunc(ctx, q.wake)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			q.cond.Broadcast()
			return job, nil
		}
		if q.closed {
			return domain.PrintJob{}, domain.ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return domain.PrintJob{}, err
		}
		q.cond.Wait()
	}
}

// RequeueFront puts a job back at the head of the queue for retry. The
// job held a slot before it was taken, so this never blocks and may
// momentarily exceed capacity by the single in-flight job.
func (q *Queue) RequeueFront(job domain.PrintJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append([]domain.PrintJob{job}, q.jobs...)
	q.cond.Broadcast()
}

// Close stops admission. Buffered jobs remain takeable; blocked Submit
// and Take callers are released. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Drain removes and returns all buffered jobs. Used at shutdown to
// report undelivered jobs rather than losing them silently.
func (q *Queue) Drain() []domain.PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	q.cond.Broadcast()
	return jobs
}

// Len returns the number of buffered jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return q.capacity }

func (q *Queue) wake() {
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}
