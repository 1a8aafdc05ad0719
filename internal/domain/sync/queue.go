package sync

import (
	"context"
	"sync"

	"clipsync-server-go/internal/platform/logging"
)

// Envelope is one queued broadcast: a clipboard payload plus the routing
// information the fan-out needs.
type Envelope struct {
	Payload        ClipboardPayload
	UserID         int64
	SourceDeviceID string
}

// BroadcastQueue decouples publish acknowledgement from fan-out. A single
// consumer goroutine drains the queue in FIFO order and delivers each
// envelope to the owning user's other devices.
type BroadcastQueue struct {
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	ch       chan Envelope
	registry *Registry
	logger   *logging.Logger
}

// NewBroadcastQueue builds a bounded queue. A non-positive size falls back
// to 1024.
func NewBroadcastQueue(registry *Registry, size int, logger *logging.Logger) *BroadcastQueue {
	if size <= 0 {
		size = 1024
	}
	return &BroadcastQueue{
		ch:       make(chan Envelope, size),
		registry: registry,
		logger:   logger,
	}
}

// Start launches the consumer goroutine. Calling Start on a running queue is
// a no-op.
func (q *BroadcastQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true

	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	go q.consume(ctx)
	q.logger.InfoTag("Broadcast", "queue started, capacity=%d", cap(q.ch))
}

// Stop cancels the consumer and waits for it to finish the in-flight
// envelope. Already-queued envelopes are discarded. Idempotent.
func (q *BroadcastQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	cancel, done := q.cancel, q.done
	q.mu.Unlock()

	cancel()
	<-done
	q.logger.InfoTag("Broadcast", "queue stopped")
}

// Enqueue blocks while the queue is full and returns the context error if
// ctx is cancelled before space frees up.
func (q *BroadcastQueue) Enqueue(ctx context.Context, env Envelope) error {
	select {
	case q.ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of queued envelopes.
func (q *BroadcastQueue) Len() int {
	return len(q.ch)
}

func (q *BroadcastQueue) consume(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-q.ch:
			q.deliver(env)
		}
	}
}

func (q *BroadcastQueue) deliver(env Envelope) {
	msg := NewMessage(MessageClipboardSync, env.Payload)
	msg.SourceDeviceID = env.SourceDeviceID
	q.registry.FanOut(msg, env.SourceDeviceID, env.UserID)
	q.logger.DebugTag("Broadcast", "delivered clipboard %d from %s to user %d peers",
		env.Payload.ClipboardID, env.SourceDeviceID, env.UserID)
}
