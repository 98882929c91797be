package hound

import "context"

// pauseBarrier lets mutators safely quiesce the core loop before touching
// its driver/queue working set (§4.6). It is the channel-based substitute
// for the original's signal-plus-condvar mechanism: the core loop observes
// the request channel in the same select it uses to wait for ingest items,
// so a request can never arrive in a window where the loop is blocked
// without also seeing it.
//
// Pause behaves like taking an exclusive lock on the loop's working set;
// Resume releases it. Only one mutator may hold the barrier at a time.
type pauseBarrier struct {
	mu      chan struct{} // 1-buffered, acts as a mutex between overlapping Pause callers
	request chan struct{}
	ack     chan struct{}
	resume  chan struct{}
}

func newPauseBarrier() *pauseBarrier {
	b := &pauseBarrier{
		mu:      make(chan struct{}, 1),
		request: make(chan struct{}),
		ack:     make(chan struct{}),
		resume:  make(chan struct{}),
	}
	b.mu <- struct{}{}
	return b
}

// Pause blocks until the core loop has idled (acknowledged the request).
// The caller must call Resume exactly once after a successful Pause,
// before any other goroutine may call Pause again.
func (b *pauseBarrier) Pause(ctx context.Context) error {
	select {
	case <-b.mu:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case b.request <- struct{}{}:
	case <-ctx.Done():
		b.mu <- struct{}{}
		return ctx.Err()
	}
	select {
	case <-b.ack:
		return nil
	case <-ctx.Done():
		// The loop has already received the request and is on its way
		// into (or already inside) ackIdle: it will still send on b.ack
		// and then block on b.resume regardless of what this caller does
		// next. Finish that handshake on the caller's behalf so the loop
		// never wedges, then release mu for whoever calls Pause next.
		go func() {
			<-b.ack
			b.resume <- struct{}{}
			b.mu <- struct{}{}
		}()
		return ctx.Err()
	}
}

// Resume releases the core loop and the barrier itself.
func (b *pauseBarrier) Resume() {
	b.resume <- struct{}{}
	b.mu <- struct{}{}
}

// requestCh and ackIdle are the core loop's side of the handshake: it
// selects on requestCh, then ackIdle sends on ack once idle and blocks on
// resume before the loop returns to its normal select.
func (b *pauseBarrier) requestCh() <-chan struct{} { return b.request }

func (b *pauseBarrier) ackIdle() {
	b.ack <- struct{}{}
	<-b.resume
}
