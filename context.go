package hound

import (
	"context"
	"sync"
)

// Ctx is a user-facing subscription: a bound set of data requests, a
// queue, and a callback (§4.7).
type Ctx struct {
	h     *Hound
	cb    Callback
	queue *boundedQueue

	mu       sync.Mutex
	active   bool
	partition map[*driverInstance]RequestList
}

// AllocCtx validates reqs, resolves each DataID to its owning driver,
// allocates a queue of the requested capacity, and refs the queue onto
// every driver partition.
func (h *Hound) AllocCtx(reqs RequestList, queueCap int, cb Callback) (*Ctx, error) {
	if len(reqs) > MaxDataReq {
		return nil, newErr("AllocCtx", ErrTooMuchDataRequested)
	}
	if reqs.hasDuplicate() {
		return nil, newErr("AllocCtx", ErrDuplicateDataRequested)
	}
	if cb == nil {
		return nil, newErr("AllocCtx", ErrMissingCB)
	}
	if queueCap < 1 {
		return nil, newErr("AllocCtx", ErrQueueTooSmall)
	}
	if len(reqs) == 0 {
		return nil, newErr("AllocCtx", ErrNoDataRequested)
	}

	partition, err := reqs.partitionByDriver(h.reg.lookupByDataID)
	if err != nil {
		return nil, err
	}

	queue := newBoundedQueue(queueCap)

	refed := make([]*driverInstance, 0, len(partition))
	for inst, part := range partition {
		if err := inst.ref(queue, part); err != nil {
			h.unrefPartition(refed, partition, queue)
			return nil, err
		}
		refed = append(refed, inst)
	}

	if err := h.attachPartition(partition); err != nil {
		h.unrefPartition(refed, partition, queue)
		return nil, err
	}

	return &Ctx{h: h, cb: cb, queue: queue, partition: partition, active: true}, nil
}

// unrefPartition undoes a partial AllocCtx: it unrefs queue from every
// instance in done, detaching any instance whose aggregate becomes empty,
// mirroring Ctx.Stop. Used to roll back after a mid-allocation failure.
func (h *Hound) unrefPartition(done []*driverInstance, partition map[*driverInstance]RequestList, queue *boundedQueue) {
	if len(done) == 0 {
		return
	}
	paused := h.loop.pause.Pause(context.Background()) == nil
	if paused {
		defer h.loop.pause.Resume()
	}
	for _, inst := range done {
		empty, err := inst.unref(queue, partition[inst])
		if err != nil {
			h.log.Warn("rollback unref failed", "driver", inst.name, "path", inst.path, "err", err)
			continue
		}
		if empty && paused {
			h.detachInstanceLocked(inst)
		}
	}
}

// attachPartition ensures every driver in partition is wired into the
// core loop, pausing it once for the whole batch.
func (h *Hound) attachPartition(partition map[*driverInstance]RequestList) error {
	if err := h.loop.pause.Pause(context.Background()); err != nil {
		return err
	}
	defer h.loop.pause.Resume()

	for inst := range partition {
		h.mu.Lock()
		_, attached := h.attached[inst]
		h.mu.Unlock()
		if attached {
			continue
		}
		if err := h.startInstanceLocked(inst); err != nil {
			return err
		}
	}
	return nil
}

// Start is a no-op at the core level: drivers already producing from
// prior contexts keep doing so, and this context's queue starts
// receiving on the next record after AllocCtx returns.
func (c *Ctx) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return newErr("Start", ErrCtxNotActive)
	}
	return nil
}

// Stop unrefs from every driver partition, drains and releases any
// residual records, and wakes blocked readers.
func (c *Ctx) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}
	c.active = false

	if err := c.h.loop.pause.Pause(context.Background()); err != nil {
		return err
	}
	for inst, part := range c.partition {
		empty, err := inst.unref(c.queue, part)
		if err != nil {
			c.h.loop.pause.Resume()
			return err
		}
		if empty {
			c.h.detachInstanceLocked(inst)
		}
	}
	c.h.loop.pause.Resume()

	c.queue.close()
	return nil
}

// Close frees the context. Must be preceded by Stop.
func (c *Ctx) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return newErr("Close", ErrCtxActive)
	}
	return nil
}

// Read drains exactly n records, blocking when empty. For pull-mode
// partitions, it issues Next(n) first so the driver can produce on
// demand.
func (c *Ctx) Read(ctx context.Context, n int) ([]Record, error) {
	_ = c.Next(n)
	out := make([]Record, 0, n)
	for len(out) < n {
		rr, ok := c.queue.popBlocking(ctx)
		if !ok {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			return out, newErr("Read", ErrEmptyQueue)
		}
		out = append(out, c.deliver(rr))
	}
	return out, nil
}

// ReadNowait drains up to n records without blocking. Pull-mode
// partitions are not triggered.
func (c *Ctx) ReadNowait(n int) ([]Record, error) {
	refs := c.queue.drainUpTo(n)
	out := make([]Record, 0, len(refs))
	for _, rr := range refs {
		out = append(out, c.deliver(rr))
	}
	return out, nil
}

// ReadBytesNowait drains records while cumulative payload size stays <= b.
func (c *Ctx) ReadBytesNowait(b int) ([]Record, int, error) {
	refs := c.queue.drainBytesUpTo(b)
	out := make([]Record, 0, len(refs))
	total := 0
	for _, rr := range refs {
		rec := c.deliver(rr)
		total += len(rec.Payload)
		out = append(out, rec)
	}
	return out, total, nil
}

// ReadAllNowait drains everything currently queued.
func (c *Ctx) ReadAllNowait() ([]Record, error) {
	refs := c.queue.drainAll()
	out := make([]Record, 0, len(refs))
	for _, rr := range refs {
		out = append(out, c.deliver(rr))
	}
	return out, nil
}

// deliver invokes the callback with rec's payload, then releases the
// record's reference. The callback must not retain the slice past return.
func (c *Ctx) deliver(rr *recordRef) Record {
	rec := rr.rec
	c.cb(rec)
	rr.release()
	return rec
}

// Next issues an on-demand pull trigger: for every pull-mode partition
// (period 0), it calls the driver's Next once per expected record. It is
// a no-op, returning nil, for push-mode partitions. Callers may use it
// independently of Read to pre-trigger production and drain later with
// ReadNowait or ReadAllNowait.
func (c *Ctx) Next(n int) error {
	for inst, part := range c.partition {
		if !inst.isPull() {
			continue
		}
		for _, r := range part {
			if r.Period != 0 {
				continue
			}
			for i := 0; i < n; i++ {
				if err := inst.ops.Next(r.DataID); err != nil {
					return wrapErr("Next", ErrDriverFail, err)
				}
			}
		}
	}
	return nil
}

// Len reports the number of records currently queued.
func (c *Ctx) Len() int { return c.queue.len() }

// Cap reports the queue's fixed capacity.
func (c *Ctx) Cap() int { return c.queue.cap() }
