package hound

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

const ingestQueueLen = 64

// ingestItem is one unit of work forwarded from a reader/poller goroutine
// to the core loop. Exactly one of chunk or records is meaningful,
// depending on whether inst is a parse-mode or poll-mode driver.
type ingestItem struct {
	inst    *driverInstance
	chunk   []byte
	records []Record
	err     error
}

// coreLoop is the single goroutine that owns record sequencing and
// fan-out (§4.5). Parse-mode drivers get one dedicated reader goroutine
// that blocks on io.Reader.Read and forwards raw chunks here; poll-mode
// drivers get one dedicated goroutine that blocks inside Poll and
// forwards the records it returns directly. Either way, all sequencing,
// record wrapping, and queue pushes happen serially on this goroutine.
type coreLoop struct {
	log   *slog.Logger
	pause *pauseBarrier

	ingest chan ingestItem

	mu      sync.Mutex
	cancels map[*driverInstance]context.CancelFunc
	wg      sync.WaitGroup

	shutdown chan struct{}
	done     chan struct{}
}

func newCoreLoop(log *slog.Logger) *coreLoop {
	return &coreLoop{
		log:      log,
		pause:    newPauseBarrier(),
		ingest:   make(chan ingestItem, ingestQueueLen),
		cancels:  make(map[*driverInstance]context.CancelFunc),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// run is the main cycle described in §4.5. It exits when shutdown is
// closed.
func (c *coreLoop) run() {
	defer close(c.done)
	for {
		select {
		case <-c.shutdown:
			return
		case <-c.pause.requestCh():
			c.pause.ackIdle()
		case item := <-c.ingest:
			c.handle(item)
		}
	}
}

func (c *coreLoop) stop() {
	close(c.shutdown)
	<-c.done
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *coreLoop) handle(item ingestItem) {
	inst := item.inst
	if item.err != nil {
		if !errors.Is(item.err, io.EOF) {
			c.log.Warn("driver read error", "driver", inst.name, "path", inst.path, "err", item.err)
		}
		return
	}

	switch {
	case item.chunk != nil:
		c.handleParseChunk(inst, item.chunk)
	default:
		c.emitRecords(inst, item.records)
	}
}

// handleParseChunk implements the parse-style drain described in §4.5
// step 4: accumulate, call Parse repeatedly, advance by consumed, stop
// and discard the remainder once a call makes no progress.
func (c *coreLoop) handleParseChunk(inst *driverInstance, chunk []byte) {
	parser, ok := inst.ops.(ParseSource)
	if !ok {
		return
	}
	inst.scratch = append(inst.scratch, chunk...)
	buf := inst.scratch
	pos := 0
	for pos < len(buf) {
		consumed, records, err := parser.Parse(buf[pos:])
		if err != nil {
			c.log.Warn("parse error", "driver", inst.name, "path", inst.path, "err", err)
			break
		}
		if consumed == 0 && len(records) == 0 {
			break
		}
		pos += consumed
		c.emitRecords(inst, records)
		if consumed == 0 {
			// Driver emitted records without consuming bytes; avoid
			// spinning forever on the same prefix.
			break
		}
	}
	// Whatever is left unconsumed this cycle is discarded per contract;
	// a driver that needs to carry a partial frame must re-synthesize it
	// as part of its own next chunk's consumed accounting.
	inst.scratch = inst.scratch[:0]
}

func (c *coreLoop) emitRecords(inst *driverInstance, records []Record) {
	if len(records) > MaxRecordsPerCall {
		c.log.Warn("driver exceeded record ceiling, truncating",
			"driver", inst.name, "path", inst.path, "count", len(records), "max", MaxRecordsPerCall)
		records = records[:MaxRecordsPerCall]
	}
	for _, rec := range records {
		rec.SeqNo = inst.nextSeq
		inst.nextSeq++
		rec.DevID = inst.id

		queues := inst.attachedQueues(rec.DataID)
		if len(queues) == 0 {
			continue
		}
		rr := newRecordRef(rec, len(queues))
		for _, q := range queues {
			q.push(rr)
		}
	}
}

// addParseDriver starts a reader goroutine pumping src into the ingest
// channel for inst. Must be called while the pause barrier is held.
func (c *coreLoop) addParseDriver(inst *driverInstance, src io.Reader) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancels[inst] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		buf := make([]byte, 64*1024)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, err := src.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case c.ingest <- ingestItem{inst: inst, chunk: chunk}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				select {
				case c.ingest <- ingestItem{inst: inst, err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
}

// addPollDriver starts a poller goroutine calling Poll repeatedly for
// inst. Must be called while the pause barrier is held.
func (c *coreLoop) addPollDriver(inst *driverInstance, src PollSource) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancels[inst] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			records, wait, err := src.Poll()
			if err != nil {
				select {
				case c.ingest <- ingestItem{inst: inst, err: err}:
				case <-ctx.Done():
				}
				return
			}
			if len(records) > 0 {
				select {
				case c.ingest <- ingestItem{inst: inst, records: records}:
				case <-ctx.Done():
					return
				}
			}
			if wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return
				}
			}
		}
	}()
}

// removeDriver stops and forgets inst's reader/poller goroutine. Must be
// called while the pause barrier is held.
func (c *coreLoop) removeDriver(inst *driverInstance) {
	c.mu.Lock()
	cancel, ok := c.cancels[inst]
	if ok {
		delete(c.cancels, inst)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}
