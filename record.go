package hound

import (
	"sync"
	"sync/atomic"
)

// bufPool backs record payload buffers. Drivers fill buffers obtained from
// GetBuf; the core returns them to the pool on the last-reference release.
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 4096)
		return &b
	},
}

// GetBuf returns a buffer of length n drawn from the shared record-payload
// pool. Reference drivers use it to fill a Record's Payload instead of
// allocating their own slice, so the buffer can be recycled back into the
// pool once its last queue reference is released.
func GetBuf(n int) []byte {
	p := bufPool.Get().(*[]byte)
	b := *p
	if cap(b) < n {
		b = make([]byte, n)
	} else {
		b = b[:n]
	}
	return b
}

// PutBuf returns b to the shared pool. Callers must not touch b afterward.
func PutBuf(b []byte) {
	b = b[:0]
	bufPool.Put(&b)
}

// recordRef is a Record plus an atomic reference count. Created with
// count == N, where N is the number of queues the record fans out to.
// Each queue pop releases one reference; the zero-transition releases the
// payload buffer back to bufPool.
type recordRef struct {
	rec   Record
	count atomic.Int32
}

func newRecordRef(rec Record, n int) *recordRef {
	r := &recordRef{rec: rec}
	r.count.Store(int32(n))
	return r
}

// release drops one reference. When it drops the last one, the payload is
// recycled into bufPool and the caller must not touch it afterward.
func (rr *recordRef) release() {
	if rr.count.Add(-1) == 0 {
		PutBuf(rr.rec.Payload)
		rr.rec.Payload = nil
	}
}
