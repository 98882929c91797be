// Package fdstream is the reference fd-backed driver: it opens its path as
// a raw, non-blocking POSIX file descriptor via houndio.FD and frames the
// byte stream into fixed-size records, the way a driver sitting on top of
// a real serial port or socket would. On a non-unix build houndio.Open
// always fails, so Init simply reports ErrDriverFail there.
package fdstream

import (
	"io"
	"sync"
	"time"

	"hound"
	"hound/internal/houndio"
)

// DataID is the sole stream this driver advertises.
const DataID hound.DataID = 1

// RecordSize is the fixed frame length records are cut into.
const RecordSize = 16

// pollWait is how long the blocking wrapper backs off between empty,
// non-blocking reads of the underlying fd; it plays the role the
// original's ppoll timeout plays against a real fd.
var pollWait = 2 * time.Millisecond

// Ops implements hound.Ops and hound.ParseSource.
type Ops struct {
	mu   sync.Mutex
	path string
	fd   *houndio.FD
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New returns an unregistered fdstream driver instance.
func New() hound.Ops { return &Ops{} }

// Schema is the reference schema this driver advertises.
func Schema() []hound.SchemaDescriptor {
	return []hound.SchemaDescriptor{
		{
			DataID: DataID,
			Name:   "fdstream",
			Formats: []hound.DataFormat{
				{Name: "frame", Unit: hound.UnitNone, Offset: 0, Length: RecordSize, Type: hound.TypeBytes},
			},
		},
	}
}

func (o *Ops) Init(path string, args []string) error {
	fd, err := houndio.Open(path)
	if err != nil {
		return &hound.Error{Code: hound.ErrDriverFail, Op: "Init", Err: err}
	}
	o.mu.Lock()
	o.path = path
	o.fd = fd
	o.done = make(chan struct{})
	o.mu.Unlock()
	return nil
}

// closeFD closes the underlying fd exactly once; Stop and Destroy both
// call it, since the registry calls both in sequence during teardown.
func (o *Ops) closeFD() error {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		fd := o.fd
		o.mu.Unlock()
		if fd != nil {
			o.closeErr = fd.Close()
		}
	})
	return o.closeErr
}

func (o *Ops) Destroy() error {
	return o.closeFD()
}

func (o *Ops) DeviceName() string { return "fdstream" }

func (o *Ops) DataDesc(descs []hound.DriverDescriptor) error {
	for i := range descs {
		descs[i].Enabled = true
		descs[i].AdvertisedPeriods = []hound.Period{0}
	}
	return nil
}

func (o *Ops) SetData(reqs hound.RequestList) error { return nil }

// Start hands the core loop a blocking wrapper around the underlying
// non-blocking fd: ParseSource drivers are read via a plain blocking
// io.Reader.Read loop, so the backoff has to live here rather than in the
// core loop itself.
func (o *Ops) Start() (io.Reader, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return &blockingReader{fd: o.fd, done: o.done}, nil
}

// Stop unblocks the reader goroutine currently parked in
// blockingReader.Read: closing done wakes it between poll attempts, and
// closing the fd makes the read it's retrying fail outright either way.
func (o *Ops) Stop() error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		default:
			close(done)
		}
	}
	return o.closeFD()
}

func (o *Ops) Next(dataID hound.DataID) error             { return nil }
func (o *Ops) NextBytes(dataID hound.DataID, n int) error { return nil }

// Parse cuts buf into RecordSize-byte frames and reports only whole frames
// as consumed. A short trailing remainder is not kept by the driver, so the
// core discards it at the end of the chunk.
func (o *Ops) Parse(buf []byte) (consumed int, records []hound.Record, err error) {
	n := len(buf) / RecordSize
	if n == 0 {
		return 0, nil, nil
	}
	now := time.Now()
	records = make([]hound.Record, n)
	for i := 0; i < n; i++ {
		payload := hound.GetBuf(RecordSize)
		copy(payload, buf[i*RecordSize:(i+1)*RecordSize])
		records[i] = hound.Record{
			DataID:    DataID,
			Timestamp: now,
			Payload:   payload,
		}
	}
	return n * RecordSize, records, nil
}

// blockingReader turns houndio.FD's non-blocking, EAGAIN-absorbing Read
// into the blocking io.Reader the core loop's reader goroutine expects,
// backing off by pollWait between empty reads instead of busy-spinning.
// done is Ops' Stop signal: once closed, Read gives up and reports io.EOF
// instead of waiting on a fd that will never produce again, so the reader
// goroutine pumping this Read in a loop (ioloop.go's addParseDriver) can
// actually exit instead of being stuck inside this call forever.
type blockingReader struct {
	fd   *houndio.FD
	done <-chan struct{}
}

func (r *blockingReader) Read(p []byte) (int, error) {
	for {
		n, err := r.fd.Read(p)
		if err != nil || n > 0 {
			return n, err
		}
		select {
		case <-r.done:
			return 0, io.EOF
		case <-time.After(pollWait):
		}
	}
}
