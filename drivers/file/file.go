// Package file is the reference on-demand pull driver: it serves the
// bytes of an in-memory buffer (or a file opened from disk) one record at
// a time, only when asked via Next/NextBytes, mirroring the original's
// test/file.c usage pattern (init -> alloc_ctx -> loop next+read -> stop).
package file

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"hound"
)

// DataID is the sole stream the file driver advertises.
const DataID hound.DataID = 1

// defaultChunk is how many bytes a single Next call produces.
const defaultChunk = 64

var errStopped = errors.New("file: driver stopped")

type pullReq struct {
	n int
}

// Ops implements hound.Ops and hound.PollSource. It never implements
// ParseSource: it has no streaming source to read from, only a buffer
// it doles out on demand.
type Ops struct {
	mu      sync.Mutex
	path    string
	content []byte
	pos     int

	pullCh chan pullReq
	quitCh chan struct{}
}

// New returns an unregistered file driver instance. content is served
// verbatim; pass nil to have Init read it from the instance's path.
func New(content []byte) hound.Ops {
	return &Ops{content: content}
}

// Schema is the reference schema this driver advertises.
func Schema() []hound.SchemaDescriptor {
	return []hound.SchemaDescriptor{
		{
			DataID: DataID,
			Name:   "file",
			Formats: []hound.DataFormat{
				{Name: "bytes", Unit: hound.UnitNone, Offset: 0, Length: 0, Type: hound.TypeBytes},
			},
		},
	}
}

func (o *Ops) Init(path string, args []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.path = path
	if o.content == nil {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		o.content = b
	}
	o.pullCh = make(chan pullReq, hound.MaxDataReq)
	o.quitCh = make(chan struct{})
	return nil
}

func (o *Ops) Destroy() error { return nil }

func (o *Ops) DeviceName() string { return "file" }

func (o *Ops) DataDesc(descs []hound.DriverDescriptor) error {
	for i := range descs {
		descs[i].Enabled = true
		descs[i].AdvertisedPeriods = []hound.Period{0}
	}
	return nil
}

func (o *Ops) SetData(reqs hound.RequestList) error { return nil }

// Start returns nil, nil: this driver is poll-mode, it drives itself via
// Poll rather than handing the core an io.Reader.
func (o *Ops) Start() (io.Reader, error) { return nil, nil }

func (o *Ops) Next(dataID hound.DataID) error { return o.NextBytes(dataID, defaultChunk) }

func (o *Ops) NextBytes(dataID hound.DataID, n int) error {
	if dataID != DataID || n <= 0 {
		return nil
	}
	select {
	case o.pullCh <- pullReq{n: n}:
	case <-o.quitCh:
	}
	return nil
}

func (o *Ops) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	select {
	case <-o.quitCh:
	default:
		close(o.quitCh)
	}
	return nil
}

// Poll blocks until Next/NextBytes is called, then returns one record
// containing up to the requested number of bytes of the remaining
// content. Returns errStopped once Stop has been called and no more
// pulls will be served.
func (o *Ops) Poll() (records []hound.Record, nextWait time.Duration, err error) {
	select {
	case req := <-o.pullCh:
		rec, ok := o.take(req.n)
		if !ok {
			return nil, 0, nil
		}
		return []hound.Record{rec}, 0, nil
	case <-o.quitCh:
		return nil, 0, errStopped
	}
}

func (o *Ops) take(n int) (hound.Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pos >= len(o.content) {
		return hound.Record{}, false
	}
	end := o.pos + n
	if end > len(o.content) {
		end = len(o.content)
	}
	payload := hound.GetBuf(end - o.pos)
	copy(payload, o.content[o.pos:end])
	o.pos = end
	return hound.Record{
		DataID:    DataID,
		Timestamp: time.Now(),
		Payload:   payload,
	}, true
}
