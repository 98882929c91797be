// Package nop is the reference do-nothing driver: it registers, advertises
// a schema, and never produces a record. It exists to exercise the driver
// lifecycle (Init/Start/Stop/Destroy) without any actual I/O, mirroring the
// original's test/driver/nop.c.
package nop

import (
	"io"
	"sync"

	"hound"
)

// DataID is the sole stream the NOP driver advertises.
const DataID hound.DataID = 1

// Ops implements hound.Ops and hound.ParseSource while never emitting a
// record.
type Ops struct {
	mu       sync.Mutex
	path     string
	r        *io.PipeReader
	w        *io.PipeWriter
}

// New returns a fresh, unregistered NOP driver instance factory.
func New() hound.Ops { return &Ops{} }

// Schema is the reference schema this driver advertises, for tests and
// demos that want to register it without a schema file on disk.
func Schema() []hound.SchemaDescriptor {
	return []hound.SchemaDescriptor{
		{
			DataID: DataID,
			Name:   "nop",
			Formats: []hound.DataFormat{
				{Name: "unused", Unit: hound.UnitNone, Offset: 0, Length: 0, Type: hound.TypeBytes},
			},
		},
	}
}

func (o *Ops) Init(path string, args []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.path = path
	return nil
}

func (o *Ops) Destroy() error { return nil }

func (o *Ops) DeviceName() string { return "nop" }

func (o *Ops) DataDesc(descs []hound.DriverDescriptor) error {
	for i := range descs {
		descs[i].Enabled = true
		descs[i].AdvertisedPeriods = []hound.Period{0, hound.Period(1e9)}
	}
	return nil
}

func (o *Ops) SetData(reqs hound.RequestList) error { return nil }

func (o *Ops) Start() (io.Reader, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.r, o.w = io.Pipe()
	return o.r, nil
}

func (o *Ops) Next(dataID hound.DataID) error            { return nil }
func (o *Ops) NextBytes(dataID hound.DataID, n int) error { return nil }

func (o *Ops) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.w != nil {
		_ = o.w.Close()
	}
	return nil
}

func (o *Ops) Parse(buf []byte) (consumed int, records []hound.Record, err error) {
	// Never produces; nothing to parse since the pipe never receives bytes.
	return 0, nil, nil
}
