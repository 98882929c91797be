// Package counter is the reference periodic push driver: it produces a
// monotonically increasing uint64 counter at whatever period it was
// configured with via SetData, exercising push-mode scheduling the way
// a real periodic sensor would.
package counter

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"hound"
	"hound/internal/mathx"
)

// DataID is the sole stream the counter driver advertises.
const DataID hound.DataID = 1

// maxPeriod bounds how long Poll will ever wait between ticks, guarding
// against a misconfigured period turning the driver permanently silent.
const maxPeriod = time.Hour

// Ops implements hound.Ops and hound.PollSource.
type Ops struct {
	mu     sync.Mutex
	path   string
	period time.Duration
	value  uint64
}

// New returns an unregistered counter driver instance.
func New() hound.Ops { return &Ops{} }

// Schema is the reference schema this driver advertises.
func Schema() []hound.SchemaDescriptor {
	return []hound.SchemaDescriptor{
		{
			DataID: DataID,
			Name:   "counter",
			Formats: []hound.DataFormat{
				{Name: "value", Unit: hound.UnitNone, Offset: 0, Length: 8, Type: hound.TypeUint64},
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

func (o *Ops) DeviceName() string { return "counter" }

func (o *Ops) DataDesc(descs []hound.DriverDescriptor) error {
	periods := []hound.Period{
		hound.Period(time.Millisecond),
		hound.Period(time.Millisecond * 10),
		hound.Period(time.Second),
	}
	for i := range descs {
		descs[i].Enabled = true
		descs[i].AdvertisedPeriods = periods
	}
	return nil
}

func (o *Ops) SetData(reqs hound.RequestList) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(reqs) == 0 {
		o.period = 0
		return nil
	}
	o.period = time.Duration(reqs[0].Period)
	return nil
}

func (o *Ops) Start() (io.Reader, error) { return nil, nil }

func (o *Ops) Next(dataID hound.DataID) error             { return nil }
func (o *Ops) NextBytes(dataID hound.DataID, n int) error { return nil }

func (o *Ops) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.period = 0
	return nil
}

// Poll returns one counter record and waits period before the caller
// should invoke Poll again. If no period is configured yet, it parks for
// a short interval and produces nothing.
func (o *Ops) Poll() (records []hound.Record, nextWait time.Duration, err error) {
	o.mu.Lock()
	period := o.period
	o.mu.Unlock()

	if period <= 0 {
		return nil, 50 * time.Millisecond, nil
	}

	o.mu.Lock()
	o.value++
	v := o.value
	o.mu.Unlock()

	payload := hound.GetBuf(8)
	binary.LittleEndian.PutUint64(payload, v)

	wait := mathx.Clamp(period, time.Microsecond, maxPeriod)
	return []hound.Record{{
		DataID:    DataID,
		Timestamp: time.Now(),
		Payload:   payload,
	}}, wait, nil
}
