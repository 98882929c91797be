package hound

import (
	"io"
	"testing"
	"time"
)

type fakeOps struct {
	name    string
	started bool
}

func (f *fakeOps) Init(path string, args []string) error { return nil }
func (f *fakeOps) Destroy() error                         { return nil }
func (f *fakeOps) DeviceName() string                     { return f.name }
func (f *fakeOps) DataDesc(descs []DriverDescriptor) error {
	for i := range descs {
		descs[i].Enabled = true
		descs[i].AdvertisedPeriods = []Period{0, Period(time.Second)}
	}
	return nil
}
func (f *fakeOps) SetData(reqs RequestList) error            { return nil }
func (f *fakeOps) Start() (io.Reader, error)                 { f.started = true; return nil, nil }
func (f *fakeOps) Next(dataID DataID) error                  { return nil }
func (f *fakeOps) NextBytes(dataID DataID, n int) error      { return nil }
func (f *fakeOps) Stop() error                               { return nil }
func (f *fakeOps) Poll() ([]Record, time.Duration, error)    { return nil, time.Hour, nil }

func testSchema(id DataID) []SchemaDescriptor {
	return []SchemaDescriptor{{DataID: id, Name: "test", Formats: nil}}
}

func TestRegisterOpsDuplicate(t *testing.T) {
	r := newRegistry()
	if err := r.registerOps("fake", func() Ops { return &fakeOps{} }); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	err := r.registerOps("fake", func() Ops { return &fakeOps{} })
	if CodeOf(err) != ErrAlreadyRegistered {
		t.Fatalf("got %v, want ErrAlreadyRegistered", err)
	}
}

func TestInitDriverConflict(t *testing.T) {
	r := newRegistry()
	_ = r.registerOps("fake", func() Ops { return &fakeOps{name: "a"} })

	if _, err := r.initDriver("fake", "path-a", testSchema(0x2a), nil); err != nil {
		t.Fatalf("init A: %v", err)
	}
	_, err := r.initDriver("fake", "path-b", testSchema(0x2a), nil)
	if CodeOf(err) != ErrConflict {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	instA, _ := r.lookupByPath("path-a")
	if err := r.destroyDriver(instA); err != nil {
		t.Fatalf("destroy A: %v", err)
	}
	if _, err := r.initDriver("fake", "path-b", testSchema(0x2a), nil); err != nil {
		t.Fatalf("init B after A destroyed: %v", err)
	}
}

func TestRefUnref(t *testing.T) {
	r := newRegistry()
	_ = r.registerOps("fake", func() Ops { return &fakeOps{} })
	inst, err := r.initDriver("fake", "p", testSchema(1), nil)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	q := newBoundedQueue(4)
	reqs := RequestList{{DataID: 1, Period: 0}}
	if err := inst.ref(q, reqs); err != nil {
		t.Fatalf("ref: %v", err)
	}
	if got := len(inst.attachedQueues(1)); got != 1 {
		t.Fatalf("attached queues = %d, want 1", got)
	}

	empty, err := inst.unref(q, reqs)
	if err != nil {
		t.Fatalf("unref: %v", err)
	}
	if !empty {
		t.Fatal("expected instance to have no remaining subscriptions")
	}
}

func TestRefPeriodUnsupported(t *testing.T) {
	r := newRegistry()
	_ = r.registerOps("fake", func() Ops { return &fakeOps{} })
	inst, err := r.initDriver("fake", "p", testSchema(1), nil)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	q := newBoundedQueue(4)
	reqs := RequestList{{DataID: 1, Period: Period(7 * time.Second)}}
	err = inst.ref(q, reqs)
	if CodeOf(err) != ErrPeriodUnsupported {
		t.Fatalf("got %v, want ErrPeriodUnsupported", err)
	}
	if len(inst.attachedQueues(1)) != 0 {
		t.Fatal("expected no state left after failed ref")
	}
}
