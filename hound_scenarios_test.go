package hound_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"hound"
	"hound/drivers/counter"
	"hound/drivers/file"
	"hound/drivers/nop"
)

// Scenario 1: NOP driver, no production.
func TestScenarioNOP(t *testing.T) {
	h := hound.New()
	defer h.Close()

	if err := h.RegisterOps("nop", nop.New); err != nil {
		t.Fatalf("RegisterOps: %v", err)
	}
	if err := h.InitDriver("nop", "nop0", "", writeSchemaFile(t, nop.Schema()), nil); err != nil {
		t.Fatalf("InitDriver: %v", err)
	}

	ctx, err := h.AllocCtx(hound.RequestList{{DataID: nop.DataID, Period: hound.Period(time.Second)}}, 4, func(hound.Record) {})
	if err != nil {
		t.Fatalf("AllocCtx: %v", err)
	}
	if err := ctx.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	recs, err := ctx.ReadNowait(10)
	if err != nil {
		t.Fatalf("ReadNowait: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}

	if err := ctx.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// Scenario 2: File driver, on-demand pull.
func TestScenarioFilePull(t *testing.T) {
	h := hound.New()
	defer h.Close()

	content := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to pad this out")
	if err := h.RegisterOps("file", func() hound.Ops { return file.New(content) }); err != nil {
		t.Fatalf("RegisterOps: %v", err)
	}
	if err := h.InitDriver("file", "file0", "", writeSchemaFile(t, file.Schema()), nil); err != nil {
		t.Fatalf("InitDriver: %v", err)
	}

	var mu sync.Mutex
	var got []byte
	cb := func(rec hound.Record) {
		mu.Lock()
		got = append(got, rec.Payload...)
		mu.Unlock()
	}

	ctx, err := h.AllocCtx(hound.RequestList{{DataID: file.DataID, Period: 0}}, 100, cb)
	if err != nil {
		t.Fatalf("AllocCtx: %v", err)
	}
	defer ctx.Stop()

	for len(got) < len(content) {
		if _, err := ctx.Read(context.Background(), 1); err != nil {
			t.Fatalf("Read: %v", err)
		}
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 0 {
			t.Fatal("Read returned without delivering a record")
		}
	}

	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}

// Scenario 3: Counter driver, periodic.
func TestScenarioCounterPeriodic(t *testing.T) {
	h := hound.New()
	defer h.Close()

	if err := h.RegisterOps("counter", counter.New); err != nil {
		t.Fatalf("RegisterOps: %v", err)
	}
	if err := h.InitDriver("counter", "counter0", "", writeSchemaFile(t, counter.Schema()), nil); err != nil {
		t.Fatalf("InitDriver: %v", err)
	}

	ctx, err := h.AllocCtx(hound.RequestList{{DataID: counter.DataID, Period: hound.Period(time.Millisecond)}}, 10000, func(hound.Record) {})
	if err != nil {
		t.Fatalf("AllocCtx: %v", err)
	}
	defer ctx.Stop()
	if err := ctx.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	recs, err := ctx.ReadAllNowait()
	if err != nil {
		t.Fatalf("ReadAllNowait: %v", err)
	}
	if len(recs) < 90 {
		t.Fatalf("got %d records in 100ms at 1ms period, want at least 90", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].SeqNo != recs[i-1].SeqNo+1 {
			t.Fatalf("seqnos not contiguous: %d then %d", recs[i-1].SeqNo, recs[i].SeqNo)
		}
	}
}

// Scenario 4: slow consumer with drop-oldest.
func TestScenarioSlowConsumerDropOldest(t *testing.T) {
	h := hound.New()
	defer h.Close()

	if err := h.RegisterOps("counter", counter.New); err != nil {
		t.Fatalf("RegisterOps: %v", err)
	}
	if err := h.InitDriver("counter", "counter0", "", writeSchemaFile(t, counter.Schema()), nil); err != nil {
		t.Fatalf("InitDriver: %v", err)
	}

	ctx, err := h.AllocCtx(hound.RequestList{{DataID: counter.DataID, Period: hound.Period(time.Millisecond)}}, 8, func(hound.Record) {})
	if err != nil {
		t.Fatalf("AllocCtx: %v", err)
	}
	defer ctx.Stop()
	if err := ctx.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if got := ctx.Len(); got > 8 {
		t.Fatalf("queue len = %d, want <= 8", got)
	}

	recs, err := ctx.ReadAllNowait()
	if err != nil {
		t.Fatalf("ReadAllNowait: %v", err)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].SeqNo != recs[i-1].SeqNo+1 {
			t.Fatalf("seqnos not contiguous: %d then %d", recs[i-1].SeqNo, recs[i].SeqNo)
		}
	}
}

// Scenario 5: conflicting drivers.
func TestScenarioConflictingDrivers(t *testing.T) {
	h := hound.New()
	defer h.Close()

	if err := h.RegisterOps("nop", nop.New); err != nil {
		t.Fatalf("RegisterOps: %v", err)
	}

	schemaPath := writeSchemaFile(t, []hound.SchemaDescriptor{{DataID: 0x2a, Name: "shared"}})
	if err := h.InitDriver("nop", "a", "", schemaPath, nil); err != nil {
		t.Fatalf("init A: %v", err)
	}
	err := h.InitDriver("nop", "b", "", schemaPath, nil)
	if hound.CodeOf(err) != hound.ErrConflict {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	if err := h.DestroyDriver("a"); err != nil {
		t.Fatalf("destroy A: %v", err)
	}
	if err := h.InitDriver("nop", "b", "", schemaPath, nil); err != nil {
		t.Fatalf("init B after A destroyed: %v", err)
	}
}

// Scenario 6: subscription refcount across two contexts on the same DataID.
func TestScenarioSubscriptionRefcount(t *testing.T) {
	h := hound.New()
	defer h.Close()

	if err := h.RegisterOps("counter", counter.New); err != nil {
		t.Fatalf("RegisterOps: %v", err)
	}
	if err := h.InitDriver("counter", "counter0", "", writeSchemaFile(t, counter.Schema()), nil); err != nil {
		t.Fatalf("InitDriver: %v", err)
	}

	reqs := hound.RequestList{{DataID: counter.DataID, Period: hound.Period(time.Millisecond)}}
	ctx1, err := h.AllocCtx(reqs, 100, func(hound.Record) {})
	if err != nil {
		t.Fatalf("AllocCtx 1: %v", err)
	}
	ctx2, err := h.AllocCtx(reqs, 100, func(hound.Record) {})
	if err != nil {
		t.Fatalf("AllocCtx 2: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := ctx1.Stop(); err != nil {
		t.Fatalf("stop ctx1: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	recs, err := ctx2.ReadAllNowait()
	if err != nil {
		t.Fatalf("ReadAllNowait ctx2: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("ctx2 should keep receiving records after ctx1 stopped")
	}

	if err := ctx2.Stop(); err != nil {
		t.Fatalf("stop ctx2: %v", err)
	}
	if err := h.DestroyDriver("counter0"); err != nil {
		t.Fatalf("destroy after both contexts stopped: %v", err)
	}
}
