package hound_test

import (
	"testing"

	"hound"
	"hound/drivers/nop"
)

func TestRegisterOpsDuplicateAtFacade(t *testing.T) {
	h := hound.New()
	defer h.Close()

	if err := h.RegisterOps("nop", nop.New); err != nil {
		t.Fatalf("first RegisterOps: %v", err)
	}
	err := h.RegisterOps("nop", nop.New)
	if hound.CodeOf(err) != hound.ErrAlreadyRegistered {
		t.Fatalf("got %v, want ErrAlreadyRegistered", err)
	}
}

func TestDataDescsAndDeviceName(t *testing.T) {
	h := hound.New()
	defer h.Close()

	if err := h.RegisterOps("nop", nop.New); err != nil {
		t.Fatalf("RegisterOps: %v", err)
	}
	if err := h.InitDriver("nop", "nop0", "", writeSchemaFile(t, nop.Schema()), nil); err != nil {
		t.Fatalf("InitDriver: %v", err)
	}

	descs, err := h.DataDescs()
	if err != nil {
		t.Fatalf("DataDescs: %v", err)
	}
	if len(descs) != 1 || descs[0].DataID != nop.DataID {
		t.Fatalf("unexpected descs: %+v", descs)
	}

	name, err := h.DeviceName(descs[0].DevID)
	if err != nil {
		t.Fatalf("DeviceName: %v", err)
	}
	if name != "nop" {
		t.Fatalf("got %q, want %q", name, "nop")
	}
}

func TestAllocCtxRejectsDuplicateDataID(t *testing.T) {
	h := hound.New()
	defer h.Close()
	_ = h.RegisterOps("nop", nop.New)
	_ = h.InitDriver("nop", "nop0", "", writeSchemaFile(t, nop.Schema()), nil)

	reqs := hound.RequestList{
		{DataID: nop.DataID, Period: 0},
		{DataID: nop.DataID, Period: 0},
	}
	_, err := h.AllocCtx(reqs, 4, func(hound.Record) {})
	if hound.CodeOf(err) != hound.ErrDuplicateDataRequested {
		t.Fatalf("got %v, want ErrDuplicateDataRequested", err)
	}
}

func TestAllocCtxRejectsUnadvertisedPeriod(t *testing.T) {
	h := hound.New()
	defer h.Close()
	_ = h.RegisterOps("nop", nop.New)
	_ = h.InitDriver("nop", "nop0", "", writeSchemaFile(t, nop.Schema()), nil)

	reqs := hound.RequestList{{DataID: nop.DataID, Period: hound.Period(1234)}}
	_, err := h.AllocCtx(reqs, 4, func(hound.Record) {})
	if hound.CodeOf(err) != hound.ErrPeriodUnsupported {
		t.Fatalf("got %v, want ErrPeriodUnsupported", err)
	}
}

func TestCtxCloseBeforeStopFails(t *testing.T) {
	h := hound.New()
	defer h.Close()
	_ = h.RegisterOps("nop", nop.New)
	_ = h.InitDriver("nop", "nop0", "", writeSchemaFile(t, nop.Schema()), nil)

	ctx, err := h.AllocCtx(hound.RequestList{{DataID: nop.DataID, Period: 0}}, 4, func(hound.Record) {})
	if err != nil {
		t.Fatalf("AllocCtx: %v", err)
	}
	if err := ctx.Close(); hound.CodeOf(err) != hound.ErrCtxActive {
		t.Fatalf("got %v, want ErrCtxActive", err)
	}
	if err := ctx.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close after Stop: %v", err)
	}
}
