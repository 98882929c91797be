package hound

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Hound is a library handle: a self-contained registry, instance table,
// and core loop. Nothing here is a package-level singleton (§9 Design
// Notes, "library handle"), so multiple independent Hound instances may
// coexist in one process.
type Hound struct {
	id  uuid.UUID
	log *slog.Logger
	reg *registry

	loop *coreLoop

	mu       sync.Mutex
	attached map[*driverInstance]struct{}

	closeOnce sync.Once
}

// Option configures a Hound handle at construction time.
type Option func(*Hound)

// WithLogger overrides the default slog.Logger (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(h *Hound) { h.log = l }
}

// New constructs a Hound handle and starts its core loop. Call Close to
// tear it down.
func New(opts ...Option) *Hound {
	h := &Hound{
		id:       uuid.New(),
		log:      slog.Default(),
		reg:      newRegistry(),
		attached: make(map[*driverInstance]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With("hound_instance", h.id.String())
	h.loop = newCoreLoop(h.log)
	go h.loop.run()
	return h
}

// InstanceID identifies this Hound handle, useful for telling concurrent
// test instances' log lines apart.
func (h *Hound) InstanceID() uuid.UUID { return h.id }

// Close stops the core loop and cancels the reader/poller goroutines it
// started, waiting for them to exit. It does not call Stop or Destroy on
// any driver instance.
func (h *Hound) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.loop.stop()
	})
	return err
}

// RegisterOps is a one-shot registration of a driver factory under name.
// Must be called before the first InitDriver call for that name.
func (h *Hound) RegisterOps(name string, factory func() Ops) error {
	if err := h.reg.registerOps(name, factory); err != nil {
		return err
	}
	h.log.Info("driver ops registered", "name", name)
	return nil
}

// InitDriver initializes a new instance of a registered driver at path,
// loading its schema from schemaBaseDir/schemaFile (schemaFile alone if
// schemaBaseDir is empty), and surfacing it for subscription.
func (h *Hound) InitDriver(name, path, schemaBaseDir, schemaFile string, args []string) error {
	schemaPath := schemaFile
	if schemaBaseDir != "" {
		schemaPath = filepath.Join(schemaBaseDir, schemaFile)
	}
	schema, err := loadSchemaFile(schemaPath)
	if err != nil {
		h.log.Info("InitDriver failed to load schema", "name", name, "path", path, "err", err)
		return wrapErr("InitDriver", ErrInvalidValue, err)
	}

	inst, err := h.reg.initDriver(name, path, schema, args)
	if err != nil {
		h.log.Info("InitDriver failed", "name", name, "path", path, "err", err)
		return err
	}
	if err := checkDeviceName(inst.ops.DeviceName()); err != nil {
		_ = h.reg.destroyDriver(inst)
		return wrapErr("InitDriver", ErrInvalidString, err)
	}
	h.log.Info("driver initialized", "name", name, "path", path, "dev_id", inst.id)
	return nil
}

// DestroyDriver tears down the instance at path. Fails with
// ErrDriverInUse if any context still holds a subscription on it.
func (h *Hound) DestroyDriver(path string) error {
	inst, ok := h.reg.lookupByPath(path)
	if !ok {
		return newErr("DestroyDriver", ErrNotRegistered)
	}
	inst.mu.Lock()
	inUse := len(inst.subs) > 0
	inst.mu.Unlock()
	if inUse {
		return newErr("DestroyDriver", ErrDriverInUse)
	}

	if err := h.loop.pause.Pause(context.Background()); err != nil {
		return err
	}
	h.mu.Lock()
	_, attached := h.attached[inst]
	h.mu.Unlock()
	if attached {
		h.detachInstanceLocked(inst)
	}
	h.loop.pause.Resume()

	if err := h.reg.destroyDriver(inst); err != nil {
		return err
	}
	h.log.Info("driver destroyed", "path", path)
	return nil
}

// DataDescs returns the flattened, read-only view of every enabled
// DataID across every live driver instance.
func (h *Hound) DataDescs() ([]DataDesc, error) {
	return h.reg.allDataDescs(), nil
}

// DeviceName returns the name the driver reported for devID.
func (h *Hound) DeviceName(devID DeviceID) (string, error) {
	return h.reg.deviceName(devID)
}

// startInstanceLocked wires inst's reader or poller goroutine into the
// core loop. Must be called with the pause barrier held.
func (h *Hound) startInstanceLocked(inst *driverInstance) error {
	inst.mu.Lock()
	src, err := inst.ops.Start()
	if err != nil {
		inst.mu.Unlock()
		return wrapErr("Start", ErrDriverFail, err)
	}
	inst.state = stateStarted
	inst.mu.Unlock()

	switch {
	case src != nil:
		if _, ok := inst.ops.(ParseSource); !ok {
			return newErr("Start", ErrDriverUnsupported)
		}
		h.loop.addParseDriver(inst, src)
	default:
		poller, ok := inst.ops.(PollSource)
		if !ok {
			return newErr("Start", ErrDriverUnsupported)
		}
		h.loop.addPollDriver(inst, poller)
	}

	h.mu.Lock()
	h.attached[inst] = struct{}{}
	h.mu.Unlock()
	return nil
}

// detachInstanceLocked removes inst from the core loop and stops it.
// Must be called with the pause barrier held.
func (h *Hound) detachInstanceLocked(inst *driverInstance) {
	h.loop.removeDriver(inst)
	h.mu.Lock()
	delete(h.attached, inst)
	h.mu.Unlock()

	inst.mu.Lock()
	inst.state = stateStopped
	inst.mu.Unlock()
	if err := inst.ops.Stop(); err != nil {
		h.log.Warn("driver stop failed", "driver", inst.name, "path", inst.path, "err", err)
	}
}
