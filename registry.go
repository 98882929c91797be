package hound

import (
	"fmt"
	"io"
	"sync"
)

// driverState is the per-instance lifecycle state machine (§4.4).
type driverState int

const (
	stateUnregistered driverState = iota
	stateInitialized
	stateStarted
	stateStopped
	stateDestroyed
)

// dataIDState tracks one DataID's active subscribers within a driver
// instance: the set of queues fanned out to, and the period every
// subscriber agreed to (a DataID can only be produced at one period at a
// time, so the first subscriber to ref it fixes the period until the last
// one unrefs).
type dataIDState struct {
	period   Period
	refcount int
	queues   map[*boundedQueue]struct{}
}

// driverInstance is a live, registered driver bound to one path.
type driverInstance struct {
	mu sync.Mutex

	name string
	path string
	ops  Ops
	id   DeviceID

	schemaDescs []SchemaDescriptor
	driverDescs []DriverDescriptor
	byDataID    map[DataID]int // index into schemaDescs/driverDescs

	state    driverState
	source   io.Reader // non-nil only for parse-mode drivers once Started
	nextSeq  SeqNo
	scratch  []byte // parse-mode accumulation buffer

	subs map[DataID]*dataIDState
}

func (inst *driverInstance) isPull() bool {
	for _, s := range inst.subs {
		if s.refcount > 0 && s.period == 0 {
			return true
		}
	}
	return false
}

func (inst *driverInstance) aggregateRequests() RequestList {
	var out RequestList
	for id, s := range inst.subs {
		if s.refcount > 0 {
			out = append(out, DataRequest{DataID: id, Period: s.period})
		}
	}
	return out
}

// attachedQueues returns the set of queues subscribed to dataID, for
// fan-out by the core loop.
func (inst *driverInstance) attachedQueues(dataID DataID) []*boundedQueue {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	s, ok := inst.subs[dataID]
	if !ok {
		return nil
	}
	out := make([]*boundedQueue, 0, len(s.queues))
	for q := range s.queues {
		out = append(out, q)
	}
	return out
}

// ref adds q as a subscriber to every request in reqs, validating periods
// against the instance's advertised periods, and re-issues SetData with
// the new aggregate. On any failure the partial additions from this call
// are rolled back.
func (inst *driverInstance) ref(q *boundedQueue, reqs RequestList) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	added := make([]DataID, 0, len(reqs))
	for _, r := range reqs {
		idx, ok := inst.byDataID[r.DataID]
		if !ok {
			inst.rollbackRefLocked(q, added)
			return newErr("ref", ErrDoesNotExist)
		}
		if !inst.driverDescs[idx].supportsPeriod(r.Period) {
			inst.rollbackRefLocked(q, added)
			return newErr("ref", ErrPeriodUnsupported)
		}
		s, ok := inst.subs[r.DataID]
		if !ok {
			s = &dataIDState{period: r.Period, queues: map[*boundedQueue]struct{}{}}
			inst.subs[r.DataID] = s
		} else if s.refcount > 0 && s.period != r.Period {
			inst.rollbackRefLocked(q, added)
			return newErr("ref", ErrPeriodUnsupported)
		}
		s.period = r.Period
		s.refcount++
		s.queues[q] = struct{}{}
		added = append(added, r.DataID)
	}

	if err := inst.ops.SetData(inst.aggregateRequests()); err != nil {
		inst.rollbackRefLocked(q, added)
		return wrapErr("ref", ErrDriverFail, err)
	}
	return nil
}

func (inst *driverInstance) rollbackRefLocked(q *boundedQueue, added []DataID) {
	for _, id := range added {
		s := inst.subs[id]
		if s == nil {
			continue
		}
		delete(s.queues, q)
		s.refcount--
		if s.refcount <= 0 {
			delete(inst.subs, id)
		}
	}
}

// unref is the symmetric inverse of ref. Returns true if the instance has
// no remaining active subscriptions (caller should remove it from the
// core loop).
func (inst *driverInstance) unref(q *boundedQueue, reqs RequestList) (empty bool, err error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	for _, r := range reqs {
		s, ok := inst.subs[r.DataID]
		if !ok {
			continue
		}
		if _, ok := s.queues[q]; !ok {
			continue
		}
		delete(s.queues, q)
		s.refcount--
		if s.refcount <= 0 {
			delete(inst.subs, r.DataID)
		}
	}

	if err := inst.ops.SetData(inst.aggregateRequests()); err != nil {
		return false, wrapErr("unref", ErrDriverFail, err)
	}
	return len(inst.subs) == 0, nil
}

// registry is the process-wide (well, per-Hound-handle) factory table plus
// the live instance table. Registration is one-shot per name.
type registry struct {
	mu        sync.RWMutex
	factories map[string]func() Ops

	instMu       sync.Mutex
	byPath       map[string]*driverInstance
	dataIDOwner  map[DataID]*driverInstance
	nextDeviceID DeviceID
}

func newRegistry() *registry {
	return &registry{
		factories:   make(map[string]func() Ops),
		byPath:      make(map[string]*driverInstance),
		dataIDOwner: make(map[DataID]*driverInstance),
	}
}

// registerOps is a one-shot registration of a driver factory under name.
func (r *registry) registerOps(name string, factory func() Ops) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return newErr("RegisterOps", ErrAlreadyRegistered)
	}
	r.factories[name] = factory
	return nil
}

// initDriver creates and initializes a new instance of name at path with
// the already-loaded schema, checking for DataID conflicts against every
// other live instance (P6).
func (r *registry) initDriver(name, path string, schema []SchemaDescriptor, args []string) (*driverInstance, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, newErr("InitDriver", ErrNotRegistered)
	}

	r.instMu.Lock()
	if _, exists := r.byPath[path]; exists {
		r.instMu.Unlock()
		return nil, newErr("InitDriver", ErrAlreadyPresent)
	}
	for _, sd := range schema {
		if _, claimed := r.dataIDOwner[sd.DataID]; claimed {
			r.instMu.Unlock()
			return nil, newErr("InitDriver", ErrConflict)
		}
	}
	r.instMu.Unlock()

	ops := factory()
	if err := ops.Init(path, args); err != nil {
		return nil, wrapErr("InitDriver", ErrDriverFail, err)
	}

	if _, isParse := ops.(ParseSource); !isParse {
		if _, isPoll := ops.(PollSource); !isPoll {
			_ = ops.Destroy()
			return nil, newErr("InitDriver", ErrDriverUnsupported)
		}
	}

	inst := &driverInstance{
		name:     name,
		path:     path,
		ops:      ops,
		schemaDescs: schema,
		driverDescs: make([]DriverDescriptor, len(schema)),
		byDataID:    make(map[DataID]int, len(schema)),
		subs:        make(map[DataID]*dataIDState),
		state:       stateInitialized,
	}
	for i := range schema {
		inst.driverDescs[i].SchemaRef = &inst.schemaDescs[i]
		inst.byDataID[schema[i].DataID] = i
	}
	if err := ops.DataDesc(inst.driverDescs); err != nil {
		_ = ops.Destroy()
		return nil, wrapErr("InitDriver", ErrDriverFail, err)
	}

	r.instMu.Lock()
	defer r.instMu.Unlock()
	// Re-check under the lock: another InitDriver may have raced us.
	for _, sd := range schema {
		if _, claimed := r.dataIDOwner[sd.DataID]; claimed {
			r.instMu.Unlock()
			_ = ops.Destroy()
			r.instMu.Lock()
			return nil, newErr("InitDriver", ErrConflict)
		}
	}
	inst.id = r.nextDeviceID
	r.nextDeviceID++
	r.byPath[path] = inst
	for _, sd := range schema {
		r.dataIDOwner[sd.DataID] = inst
	}
	return inst, nil
}

func (r *registry) lookupByPath(path string) (*driverInstance, bool) {
	r.instMu.Lock()
	defer r.instMu.Unlock()
	inst, ok := r.byPath[path]
	return inst, ok
}

func (r *registry) lookupByDataID(id DataID) (*driverInstance, bool) {
	r.instMu.Lock()
	defer r.instMu.Unlock()
	inst, ok := r.dataIDOwner[id]
	return inst, ok
}

// destroyDriver removes inst from the instance table. The caller must have
// already stopped the instance's production (core loop detached).
func (r *registry) destroyDriver(inst *driverInstance) error {
	inst.mu.Lock()
	if len(inst.subs) > 0 {
		inst.mu.Unlock()
		return newErr("DestroyDriver", ErrDriverInUse)
	}
	inst.state = stateDestroyed
	inst.mu.Unlock()

	if err := inst.ops.Destroy(); err != nil {
		return wrapErr("DestroyDriver", ErrDriverFail, err)
	}

	r.instMu.Lock()
	defer r.instMu.Unlock()
	delete(r.byPath, inst.path)
	for _, sd := range inst.schemaDescs {
		if r.dataIDOwner[sd.DataID] == inst {
			delete(r.dataIDOwner, sd.DataID)
		}
	}
	return nil
}

func (r *registry) allDataDescs() []DataDesc {
	r.instMu.Lock()
	defer r.instMu.Unlock()
	var out []DataDesc
	for _, inst := range r.byPath {
		inst.mu.Lock()
		for i, sd := range inst.schemaDescs {
			dd := inst.driverDescs[i]
			if !dd.Enabled {
				continue
			}
			out = append(out, DataDesc{
				DataID:            sd.DataID,
				DevID:             inst.id,
				Name:              sd.Name,
				AdvertisedPeriods: dd.AdvertisedPeriods,
				Formats:           sd.Formats,
			})
		}
		inst.mu.Unlock()
	}
	return out
}

func (r *registry) deviceName(devID DeviceID) (string, error) {
	r.instMu.Lock()
	defer r.instMu.Unlock()
	for _, inst := range r.byPath {
		if inst.id == devID {
			return inst.ops.DeviceName(), nil
		}
	}
	return "", newErr("DeviceName", ErrDevDoesNotExist)
}

func checkDeviceName(name string) error {
	if len(name) >= DeviceNameMax {
		return fmt.Errorf("device name %q exceeds %d bytes", name, DeviceNameMax-1)
	}
	return nil
}
