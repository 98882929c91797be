package hound

import "time"

// DataID identifies a semantic stream within a driver's schema.
// Unique within a single driver's schema; at most one live driver instance
// may claim a given DataID (InitDriver fails with ErrConflict otherwise).
type DataID uint32

// DeviceID is assigned by the core when a driver instance registers.
// Stable for the lifetime of the instance.
type DeviceID uint8

// SeqNo is monotonically increasing per driver instance, starting at 0.
type SeqNo uint64

// Period is the inter-sample interval. Zero means on-demand (pull mode).
type Period time.Duration

// Unit is a closed enum of physical units a DataFormat entry may carry.
type Unit uint8

const (
	UnitNone Unit = iota
	UnitDegree
	UnitKelvin
	UnitKgPerS
	UnitLatitude
	UnitLongitude
	UnitMeter
	UnitMetersPerS
	UnitMetersPerSSquared
	UnitPascal
	UnitPercent
	UnitRad
	UnitRadPerS
	UnitNanosecond
)

var unitNames = map[Unit]string{
	UnitNone:              "none",
	UnitDegree:             "degree",
	UnitKelvin:             "K",
	UnitKgPerS:             "kg/s",
	UnitLatitude:           "lat",
	UnitLongitude:          "lng",
	UnitMeter:              "m",
	UnitMetersPerS:         "m/s",
	UnitMetersPerSSquared:  "m/s^2",
	UnitPascal:             "Pa",
	UnitPercent:            "percent",
	UnitRad:                "rad",
	UnitRadPerS:            "rad/s",
	UnitNanosecond:         "ns",
}

func (u Unit) String() string {
	if s, ok := unitNames[u]; ok {
		return s
	}
	return "unknown"
}

// UnitFromString resolves a schema-file unit token to its enum value.
func UnitFromString(s string) (Unit, bool) {
	for u, name := range unitNames {
		if name == s {
			return u, true
		}
	}
	return 0, false
}

// Type is a closed enum of scalar widths a DataFormat entry may carry.
type Type uint8

const (
	TypeFloat32 Type = iota
	TypeFloat64
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeBytes
)

var typeNames = map[Type]string{
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeInt8:    "i8",
	TypeUint8:   "u8",
	TypeInt16:   "i16",
	TypeUint16:  "u16",
	TypeInt32:   "i32",
	TypeUint32:  "u32",
	TypeInt64:   "i64",
	TypeUint64:  "u64",
	TypeBytes:   "bytes",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// TypeFromString resolves a schema-file type token to its enum value.
func TypeFromString(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// DataFormat describes one entry within a record payload.
// Length == 0 means "remainder of payload".
type DataFormat struct {
	Name   string
	Unit   Unit
	Offset uint32
	Length uint32
	Type   Type
}

// SchemaDescriptor is a driver's immutable description of one DataID.
type SchemaDescriptor struct {
	DataID  DataID
	Name    string
	Formats []DataFormat
}

// DriverDescriptor annotates a SchemaDescriptor with what a specific driver
// instance actually supports.
type DriverDescriptor struct {
	Enabled           bool
	AdvertisedPeriods []Period
	SchemaRef         *SchemaDescriptor
}

// supportsPeriod reports whether p is one of the driver's advertised
// periods for this descriptor.
func (d DriverDescriptor) supportsPeriod(p Period) bool {
	for _, adv := range d.AdvertisedPeriods {
		if adv == p {
			return true
		}
	}
	return false
}

// Record is one timestamped sample produced by a driver.
// Payload is owned by the enclosing refcounted wrapper; callbacks must not
// retain it past the callback call.
type Record struct {
	SeqNo     SeqNo
	DataID    DataID
	DevID     DeviceID
	Timestamp time.Time
	Payload   []byte
}

// DataRequest names one stream and the period the caller wants it at.
type DataRequest struct {
	DataID DataID
	Period Period
}

// RequestList is an ordered set of DataRequests with no duplicate DataIDs.
type RequestList []DataRequest

func (rl RequestList) hasDuplicate() bool {
	seen := make(map[DataID]struct{}, len(rl))
	for _, r := range rl {
		if _, ok := seen[r.DataID]; ok {
			return true
		}
		seen[r.DataID] = struct{}{}
	}
	return false
}

// partitionByDriver groups requests by the driver instance that owns each
// DataID. Returns ErrDoesNotExist for any unresolved DataID.
func (rl RequestList) partitionByDriver(resolve func(DataID) (*driverInstance, bool)) (map[*driverInstance]RequestList, error) {
	out := make(map[*driverInstance]RequestList)
	for _, r := range rl {
		inst, ok := resolve(r.DataID)
		if !ok {
			return nil, &Error{Code: ErrDoesNotExist, Op: "partitionByDriver"}
		}
		out[inst] = append(out[inst], r)
	}
	return out, nil
}

// DataDesc is the flattened, read-only view returned by Hound.DataDescs.
type DataDesc struct {
	DataID            DataID
	DevID             DeviceID
	Name              string
	AdvertisedPeriods []Period
	Formats           []DataFormat
}

// Callback receives drained records. It must not retain rec.Payload past
// the call.
type Callback func(rec Record)
