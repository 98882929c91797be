package hound

import (
	"io"
	"time"
)

// Ops is the contract every driver implements. Exactly one of ParseSource
// or PollSource must also be implemented by the concrete type. InitDriver
// checks with a type assertion that a new instance implements at least one
// of them and fails with ErrDriverUnsupported otherwise.
type Ops interface {
	// Init allocates device-side state for path, with driver-specific args.
	Init(path string, args []string) error
	// Destroy releases state allocated by Init.
	Destroy() error
	// DeviceName returns the device's name, or "" if unknown.
	DeviceName() string
	// DataDesc fills Enabled and AdvertisedPeriods on each descriptor
	// in place, based on what the underlying device actually supports.
	DataDesc(descs []DriverDescriptor) error
	// SetData commits the driver to producing exactly this set of
	// DataIDs at these periods. May fail with ErrPeriodUnsupported.
	SetData(reqs RequestList) error
	// Start begins production. Parse-mode drivers return a reader the
	// core will pump; poll-mode drivers return nil, nil and drive
	// themselves via PollSource.Poll.
	Start() (io.Reader, error)
	// Next asks a pull-mode driver to produce one record for dataID.
	// A no-op (returns nil) in push mode.
	Next(dataID DataID) error
	// NextBytes asks a pull-mode driver to produce up to n bytes worth
	// of records for dataID. A no-op (returns nil) in push mode.
	NextBytes(dataID DataID, n int) error
	// Stop ceases production and releases the source obtained from Start.
	Stop() error
}

// ParseSource is implemented by drivers that hand the core a byte stream;
// the core reads from Start's io.Reader and repeatedly calls Parse.
//
// Parse must return the number of bytes of buf it consumed. If it returns
// 0 consumed and 0 records, the core stops re-invoking Parse for the
// current chunk and discards whatever is left unconsumed — Parse is
// responsible for buffering any partial frame across calls.
type ParseSource interface {
	Parse(buf []byte) (consumed int, records []Record, err error)
}

// PollSource is implemented by drivers that own their own blocking wait
// (e.g. a device that must be polled on its own schedule rather than
// read as a stream). The core runs Poll in a dedicated goroutine per
// instance and only assigns sequence numbers and fans out the results.
type PollSource interface {
	Poll() (records []Record, nextWait time.Duration, err error)
}

// MaxRecordsPerCall bounds how many records a single Parse/Poll call may
// emit. The core truncates (and logs) if a driver exceeds it.
const MaxRecordsPerCall = 1000

// MaxDataReq bounds the size of a single RequestList passed to AllocCtx.
const MaxDataReq = 1000

// DeviceNameMax bounds the length of a string returned from DeviceName.
const DeviceNameMax = 32
