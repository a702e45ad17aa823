/*
Package sensor defines the data model shared by the report-layout
planner and the control core: logical sensors, their channels, the
per-device table, the capability set injected per sensor, and the event
shape delivered to callers.
*/
package sensor

// Table-size constants, matching the original's compile-time tables.
const (
	MaxDevices          = 8
	MaxSensors          = 32
	MaxChannels         = 16
	MaxSensorReportSize = 256
)

// InvalidDevNum is the sentinel device id reserved for the waiter's wakeup
// channel; it never denotes a real device. event.Waiter does not tag the
// wakeup with it: Wait reports a wakeup through its separate woken result.
const InvalidDevNum = ^uint32(0)

// EventVersion is the wire version stamped on every emitted Event.
const EventVersion = 1

// Type enumerates the sensor types the event shaper knows how to field-map.
type Type int

const (
	TypeUnknown Type = iota
	TypeAccelerometer
	TypeMagneticField
	TypeOrientation
	TypeGyroscope
	TypeLight
	TypeAmbientTemperature
	TypeTemperature
	TypeProximity
	TypePressure
	TypeRelativeHumidity
	TypeRotationVector
)

// NumFields returns how many entries of Event.Data this sensor type
// populates. Unknown types produce 0 fields; control.shape logs a
// warning for them.
func (t Type) NumFields() int {
	switch t {
	case TypeAccelerometer, TypeMagneticField, TypeOrientation, TypeGyroscope:
		return 3
	case TypeLight, TypeAmbientTemperature, TypeTemperature, TypeProximity, TypePressure, TypeRelativeHumidity:
		return 1
	case TypeRotationVector:
		return 4
	default:
		return 0
	}
}

// Channel describes one channel's position within a device report, plus
// the decoded type information needed by the transform callback.
type Channel struct {
	Size   int
	Offset int

	TypeSpec string
	// RealBits and Shift are passed through to Ops.Transform; this core
	// never interprets them itself.
	RealBits int
	Shift    int
	Signed   bool
}

// Ops is the capability set injected per sensor at catalog-population
// time: the transform/finalize numeric pipeline and the poll-mode sysfs
// value reader.
type Ops interface {
	// AcquireImmediateValue reads field c of a poll-mode sensor directly
	// from sysfs.
	AcquireImmediateValue(s *Sensor, field int) float32

	// Transform extracts field c of a trigger-mode sensor from its raw
	// per-channel bytes.
	Transform(s *Sensor, field int, raw []byte) float32

	// Finalize post-processes a fully populated event (e.g. calibration,
	// quaternion completion) before it is returned to the caller.
	Finalize(s *Sensor, ev *Event)
}

// Sensor is one logical sensor handle. NumChannels() == 0 denotes a
// poll-mode sensor; NumChannels() > 0 denotes a trigger-mode sensor whose
// samples arrive via the owning device's character device.
type Sensor struct {
	DeviceID     int
	CatalogIndex int
	Type         Type

	Channels []Channel

	EnableCount int

	SamplingRateHz int

	// LastIntegrationTS is monotonic nanoseconds.
	LastIntegrationTS int64

	ReportBuffer  []byte
	ReportPending bool

	Ops Ops
}

// NumChannels reports how many channels this sensor occupies in its
// device's report; 0 means poll-mode.
func (s *Sensor) NumChannels() int {
	return len(s.Channels)
}

// ReportSize returns the sum of this sensor's channel sizes.
func (s *Sensor) ReportSize() int {
	var n int
	for _, c := range s.Channels {
		n += c.Size
	}
	return n
}

// Device holds the per-IIO-device state: the open character-device file
// descriptor (or -1 if absent) and the refcounts of poll-mode and
// trigger-mode sensors currently bound to it.
type Device struct {
	FD int

	PollRefcount int
	TrigRefcount int
}

// IsOpen reports whether this device currently has an open fd.
func (d *Device) IsOpen() bool {
	return d.FD >= 0
}

// Event is the fixed-shape event the surrounding platform expects.
type Event struct {
	Version int
	// Sensor identifies the sensor handle itself (its own slot, not its
	// shared CatalogIndex), so two sensors of the same catalog type stay
	// distinguishable to the caller.
	Sensor      int
	Type        Type
	TimestampNS int64
	Data        [16]float32
}
