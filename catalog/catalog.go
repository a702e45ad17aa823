/*
Package catalog defines the descriptor shapes the control core reads to
find a sensor's sysfs paths and type. Populating a Catalog from a real
IIO device tree (enumeration) is external to this core; this package
only defines the shape and a small builder.
*/
package catalog

import "github.com/dendrite-systems/iiomux/sensor"

// ChannelDescriptor names the three sysfs attributes that describe one
// channel of one IIO device: its enable flag, type descriptor, and scan
// index.
type ChannelDescriptor struct {
	// Name is used only for diagnostics (e.g. "accel_x").
	Name string

	EnPath    string
	TypePath  string
	IndexPath string
}

// SensorDescriptor names one logical sensor's sysfs tag prefix (used to
// build the `<tag>_sampling_frequency` path), its internal trigger name
// (used to build `<internal_name>-dev<N>`), its sensor.Type, and the
// channel descriptors backing it. A SensorDescriptor with no channels
// describes a poll-mode sensor. The control core does not read Type:
// emitted events carry the Type field of the sensor.Sensor itself.
type SensorDescriptor struct {
	FriendlyName string
	InternalName string
	Tag          string
	Type         sensor.Type
	Channels     []ChannelDescriptor
}

// Catalog is a read-only table of sensor descriptors, indexed by
// catalog index (sensor.Sensor.CatalogIndex).
type Catalog []SensorDescriptor

// Builder accumulates SensorDescriptor entries into a Catalog, as a
// readable way to stand up a small catalog without constructing slices
// of structs by hand.
type Builder struct {
	entries Catalog
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a descriptor and returns its catalog index.
func (b *Builder) Add(d SensorDescriptor) int {
	b.entries = append(b.entries, d)
	return len(b.entries) - 1
}

// Build returns the accumulated Catalog.
func (b *Builder) Build() Catalog {
	return b.entries
}
