/*
Package layout implements the report-layout planner: given the current
sysfs enablement of a device's channels, it computes the contiguous byte
offsets and sizes the kernel will use when it next assembles a device
report, and writes them back onto the owning sensors' Channel slices.
*/
package layout

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dendrite-systems/iiomux/catalog"
	"github.com/dendrite-systems/iiomux/sensor"
	"github.com/dendrite-systems/iiomux/sysfs"
	"github.com/dendrite-systems/iiomux/typespec"
)

// maxScanIndex bounds the scan index space; an index at or beyond this is
// rejected with a warning.
const maxScanIndex = sensor.MaxSensors * sensor.MaxChannels

type slot struct {
	sensorIdx  int
	channelIdx int
	size       int
}

// Refresh recomputes the byte layout of deviceID's report from the
// current sysfs state of every channel belonging to a sensor bound to
// that device. It is called whenever trigger-mode channel membership on
// the device changes. Each sensor's position in sensors is used in
// diagnostics and to write the computed layout back; Refresh mutates the
// Channel slices of the sensors it touches in place.
func Refresh(gw sysfs.Gateway, cat catalog.Catalog, sensors []*sensor.Sensor, deviceID int) {
	slots := make(map[int]slot)

	for si, s := range sensors {
		if s.DeviceID != deviceID {
			continue
		}
		desc := cat[s.CatalogIndex]

		for ci := range s.Channels {
			chDesc := desc.Channels[ci]

			enabled, err := gw.ReadInt(chDesc.EnPath)
			if err != nil {
				slog.Warn("refresh: failed to read channel enable flag", "path", chDesc.EnPath, "error", err)
				s.Channels[ci].Size = 0
				continue
			}
			if enabled == 0 {
				s.Channels[ci].Size = 0
				continue
			}

			typeSpec, err := gw.ReadString(chDesc.TypePath)
			if err != nil {
				slog.Warn("refresh: failed to read channel type", "path", chDesc.TypePath, "error", err)
				s.Channels[ci].Size = 0
				continue
			}

			info, err := typespec.Decode(typeSpec)
			if err != nil {
				slog.Warn("refresh: failed to decode channel type", "path", chDesc.TypePath, "spec", typeSpec, "error", err)
				s.Channels[ci].Size = 0
				continue
			}

			index, err := gw.ReadInt(chDesc.IndexPath)
			if err != nil {
				slog.Warn("refresh: failed to read channel scan index", "path", chDesc.IndexPath, "error", err)
				s.Channels[ci].Size = 0
				continue
			}
			if index < 0 || index >= maxScanIndex {
				slog.Warn("refresh: scan index out of bounds, skipping channel", "path", chDesc.IndexPath, "index", index)
				s.Channels[ci].Size = 0
				continue
			}

			if existing, ok := slots[index]; ok {
				slog.Warn("refresh: shared scan index, last writer wins",
					"index", index,
					"existing_sensor", existing.sensorIdx, "existing_channel", existing.channelIdx,
					"new_sensor", si, "new_channel", ci)
			}

			s.Channels[ci].TypeSpec = typeSpec
			s.Channels[ci].RealBits = info.RealBits
			s.Channels[ci].Shift = info.Shift
			s.Channels[ci].Signed = info.Signed

			slots[index] = slot{sensorIdx: si, channelIdx: ci, size: info.Size()}
		}
	}

	indices := make([]int, 0, len(slots))
	for idx := range slots {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	offset := 0
	active := 0
	for _, idx := range indices {
		sl := slots[idx]
		s := sensors[sl.sensorIdx]
		s.Channels[sl.channelIdx].Size = sl.size
		s.Channels[sl.channelIdx].Offset = offset
		offset += sl.size
		active++
	}

	slog.Info(fmt.Sprintf("refresh: found %d enabled channels for iio device %d", active, deviceID))
}
