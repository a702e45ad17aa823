package control

import (
	"log/slog"

	"github.com/dendrite-systems/iiomux/sensor"
)

// integrate reads one report from deviceID's character device and
// demultiplexes it into the report buffers of every trigger-mode sensor
// bound to that device. A short read (len != expected_size) is treated
// as a hard error and the whole pass is discarded; the next wait simply
// resumes.
func (c *Controller) integrate(deviceID int) {
	dev := &c.devices[deviceID]
	if !dev.IsOpen() {
		return
	}

	sensors := c.sensorsOnDevice(deviceID)

	expected := 0
	for _, s := range sensors {
		if s.NumChannels() > 0 {
			expected += s.ReportSize()
		}
	}
	if expected == 0 {
		return
	}

	scratch := make([]byte, expected)
	n, err := readFD(dev.FD, scratch)
	if err != nil {
		slog.Warn("integrate: read failed", "device", deviceID, "error", err)
		return
	}
	if n != expected {
		slog.Warn("integrate: short read, discarding pass", "device", deviceID, "got", n, "want", expected)
		return
	}

	for _, s := range sensors {
		if s.NumChannels() == 0 {
			continue
		}

		size := s.ReportSize()
		if len(s.ReportBuffer) != size {
			s.ReportBuffer = make([]byte, size)
		}

		dst := 0
		for _, ch := range s.Channels {
			if ch.Size == 0 {
				continue
			}
			copy(s.ReportBuffer[dst:dst+ch.Size], scratch[ch.Offset:ch.Offset+ch.Size])
			dst += ch.Size
		}

		if s.EnableCount > 0 {
			s.ReportPending = true
		}
	}
}

// shape materializes one event from sensor s, either by reading its
// poll-mode channels live via Ops.AcquireImmediateValue or by decoding
// its already-demultiplexed trigger-mode report buffer via
// Ops.Transform, then calls Ops.Finalize on the populated event.
// sensorIdx is s's own slot (its position in Controller.sensors), kept
// distinct from s.CatalogIndex: the catalog is shared across every
// instance of a sensor type, so it cannot identify which physical
// sensor produced the event.
func (c *Controller) shape(sensorIdx int, s *sensor.Sensor, out *sensor.Event) {
	*out = sensor.Event{}
	out.Version = sensor.EventVersion
	out.Sensor = sensorIdx
	out.Type = s.Type
	out.TimestampNS = c.clock.Now().UnixNano()

	numFields := s.Type.NumFields()
	if numFields == 0 {
		slog.Warn("shape: unknown sensor type produces no fields", "sensor", s.CatalogIndex, "type", s.Type)
	}

	if s.NumChannels() == 0 {
		for field := 0; field < numFields; field++ {
			out.Data[field] = s.Ops.AcquireImmediateValue(s, field)
		}
	} else {
		p := s.ReportBuffer
		for field := 0; field < numFields && field < len(s.Channels); field++ {
			size := s.Channels[field].Size
			if size > len(p) {
				slog.Warn("shape: report buffer shorter than channel layout", "sensor", s.CatalogIndex)
				break
			}
			out.Data[field] = s.Ops.Transform(s, field, p[:size])
			p = p[size:]
		}
	}

	s.LastIntegrationTS = c.clock.MonotonicNS()
	if s.Ops != nil {
		s.Ops.Finalize(s, out)
	}
}
