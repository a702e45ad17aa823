package control

import (
	"log/slog"
	"time"

	"github.com/dendrite-systems/iiomux/sensor"
)

// SamplingInterval sets sensor s's sampling interval, expressed as a
// period in nanoseconds, converting it to an integer Hz rate rounded
// down (minimum 1 Hz). A change to a trigger-mode sensor's
// device is bracketed with buffer/enable=0/1 so the rate change takes
// effect cleanly. ns == 0 is rejected with ErrInvalid and has no
// side effects.
func (c *Controller) SamplingInterval(s *sensor.Sensor, ns int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ns == 0 {
		return ErrInvalid
	}

	newRate := int(1_000_000_000 / ns)
	if newRate < 1 {
		newRate = 1
	}

	desc := c.catalog[s.CatalogIndex]
	path := samplingFreqPath(s.DeviceID, desc.Tag)

	current, err := c.gateway.ReadInt(path)
	if err != nil {
		slog.Warn("sampling_interval: failed to read current rate", "path", path, "error", err)
		current = -1
	}

	if current != newRate {
		dev := &c.devices[s.DeviceID]
		bracket := dev.TrigRefcount > 0

		if bracket {
			if err := c.gateway.WriteInt(bufferEnablePath(s.DeviceID), 0); err != nil {
				slog.Warn("sampling_interval: failed to disable buffer", "device", s.DeviceID, "error", err)
			}
		}

		if err := c.gateway.WriteInt(path, newRate); err != nil {
			slog.Warn("sampling_interval: failed to write rate", "path", path, "error", err)
		}

		if bracket {
			if err := c.gateway.WriteInt(bufferEnablePath(s.DeviceID), 1); err != nil {
				slog.Warn("sampling_interval: failed to re-enable buffer", "device", s.DeviceID, "error", err)
			}
		}
	}

	s.SamplingRateHz = newRate

	if err := c.waiter.Wake(); err != nil {
		slog.Warn("sampling_interval: failed to wake waiter", "error", err)
	}

	return nil
}

// nextTimeout computes the poll(2)-style timeout, in milliseconds, until
// the soonest enabled poll-mode sensor's next sample is due: -1 if no
// poll-mode sensor is enabled, 0 if one is already overdue.
func (c *Controller) nextTimeout() int {
	now := c.clock.MonotonicNS()

	haveDeadline := false
	var minDeadline int64

	for _, s := range c.sensors {
		if s.EnableCount <= 0 || s.NumChannels() != 0 || s.SamplingRateHz <= 0 {
			continue
		}
		deadline := s.LastIntegrationTS + 1_000_000_000/int64(s.SamplingRateHz)
		if !haveDeadline || deadline < minDeadline {
			minDeadline = deadline
			haveDeadline = true
		}
	}

	if !haveDeadline {
		return -1
	}

	remainingNS := minDeadline - now
	if remainingNS <= 0 {
		return 0
	}
	return int(remainingNS / int64(time.Millisecond))
}
