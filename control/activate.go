package control

import (
	"log/slog"

	"github.com/dendrite-systems/iiomux/layout"
	"github.com/dendrite-systems/iiomux/sensor"
)

// edge denotes the result of the counter step: whether the call was a
// pure refcount stack/unstack (noEdge) or actually flipped the sensor's
// enabled state (risingEdge/fallingEdge).
type edge int

const (
	noEdge edge = iota
	risingEdge
	fallingEdge
)

// Activate enables or disables sensor s. Calls stack: on=true increments
// a refcount, on=false decrements it, and only the call that takes the
// refcount across zero (in either direction) touches sysfs, the device
// fd, or the waiter. Disabling a sensor with a zero refcount returns
// ErrInvalidState and performs no side effects.
func (c *Controller) Activate(s *sensor.Sensor, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activateLocked(s, on)
}

func (c *Controller) activateLocked(s *sensor.Sensor, on bool) error {
	e, err := c.adjustCounters(s, on)
	if err != nil {
		return err
	}
	if e == noEdge {
		return nil
	}

	dev := &c.devices[s.DeviceID]

	if s.NumChannels() > 0 {
		if err := c.reconfigureTrigger(s, on, dev); err != nil {
			// Roll back the counter step; no sysfs writes beyond what
			// reconfigureTrigger itself already attempted are undone,
			// matching the original's best-effort semantics.
			c.adjustCounters(s, !on) //nolint:errcheck
			return err
		}
	}

	if !on {
		if dev.IsOpen() && s.NumChannels() > 0 && dev.TrigRefcount == 0 {
			c.waiter.Unregister(dev.FD)
		}
		if dev.IsOpen() && dev.PollRefcount == 0 && dev.TrigRefcount == 0 {
			closeFD(dev.FD)
			dev.FD = -1
		}
	} else if !dev.IsOpen() {
		fd, err := c.opener.Open(s.DeviceID)
		if err != nil {
			c.adjustCounters(s, false) //nolint:errcheck
			return &IOError{DeviceID: s.DeviceID, Err: err}
		}
		dev.FD = fd
	}

	if on && s.NumChannels() > 0 && dev.TrigRefcount == 1 {
		c.waiter.Register(dev.FD, uint32(s.DeviceID))
	}

	if err := c.waiter.Wake(); err != nil {
		slog.Warn("activate: failed to wake waiter", "error", err)
	}

	return nil
}

// adjustCounters implements the refcount step (original's
// adjust_counters): it returns noEdge if the call was a pure stack/
// unstack, otherwise the direction of the edge it just crossed.
func (c *Controller) adjustCounters(s *sensor.Sensor, on bool) (edge, error) {
	if on {
		s.EnableCount++
		if s.EnableCount != 1 {
			return noEdge, nil
		}
	} else {
		if s.EnableCount == 0 {
			return noEdge, ErrInvalidState
		}
		s.EnableCount--
		if s.EnableCount > 0 {
			return noEdge, nil
		}

		s.ReportPending = false
		for i := range s.ReportBuffer {
			s.ReportBuffer[i] = 0
		}
	}

	dev := &c.devices[s.DeviceID]
	if s.NumChannels() > 0 {
		if on {
			dev.TrigRefcount++
		} else {
			dev.TrigRefcount--
		}
		return edgeFor(on), nil
	}

	if on {
		c.activePollSensors++
		dev.PollRefcount++
	} else {
		c.activePollSensors--
		dev.PollRefcount--
	}
	return edgeFor(on), nil
}

func edgeFor(on bool) edge {
	if on {
		return risingEdge
	}
	return fallingEdge
}

// reconfigureTrigger enforces the kernel's required write ordering:
// buffer/enable=0 before any channel _en write, buffer/enable=1 after
// all _en writes and the layout refresh.
func (c *Controller) reconfigureTrigger(s *sensor.Sensor, on bool, dev *sensor.Device) error {
	if err := c.gateway.WriteInt(bufferEnablePath(s.DeviceID), 0); err != nil {
		slog.Warn("activate: failed to disable buffer", "device", s.DeviceID, "error", err)
	}

	desc := c.catalog[s.CatalogIndex]

	switch dev.TrigRefcount {
	case 0:
		if err := c.gateway.WriteString(currentTriggerPath(s.DeviceID), "none"); err != nil {
			slog.Warn("activate: failed to clear trigger", "device", s.DeviceID, "error", err)
		}
	case 1:
		name := triggerName(desc.InternalName, s.DeviceID)
		if err := c.gateway.WriteString(currentTriggerPath(s.DeviceID), name); err != nil {
			slog.Warn("activate: failed to set trigger", "device", s.DeviceID, "trigger", name, "error", err)
		}
	}

	for ci, ch := range desc.Channels {
		if ci >= len(s.Channels) {
			break
		}
		v := 0
		if on {
			v = 1
		}
		if err := c.gateway.WriteInt(ch.EnPath, v); err != nil {
			slog.Warn("activate: failed to write channel enable", "path", ch.EnPath, "error", err)
		}
	}

	if dev.TrigRefcount > 0 {
		layout.Refresh(c.gateway, c.catalog, c.sensorsOnDevice(s.DeviceID), s.DeviceID)
		if err := c.gateway.WriteInt(bufferEnablePath(s.DeviceID), 1); err != nil {
			slog.Warn("activate: failed to enable buffer", "device", s.DeviceID, "error", err)
		}
	}

	return nil
}
