/*
Package control implements the activation manager, the wait/dispatch
loop, the rate controller, and the event shaper/demultiplexer: the
engine that decides which kernel channels are on, waits on all active
IIO character devices plus a timer for poll-mode sensors, and delivers
one event at a time to the caller.
*/
package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/dendrite-systems/iiomux/catalog"
	"github.com/dendrite-systems/iiomux/event"
	"github.com/dendrite-systems/iiomux/sensor"
	"github.com/dendrite-systems/iiomux/sysfs"
)

// PollMinInterval caps the rate at which PollOnce may re-enter its wait
// step, guarding against a misbehaving device whose fd is perpetually
// readable. It is the default; override with WithPollMinInterval.
const PollMinInterval = 10 * time.Millisecond

// Controller owns every piece of kernel-visible state for one sensor
// multiplexer instance: the sensor/device tables, the waiter, and the
// sysfs/device-fd collaborators. It holds what would otherwise be
// process-wide global tables as a single owned value; its control plane
// (Activate, SamplingInterval) is safe to call from any goroutine,
// serialized against the poll goroutine by mu.
type Controller struct {
	catalog catalog.Catalog
	sensors []*sensor.Sensor
	devices [sensor.MaxDevices]sensor.Device

	gateway sysfs.Gateway
	opener  DeviceOpener
	clock   sensor.Clock
	waiter  *event.Waiter

	pollMinInterval time.Duration

	mu                sync.Mutex
	activePollSensors int
	lastPollExitTS    int64
	pendingReady      []uint32
	pendingWoken      bool
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithGateway overrides the default OS-backed sysfs gateway.
func WithGateway(gw sysfs.Gateway) Option {
	return func(c *Controller) { c.gateway = gw }
}

// WithDeviceOpener overrides the default /dev/iio:deviceN opener.
func WithDeviceOpener(o DeviceOpener) Option {
	return func(c *Controller) { c.opener = o }
}

// WithClock overrides the default system clock.
func WithClock(clk sensor.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithPollMinInterval overrides PollMinInterval.
func WithPollMinInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollMinInterval = d }
}

// New instantiates a Controller over the given catalog and pre-populated
// sensor slots. Sensor.DeviceID, CatalogIndex, Type, Ops and the length
// of Channels must already be set by the caller's device enumerator; the
// remaining fields are managed by the Controller from here on.
func New(cat catalog.Catalog, sensors []*sensor.Sensor, opts ...Option) (*Controller, error) {
	w, err := event.NewWaiter()
	if err != nil {
		return nil, fmt.Errorf("failed to set up waiter: %w", err)
	}

	c := &Controller{
		catalog:         cat,
		sensors:         sensors,
		gateway:         sysfs.NewOSGateway(),
		opener:          OSDeviceOpener{},
		clock:           sensor.NewSystemClock(),
		waiter:          w,
		pollMinInterval: PollMinInterval,
	}
	for i := range c.devices {
		c.devices[i].FD = -1
	}

	for _, opt := range opts {
		opt(c)
	}

	c.lastPollExitTS = c.clock.MonotonicNS()

	return c, nil
}

// Close releases the waiter's wakeup fd and every still-open device fd.
// It does not stop the poll goroutine; callers must simply stop calling
// PollOnce.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.devices {
		if c.devices[i].IsOpen() {
			closeFD(c.devices[i].FD)
			c.devices[i].FD = -1
		}
	}
	return c.waiter.Close()
}

func (c *Controller) sensorsOnDevice(deviceID int) []*sensor.Sensor {
	var out []*sensor.Sensor
	for _, s := range c.sensors {
		if s.DeviceID == deviceID {
			out = append(out, s)
		}
	}
	return out
}
