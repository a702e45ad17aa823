package control

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dendrite-systems/iiomux/sensor"
)

// pollState is the explicit state machine driving the drain/wait/dispatch
// cycle, in place of a goto-based loop.
type pollState int

const (
	stateDrain pollState = iota
	stateWait
	stateDispatch
)

// PollOnce runs the Drain/Wait/Dispatch cycle as many times as needed
// until a report is pending, and returns exactly one event. It blocks for as
// long as no sensor has a report pending and no device fd becomes
// readable; the only error it can return is a setup-level failure (none
// currently possible once a Controller is constructed) — recoverable
// conditions (a failed Wait, a short device read) are logged and the
// loop continues.
func (c *Controller) PollOnce(out *sensor.Event) (int, error) {
	state := stateDrain

	for {
		switch state {
		case stateDrain:
			if n := c.drain(out); n > 0 {
				return n, nil
			}
			c.rateLimitSleep()
			state = stateWait

		case stateWait:
			c.wait()
			state = stateDispatch

		case stateDispatch:
			c.dispatch()
			state = stateDrain

		default:
			return 0, fmt.Errorf("control: unreachable poll state %d", state)
		}
	}
}

// drain scans sensors in index order for a pending report and, if found,
// shapes it into out and clears the flag.
func (c *Controller) drain(out *sensor.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.sensors {
		if s.ReportPending {
			c.shape(i, s, out)
			s.ReportPending = false
			return 1
		}
	}
	return 0
}

// rateLimitSleep enforces PollMinInterval between successive Wait calls.
func (c *Controller) rateLimitSleep() {
	c.mu.Lock()
	elapsed := time.Duration(c.clock.MonotonicNS() - c.lastPollExitTS)
	floor := c.pollMinInterval
	c.mu.Unlock()

	if elapsed < floor {
		time.Sleep(floor - elapsed)
	}
}

// wait blocks on the waiter with the rate controller's computed timeout
// and records the exit timestamp. It deliberately does not hold mu while
// blocked, so Activate/SamplingInterval calls from other goroutines can
// proceed and wake it.
func (c *Controller) wait() {
	c.mu.Lock()
	timeoutMs := c.nextTimeout()
	c.mu.Unlock()

	ready, woken, err := c.waiter.Wait(timeoutMs)

	c.mu.Lock()
	c.lastPollExitTS = c.clock.MonotonicNS()
	c.pendingReady = ready
	c.pendingWoken = woken
	c.mu.Unlock()

	if err != nil {
		slog.Warn("poll_once: wait failed", "error", err)
	}
}

// dispatch integrates a report for every device that became readable,
// then, if any poll-mode sensor is active, marks every enabled poll-mode
// sensor's report pending unconditionally. Deadlines are enforced in
// aggregate by nextTimeout, not gated per sensor here.
//
// A Wait that returned purely because Wake was called — no device
// readable, ready empty — skips the poll-mode fan-out entirely and
// leaves it to the next wait: a bare Activate or SamplingInterval call
// is not itself evidence that any poll-mode sensor's sampling interval
// has elapsed.
func (c *Controller) dispatch() {
	c.mu.Lock()
	ready := c.pendingReady
	woken := c.pendingWoken
	c.pendingReady = nil
	c.pendingWoken = false
	hasPollSensors := c.activePollSensors > 0
	c.mu.Unlock()

	for _, tag := range ready {
		c.mu.Lock()
		c.integrate(int(tag))
		c.mu.Unlock()
	}

	if len(ready) == 0 && woken {
		return
	}

	if !hasPollSensors {
		return
	}

	c.mu.Lock()
	for _, s := range c.sensors {
		if s.EnableCount > 0 && s.NumChannels() == 0 {
			s.ReportPending = true
		}
	}
	c.mu.Unlock()
}
