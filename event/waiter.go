//go:build linux
// +build linux

/*
Package event provides the waiter primitive the control core uses to
multiplex all active IIO character devices plus a wakeup channel onto a
single blocking wait. The wakeup channel is a self-pipe built on top of
an eventfd: any control-plane mutation (activation, rate change) writes
one event to it so that a blocked Wait returns promptly and re-evaluates
its fd set and timeout on the next iteration.
*/
package event

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

// wakeupFD is the non-blocking eventfd backing a Waiter's self-pipe. It
// exists only to give the wakeup channel its own small surface
// (signal/readEvent/close) distinct from the device fds a Waiter
// multiplexes.
type wakeupFD int

// wakeupSignal is the fixed 8-byte payload written to unblock a Wait.
var wakeupSignal = [8]byte{1, 0, 0, 0, 0, 0, 0, 0}

func newWakeupFD() (wakeupFD, error) {
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK)
	if err != nil {
		return -1, fmt.Errorf("failed to create wakeup eventfd: %w", err)
	}
	return wakeupFD(efd), nil
}

func (w wakeupFD) signal() error {
	n, err := unix.Write(int(w), wakeupSignal[:])
	if err != nil {
		return fmt.Errorf("failed to signal wakeup fd: %w", err)
	}
	if n != len(wakeupSignal) {
		return fmt.Errorf("short write signaling wakeup fd (want %d, have %d)", len(wakeupSignal), n)
	}
	return nil
}

func (w wakeupFD) readEvent() error {
	var buf [8]byte
	n, err := unix.Read(int(w), buf[:])
	if err != nil {
		return fmt.Errorf("failed to read wakeup fd: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("short read acknowledging wakeup fd (want %d, have %d)", len(buf), n)
	}
	return nil
}

func (w wakeupFD) close() error {
	return unix.Close(int(w))
}

// Waiter multiplexes an arbitrary set of readable file descriptors plus one
// wakeup fd onto a single blocking Wait call. Unlike a fixed two-fd poll, fds
// can be registered and unregistered while no wait is in flight; a write to
// the wakeup fd (Wake) causes an in-flight Wait to return immediately so the
// next call picks up the updated fd set.
type Waiter struct {
	wakeup wakeupFD

	mu  sync.Mutex
	tag map[int]uint32 // fd -> caller-supplied tag (e.g. a device id)
}

// NewWaiter instantiates a new Waiter with its own wakeup eventfd.
func NewWaiter() (*Waiter, error) {
	wakeup, err := newWakeupFD()
	if err != nil {
		return nil, fmt.Errorf("failed to set up waiter wakeup fd: %w", err)
	}

	return &Waiter{
		wakeup: wakeup,
		tag:    make(map[int]uint32),
	}, nil
}

// Register adds fd to the watched set, associated with the given tag. The
// tag is returned by Wait to identify which registration became readable.
func (w *Waiter) Register(fd int, tag uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tag[fd] = tag
}

// Unregister removes fd from the watched set. It is a no-op if fd was not
// registered.
func (w *Waiter) Unregister(fd int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.tag, fd)
}

// Wake unblocks an in-flight (or future) Wait call.
func (w *Waiter) Wake() error {
	return w.wakeup.signal()
}

// Close releases the wakeup fd. Registered device fds are owned by the
// caller and are not touched.
func (w *Waiter) Close() error {
	return w.wakeup.close()
}

// Wait blocks (honoring timeoutMs as per unix.Poll: negative means infinite,
// zero means return immediately) until either a registered fd becomes
// readable or Wake is called. It returns the tags of all fds that became
// readable, in ascending fd order, and whether the wakeup fired. A wakeup
// always has its eventfd counter read (and so reset) before returning.
func (w *Waiter) Wait(timeoutMs int) (ready []uint32, woken bool, err error) {
	w.mu.Lock()
	fds := make([]unix.PollFd, 0, len(w.tag)+1)
	fds = append(fds, unix.PollFd{Fd: int32(w.wakeup), Events: unix.POLLIN})

	type entry struct {
		fd  int32
		tag uint32
	}
	entries := make([]entry, 0, len(w.tag))
	for fd, tag := range w.tag {
		entries = append(entries, entry{fd: int32(fd), tag: tag})
	}
	w.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].fd < entries[j].fd })
	for _, e := range entries {
		fds = append(fds, unix.PollFd{Fd: e.fd, Events: unix.POLLIN})
	}

	n, perr := unix.Poll(fds, timeoutMs)
	if perr != nil {
		return nil, false, fmt.Errorf("poll failed: %w", perr)
	}
	if n == 0 {
		return nil, false, nil
	}

	if fds[0].Revents&(unix.POLLIN|unix.POLLERR) != 0 {
		woken = true
		if rerr := w.wakeup.readEvent(); rerr != nil {
			return nil, woken, fmt.Errorf("failed to acknowledge wakeup: %w", rerr)
		}
	}

	for i, e := range entries {
		pfd := fds[i+1]
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready = append(ready, e.tag)
		}
	}

	return ready, woken, nil
}
