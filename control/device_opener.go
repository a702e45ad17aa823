//go:build linux
// +build linux

package control

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DeviceOpener opens the character device backing an IIO device. It is a
// seam: tests substitute an opener backed by unix.Pipe so the activation
// and wait/dispatch paths can be exercised without real hardware, wrapping
// a pipe fd in place of a character device fd.
type DeviceOpener interface {
	Open(deviceID int) (fd int, err error)
}

// OSDeviceOpener opens the real /dev/iio:deviceN character device,
// non-blocking and read-only.
type OSDeviceOpener struct{}

func (OSDeviceOpener) Open(deviceID int) (int, error) {
	fd, err := unix.Open(devFilePath(deviceID), unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return -1, fmt.Errorf("could not open %s: %w", devFilePath(deviceID), err)
	}
	return fd, nil
}

func closeFD(fd int) {
	_ = unix.Close(fd)
}

func readFD(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		return n, err
	}
	return n, nil
}
