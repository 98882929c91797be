//go:build unix

// Package houndio wraps a raw file descriptor as a non-blocking io.Reader,
// for reference drivers that sit on top of a real POSIX fd (a serial port
// or socket) rather than an in-memory source. The core loop itself only
// needs an io.Reader — this is plumbing for the drivers that happen to
// have a real fd underneath, mirroring the original's fcntl+ppoll setup
// in its I/O loop without requiring the core to know about fds at all.
package houndio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FD wraps an open file descriptor, switching it into non-blocking mode
// so Read never stalls the goroutine that owns it past what the core
// loop's reader goroutine model expects.
type FD struct {
	fd int
	f  *os.File
}

// Open opens path and puts its descriptor into non-blocking mode.
func Open(path string) (*FD, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &FD{fd: fd, f: os.NewFile(uintptr(fd), path)}, nil
}

// Read satisfies io.Reader. EAGAIN is translated into a zero-byte, nil-error
// read so callers treat it like "nothing available right now" rather than
// an error.
func (d *FD) Read(p []byte) (int, error) {
	n, err := unix.Read(d.fd, p)
	if err == unix.EAGAIN {
		return 0, nil
	}
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, nil
	}
	return n, nil
}

// Close releases the underlying descriptor.
func (d *FD) Close() error {
	return d.f.Close()
}
