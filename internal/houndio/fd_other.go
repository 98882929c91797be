//go:build !unix

package houndio

import (
	"errors"
	"os"
)

// FD is a stub on non-unix platforms; raw-fd drivers are unix-only.
type FD struct {
	f *os.File
}

func Open(path string) (*FD, error) {
	return nil, errors.New("houndio: raw fd driver not supported on this platform")
}

func (d *FD) Read(p []byte) (int, error) { return 0, errors.New("houndio: unsupported") }
func (d *FD) Close() error               { return nil }
