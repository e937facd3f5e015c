// Package serial provides the byte-stream link to the mount controller.
//
// The tracker only needs a small capability: open a named port, write a
// frame, poll how many response bytes have arrived, and read them. Device
// implements it over a real serial port; Simulator implements it in memory
// by emulating the mount firmware.
package serial

import (
	"errors"

	bugst "go.bug.st/serial"
)

// ErrNotOpen is returned by I/O on a port that is not open.
var ErrNotOpen = errors.New("serial port not open")

// Port is a half-duplex byte stream to the mount controller.
type Port interface {
	// Open connects to the named port at the given baud rate
	Open(name string, baud int) error

	// Close releases the port. Closing a closed port is a no-op.
	Close() error

	// Read copies up to len(p) buffered bytes into p without blocking
	Read(p []byte) (int, error)

	// Write sends p in full or returns an error
	Write(p []byte) (int, error)

	// Available returns the number of received bytes waiting to be read
	Available() int

	// IsOpen reports whether the port is connected
	IsOpen() bool

	// PortNames lists the ports this implementation can open
	PortNames() ([]string, error)
}

// PortNames lists the serial ports present on the host.
func PortNames() ([]string, error) {
	return bugst.GetPortsList()
}
