package serial

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	bugst "go.bug.st/serial"
)

// readTimeout bounds each blocking read of the background reader so that
// Close can stop it promptly.
const readTimeout = 50 * time.Millisecond

// Device is a Port backed by an operating system serial port.
//
// A background goroutine drains the port into an in-memory buffer so that
// Available can report the number of received bytes without blocking,
// which is how the firmware link is polled.
type Device struct {
	// mu guards port, rx, err and stop
	mu   sync.Mutex
	port bugst.Port
	rx   bytes.Buffer

	// err is set when the reader fails; the port counts as closed from then on
	err error

	open func(name string, mode *bugst.Mode) (bugst.Port, error)

	// name is the OS device path, kept for log messages
	name string

	stop chan struct{}
	done chan struct{}
}

// NewDevice returns a closed Device.
func NewDevice() *Device {
	return &Device{open: bugst.Open}
}

// Open connects to the named port with 8N1 framing.
func (d *Device) Open(name string, baud int) error {
	// A port whose reader died is still held; release it before reopening
	d.mu.Lock()
	dead := d.port != nil && d.err != nil
	d.mu.Unlock()
	if dead {
		d.Close()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		return fmt.Errorf("serial port %s already open", d.name)
	}

	port, err := d.open(name, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		log.Printf("Warning: failed to flush input buffer on %s: %v", name, err)
	}

	d.port = port
	d.name = name
	d.err = nil
	d.rx.Reset()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	go d.readLoop(port, d.stop, d.done)

	log.Printf("Serial port %s opened at %d baud", name, baud)
	return nil
}

// readLoop copies incoming bytes into the receive buffer until stopped or
// the port fails.
func (d *Device) readLoop(port bugst.Port, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, 256)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := port.Read(buf)
		if n > 0 {
			d.mu.Lock()
			d.rx.Write(buf[:n])
			d.mu.Unlock()
		}
		if err != nil {
			var portErr *bugst.PortError
			if errors.As(err, &portErr) && portErr.Code() == bugst.PortClosed {
				return
			}
			log.Printf("Serial read error on %s: %v", d.name, err)
			d.mu.Lock()
			d.err = fmt.Errorf("failed to read from %s: %w", d.name, err)
			d.mu.Unlock()
			return
		}
	}
}

// Close stops the reader and releases the port.
func (d *Device) Close() error {
	d.mu.Lock()
	port, stop, done := d.port, d.stop, d.done
	d.port = nil
	d.mu.Unlock()

	if port == nil {
		return nil
	}

	close(stop)
	err := port.Close()
	<-done

	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", d.name, err)
	}
	log.Printf("Serial port %s closed", d.name)
	return nil
}

// Read copies buffered bytes into p.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return 0, ErrNotOpen
	}
	if d.rx.Len() == 0 && d.err != nil {
		return 0, d.err
	}
	n, _ := d.rx.Read(p)
	return n, nil
}

// Write sends p to the port.
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	port, readErr := d.port, d.err
	d.mu.Unlock()

	if port == nil {
		return 0, ErrNotOpen
	}
	if readErr != nil {
		return 0, readErr
	}

	written := 0
	for written < len(p) {
		n, err := port.Write(p[written:])
		if err != nil {
			return written, fmt.Errorf("failed to write to %s: %w", d.name, err)
		}
		written += n
	}
	return written, nil
}

// Available returns the number of buffered received bytes.
func (d *Device) Available() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rx.Len()
}

// IsOpen reports whether the port is open and its reader still running.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port != nil && d.err == nil
}

// Err returns the error that stopped the reader, if any.
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// PortNames lists the host's serial ports.
func (d *Device) PortNames() ([]string, error) {
	return PortNames()
}
