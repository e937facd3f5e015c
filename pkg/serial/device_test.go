package serial

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	bugst "go.bug.st/serial"
)

// fakePort is an OS port stand-in. Read behaves like a port with a short
// read timeout: it returns queued input, the injected error, or nothing.
type fakePort struct {
	mu      sync.Mutex
	input   bytes.Buffer
	written bytes.Buffer
	readErr error
	closed  int
}

func (f *fakePort) feed(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Write(p)
}

func (f *fakePort) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.readErr != nil {
		err := f.readErr
		f.mu.Unlock()
		return 0, err
	}
	if f.input.Len() > 0 {
		defer f.mu.Unlock()
		return f.input.Read(p)
	}
	f.mu.Unlock()
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakePort) SetMode(*bugst.Mode) error { return nil }
func (f *fakePort) Drain() error { return nil }
func (f *fakePort) ResetInputBuffer() error { return nil }
func (f *fakePort) ResetOutputBuffer() error { return nil }
func (f *fakePort) SetDTR(bool) error { return nil }
func (f *fakePort) SetRTS(bool) error { return nil }
func (f *fakePort) GetModemStatusBits() (*bugst.ModemStatusBits, error) { return &bugst.ModemStatusBits{}, nil }
func (f *fakePort) SetReadTimeout(time.Duration) error { return nil }
func (f *fakePort) Break(time.Duration) error { return nil }

// newFakeDevice returns a Device whose Open hands out the given ports in turn.
func newFakeDevice(ports ...*fakePort) *Device {
	d := NewDevice()
	d.open = func(name string, mode *bugst.Mode) (bugst.Port, error) {
		if len(ports) == 0 {
			return nil, errors.New("no such port")
		}
		p := ports[0]
		ports = ports[1:]
		return p, nil
	}
	return d
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestDeviceClosed tests the OS port wrapper without hardware.
func TestDeviceClosed(t *testing.T) {
	d := NewDevice()

	if d.IsOpen() {
		t.Error("Expected closed device")
	}
	if _, err := d.Write([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
	if _, err := d.Read(make([]byte, 1)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
	if d.Available() != 0 {
		t.Errorf("Expected 0 bytes available, got %d", d.Available())
	}
	if err := d.Close(); err != nil {
		t.Errorf("Expected Close on closed device to succeed, got %v", err)
	}
	if err := d.Open("/dev/skytrack-does-not-exist", 115200); err == nil {
		d.Close()
		t.Error("Expected error opening a missing device")
	}
}

// TestDeviceExchange tests writing a frame and reading the reply through
// the background reader.
func TestDeviceExchange(t *testing.T) {
	port := &fakePort{}
	d := newFakeDevice(port)

	if err := d.Open("/dev/fake", 115200); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !d.IsOpen() {
		t.Fatal("Expected open device")
	}
	if err := d.Open("/dev/fake", 115200); err == nil {
		t.Error("Expected error opening an open device")
	}

	frame := bytes.Repeat([]byte{0xAB}, 32)
	if n, err := d.Write(frame); err != nil || n != len(frame) {
		t.Fatalf("Expected 32 bytes written, got %d (%v)", n, err)
	}
	port.mu.Lock()
	written := port.written.Len()
	port.mu.Unlock()
	if written != len(frame) {
		t.Errorf("Expected 32 bytes on the wire, got %d", written)
	}

	port.feed(frame)
	waitUntil(t, "reply bytes", func() bool { return d.Available() == len(frame) })

	buf := make([]byte, 64)
	n, err := d.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(buf[:n], frame) {
		t.Errorf("Expected the fed frame back, got %x", buf[:n])
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.IsOpen() || port.closed != 1 {
		t.Errorf("Expected closed device and port, got open=%v closed=%d", d.IsOpen(), port.closed)
	}
}

// TestDeviceReadError tests that a failing reader closes the link for
// its users instead of leaving it silently open.
func TestDeviceReadError(t *testing.T) {
	unplugged := errors.New("input/output error")
	first, second := &fakePort{}, &fakePort{}
	d := newFakeDevice(first, second)

	if err := d.Open("/dev/fake", 115200); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first.feed([]byte{1, 2, 3})
	waitUntil(t, "buffered bytes", func() bool { return d.Available() == 3 })

	first.fail(unplugged)
	waitUntil(t, "reader failure", func() bool { return !d.IsOpen() })

	if !errors.Is(d.Err(), unplugged) {
		t.Errorf("Expected the read error, got %v", d.Err())
	}
	if _, err := d.Write([]byte{1}); !errors.Is(err, unplugged) {
		t.Errorf("Expected Write to report the read error, got %v", err)
	}

	buf := make([]byte, 8)
	if n, err := d.Read(buf); err != nil || n != 3 {
		t.Errorf("Expected the 3 buffered bytes first, got %d (%v)", n, err)
	}
	if _, err := d.Read(buf); !errors.Is(err, unplugged) {
		t.Errorf("Expected Read to report the read error, got %v", err)
	}

	if err := d.Open("/dev/fake", 115200); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer d.Close()
	if first.closed != 1 {
		t.Errorf("Expected the dead port released, got %d closes", first.closed)
	}
	if !d.IsOpen() || d.Err() != nil {
		t.Errorf("Expected a healthy device after reopening, got open=%v err=%v", d.IsOpen(), d.Err())
	}
}
