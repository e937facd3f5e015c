package serial

import (
	"bytes"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unklstewy/skytrack/pkg/protocol"
)

// SimulatorPortName is the only name a Simulator accepts in Open.
const SimulatorPortName = "simulator"

// SimulatorOptions shapes the behavior of the emulated firmware.
type SimulatorOptions struct {
	// Delay postpones every reply
	Delay time.Duration

	// Silent suppresses all replies, as if the controller hung
	Silent bool

	// RejectAfter makes every frame after the first RejectAfter frames
	// answered with a non-Ack reply. Zero disables rejection.
	RejectAfter int

	// ValidationWords, when set, are appended to Move acknowledgements
	ValidationWords *[2]uint32

	// WriteError makes every Write fail
	WriteError error
}

// Simulator is an in-memory Port that behaves like the mount firmware:
// every well-formed frame is answered with an Ack carrying the current
// position. Move sets the position, Advance offsets it and Configure
// resets it.
type Simulator struct {
	mu      sync.Mutex
	opts    SimulatorOptions
	open    bool
	rx      bytes.Buffer
	pending []byte

	altitude float32
	azimuth  float32
	driver   protocol.Configure
	received []*protocol.Package
	replies  sync.WaitGroup
}

// NewSimulator returns a closed Simulator.
func NewSimulator(opts SimulatorOptions) *Simulator {
	return &Simulator{opts: opts}
}

// SetOptions replaces the behavior for subsequent frames.
func (s *Simulator) SetOptions(opts SimulatorOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

// Open connects the simulator. Any name other than SimulatorPortName fails.
func (s *Simulator) Open(name string, baud int) error {
	if name != SimulatorPortName {
		return fmt.Errorf("failed to open serial port %s: no such simulated port", name)
	}
	if baud <= 0 {
		return fmt.Errorf("failed to open serial port %s: invalid baud rate %d", name, baud)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.rx.Reset()
	s.pending = nil
	log.Printf("Simulated mount controller ready on %s", name)
	return nil
}

// Close disconnects the simulator and waits for delayed replies to drain.
func (s *Simulator) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	s.replies.Wait()
	return nil
}

// Read copies buffered reply bytes into p.
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrNotOpen
	}
	n, _ := s.rx.Read(p)
	return n, nil
}

// Write accepts frame bytes. Each complete 32 byte frame is decoded and
// answered.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return 0, ErrNotOpen
	}
	if s.opts.WriteError != nil {
		return 0, s.opts.WriteError
	}

	s.pending = append(s.pending, p...)
	for len(s.pending) >= protocol.Pack32 {
		frame := s.pending[:protocol.Pack32]
		s.pending = s.pending[protocol.Pack32:]
		s.handle(frame)
	}
	return len(p), nil
}

// handle processes one frame. Caller holds mu.
func (s *Simulator) handle(frame []byte) {
	pkg, err := protocol.Decode(frame)
	if err != nil {
		log.Printf("Simulator: dropping malformed frame: %v", err)
		return
	}
	s.received = append(s.received, pkg)

	var validation *[2]uint32
	switch pkg.Command {
	case protocol.CommandMove:
		if m, err := protocol.DecodeMove(pkg); err == nil {
			s.altitude, s.azimuth = m.Altitude, m.Azimuth
		}
		validation = s.opts.ValidationWords
	case protocol.CommandAdvance:
		if m, err := protocol.DecodeMove(pkg); err == nil {
			s.altitude += m.Altitude
			s.azimuth += m.Azimuth
		}
	case protocol.CommandConfigure:
		if c, err := protocol.DecodeConfigure(pkg); err == nil {
			s.driver = c
			s.altitude, s.azimuth = c.Altitude, c.Azimuth
		}
	case protocol.CommandOrigin:
		s.altitude, s.azimuth = 0, 0
	}

	if s.opts.Silent {
		return
	}

	var reply *protocol.Package
	if s.opts.RejectAfter > 0 && len(s.received) > s.opts.RejectAfter {
		reply = protocol.NewPack32()
	} else {
		reply, err = protocol.NewAck(s.altitude, s.azimuth, validation)
		if err != nil {
			log.Printf("Simulator: failed to build reply: %v", err)
			return
		}
	}
	raw, _ := reply.MarshalBinary()

	if s.opts.Delay <= 0 {
		s.rx.Write(raw)
		return
	}

	s.replies.Add(1)
	time.AfterFunc(s.opts.Delay, func() {
		defer s.replies.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.open {
			s.rx.Write(raw)
		}
	})
}

// Available returns the number of reply bytes waiting.
func (s *Simulator) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.Len()
}

// IsOpen reports whether Open succeeded and Close has not been called.
func (s *Simulator) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// PortNames returns the simulated port name.
func (s *Simulator) PortNames() ([]string, error) {
	return []string{SimulatorPortName}, nil
}

// Position returns the emulated mount's current altitude and azimuth.
func (s *Simulator) Position() (altitude, azimuth float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.altitude, s.azimuth
}

// Driver returns the last driver configuration received.
func (s *Simulator) Driver() protocol.Configure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Received returns the frames received so far, oldest first.
func (s *Simulator) Received() []*protocol.Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.Package(nil), s.received...)
}
