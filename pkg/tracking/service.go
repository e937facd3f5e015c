// Package tracking drives the alt-azimuth mount. A Service owns the serial
// link to the controller and runs at most one job at a time: a one-shot
// move, continuous tracking of a body, manual steering, or a driver
// reconfiguration. Each job talks to the controller in strict
// request/acknowledge order and reports progress through a Handle.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/skytrack/pkg/astrotime"
	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/coordinates"
	"github.com/unklstewy/skytrack/pkg/protocol"
	"github.com/unklstewy/skytrack/pkg/serial"
)

var (
	// ErrBusy is returned when a submission arrives while a job is running.
	ErrBusy = errors.New("tracker busy: another job is in progress")

	// ErrInvalidSteering is returned when steering is submitted without memory.
	ErrInvalidSteering = errors.New("steering memory is nil")

	// ErrNotConnected is returned when the serial port is not open.
	ErrNotConnected = errors.New("mount controller not connected")

	// ErrHandshakeTimeout is returned when the controller does not answer
	// the opening handshake in time.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrNotAcknowledged is returned when the reply is not an Ack.
	ErrNotAcknowledged = errors.New("frame not acknowledged")

	// ErrValidation is returned when a Move acknowledgement lacks the
	// expected validation words.
	ErrValidation = errors.New("acknowledgement failed validation")

	// ErrShortIO is returned when fewer bytes than a frame were transferred.
	ErrShortIO = errors.New("incomplete frame transfer")
)

// DriverConfig is the stepper driver setup sent with a Configure frame.
type DriverConfig struct {
	RMSCurrent   float64 // mA
	GearRatio    float64
	Microsteps   float64
	HomeAltitude float64 // degrees
	HomeAzimuth  float64 // degrees
}

// Config holds the tracker settings.
type Config struct {
	// HandshakeTimeout bounds the wait for the reply to the opening handshake
	HandshakeTimeout time.Duration

	// PollInterval is the sleep between checks for reply bytes
	PollInterval time.Duration

	// AngularSpeed is the slew speed in degrees per second
	AngularSpeed float64

	// HistoryLimit is the number of frames kept for diagnostics
	HistoryLimit int

	// FrameRate caps motion frames per second in tracking and steering loops
	// Zero removes the cap
	FrameRate float64

	// ValidateMoveAck requires ValidationWords on every Move acknowledgement
	ValidateMoveAck bool
	ValidationWords [2]uint32

	Driver   DriverConfig
	Observer coordinates.Geographic
	Limits   Limits
}

// DefaultConfig returns the settings used by the reference firmware.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 750 * time.Millisecond,
		PollInterval:     time.Millisecond,
		AngularSpeed:     2.0,
		HistoryLimit:     256,
		FrameRate:        10,
		ValidationWords:  protocol.DefaultValidationWords,
		Driver: DriverConfig{
			RMSCurrent:  800,
			GearRatio:   100,
			Microsteps:  16,
			HomeAzimuth: 180,
		},
		Limits: DefaultLimits(),
	}
}

func newLimiter(frameRate float64) *rate.Limiter {
	if frameRate <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(frameRate), 1)
}

// Snapshot is a point-in-time view of the tracker for status displays.
type Snapshot struct {
	Connected      bool    `json:"connected"`
	Status         Status  `json:"status"`
	Kind           JobKind `json:"kind,omitempty"`
	Target         string  `json:"target,omitempty"`
	Begin          string  `json:"begin,omitempty"`
	Progress       float64 `json:"progress"`
	Frames         int     `json:"frames"`
	Altitude       float64 `json:"altitude"`
	Azimuth        float64 `json:"azimuth"`
	TargetAltitude float64 `json:"target_altitude"`
	TargetAzimuth  float64 `json:"target_azimuth"`
	LimitEvent     string  `json:"limit_event"`
	Error          string  `json:"error,omitempty"`
}

// Service owns the controller link, the current job handle and the frame
// history. Create one per mount with NewService.
type Service struct {
	port    serial.Port
	metrics *Metrics
	history *History

	cfgMu    sync.RWMutex
	cfg      Config
	limiter  *rate.Limiter
	portName string

	// ioMu serializes frame exchanges so only one is ever in flight
	ioMu sync.Mutex

	// owed is the size of a reply abandoned on timeout that may still
	// arrive. Guarded by ioMu.
	owed int

	// handleMu makes the busy check and handle replacement one step
	handleMu sync.Mutex
	handle   *Handle

	posMu     sync.RWMutex
	altitude  float64
	azimuth   float64
	target    coordinates.Horizontal
	lastEvent LimitEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a tracker on top of port. metrics may be nil.
func NewService(port serial.Port, cfg Config, metrics *Metrics) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		port:    port,
		metrics: metrics,
		history: NewHistory(cfg.HistoryLimit),
		cfg:     cfg,
		limiter: newLimiter(cfg.FrameRate),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Config returns a copy of the current settings.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig replaces the settings. It is rejected while a job runs.
func (s *Service) SetConfig(cfg Config) error {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	if s.handle != nil && s.handle.InProgress() {
		return ErrBusy
	}

	s.cfgMu.Lock()
	s.cfg = cfg
	s.limiter = newLimiter(cfg.FrameRate)
	s.cfgMu.Unlock()

	s.history.SetLimit(cfg.HistoryLimit)
	return nil
}

// SetObserver changes the observing site. Running jobs pick it up on their
// next frame.
func (s *Service) SetObserver(observer coordinates.Geographic) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg.Observer = observer
}

func (s *Service) frameLimiter() *rate.Limiter {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.limiter
}

// Connect opens the serial port.
func (s *Service) Connect(name string, baud int) error {
	if s.port.IsOpen() {
		return fmt.Errorf("already connected to %s", s.PortName())
	}
	if err := s.port.Open(name, baud); err != nil {
		return fmt.Errorf("failed to connect to mount controller: %w", err)
	}

	s.ioMu.Lock()
	s.owed = 0
	s.ioMu.Unlock()

	s.cfgMu.Lock()
	s.portName = name
	s.cfgMu.Unlock()

	log.Printf("Connected to mount controller on %s", name)
	return nil
}

// ConnectWithRetry calls Connect with exponential backoff, for controllers
// that need time to enumerate after power-up.
func (s *Service) ConnectWithRetry(ctx context.Context, name string, baud int, cfg RetryConfig) error {
	err := s.Connect(name, baud)
	for retry := 1; err != nil && retry <= cfg.MaxRetries; retry++ {
		wait := cfg.backoff(retry)
		log.Printf("Mount controller on %s not ready: %v (retry %d/%d in %v)", name, err, retry, cfg.MaxRetries, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("gave up connecting to %s: %w", name, ctx.Err())
		case <-timer.C:
		}
		err = s.Connect(name, baud)
	}
	if err != nil {
		return fmt.Errorf("gave up connecting to %s after %d attempts: %w", name, cfg.MaxRetries+1, err)
	}
	return nil
}

// Disconnect closes the serial port. A job blocked waiting for a reply
// fails with ErrNotConnected.
func (s *Service) Disconnect() error {
	// A link that failed on its own still holds the port until closed
	open := s.port.IsOpen()
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	if !open {
		return ErrNotConnected
	}
	log.Printf("Disconnected from mount controller on %s", s.PortName())
	return nil
}

// IsConnected reports whether the serial port is open.
func (s *Service) IsConnected() bool {
	return s.port.IsOpen()
}

// PortName returns the name of the last port connected to.
func (s *Service) PortName() string {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.portName
}

// PortNames lists the ports the underlying serial implementation offers.
func (s *Service) PortNames() ([]string, error) {
	return s.port.PortNames()
}

// Close stops any running job, closes the port and waits for the job to
// exit. Closing the port first releases a job blocked on a reply.
func (s *Service) Close() error {
	s.cancel()

	// Closing a closed port is a no-op; a failed link still needs releasing
	err := s.port.Close()
	s.wg.Wait()
	return err
}

// Handle returns the handle of the most recent job, or nil.
func (s *Service) Handle() *Handle {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	return s.handle
}

// History returns the recent frame exchanges, oldest first.
func (s *Service) History() []HistoryEntry {
	return s.history.Entries()
}

// Position returns the last position reported by the controller.
func (s *Service) Position() coordinates.Horizontal {
	s.posMu.RLock()
	defer s.posMu.RUnlock()
	return coordinates.Horizontal{Altitude: s.altitude, Azimuth: s.azimuth}
}

// Snapshot returns the current tracker state.
func (s *Service) Snapshot() Snapshot {
	snap := Snapshot{Connected: s.port.IsOpen(), Status: StatusIdle}

	if h := s.Handle(); h != nil {
		snap.Status = h.Status()
		snap.Kind = h.Kind()
		snap.Target = h.Target()
		snap.Begin = h.Begin().String()
		snap.Progress = h.Progress()
		snap.Frames = h.Frames()
		if err := h.Err(); err != nil {
			snap.Error = err.Error()
		}
	}

	s.posMu.RLock()
	snap.Altitude, snap.Azimuth = s.altitude, s.azimuth
	snap.TargetAltitude, snap.TargetAzimuth = s.target.Altitude, s.target.Azimuth
	snap.LimitEvent = s.lastEvent.String()
	s.posMu.RUnlock()

	return snap
}

// tryStart atomically checks that no job is running and installs a new
// handle in StatusSlewing.
func (s *Service) tryStart(kind JobKind, target string, duration time.Duration) (*Handle, error) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	if s.handle != nil && s.handle.InProgress() {
		return nil, ErrBusy
	}

	h := newHandle(s.ctx, kind, target, duration)
	s.handle = h
	s.wg.Add(1)
	s.metrics.setActive(true)

	s.posMu.Lock()
	s.lastEvent = WithinLimits
	s.posMu.Unlock()

	log.Printf("Job started: %s %s", kind, target)
	return h, nil
}

// finishJob records the outcome and releases waiters.
func (s *Service) finishJob(h *Handle) {
	// Still running here only when the service shut down under the job
	h.complete(StatusAborted, s.ctx.Err())

	status := h.Status()
	if err := h.Err(); err != nil {
		log.Printf("Job finished: %s %s -> %s (%v)", h.Kind(), h.Target(), status, err)
	} else {
		log.Printf("Job finished: %s %s -> %s", h.Kind(), h.Target(), status)
	}

	s.metrics.jobFinished(h.Kind(), status)
	s.handleMu.Lock()
	if s.handle == h {
		s.metrics.setActive(false)
	}
	s.handleMu.Unlock()

	h.finish()
	s.wg.Done()
}

// Abort stops a running job. Only a job in StatusTracking may be aborted;
// slews and handshakes run to completion.
func (s *Service) Abort() bool {
	h := s.Handle()
	if h == nil {
		return false
	}
	if !h.abort() {
		return false
	}
	log.Printf("Job aborted: %s %s", h.Kind(), h.Target())
	return true
}

// Submit slews the mount to a fixed horizontal position.
func (s *Service) Submit(target coordinates.Horizontal) (*Handle, error) {
	label := fmt.Sprintf("alt %.2f° az %.2f°", target.Altitude, target.Azimuth)
	h, err := s.tryStart(JobMove, label, 0)
	if err != nil {
		return nil, err
	}

	go func() {
		defer s.finishJob(h)

		if err := s.handshake(h); err != nil {
			h.complete(StatusFailure, err)
			return
		}

		s.observeLimits(h, target)
		if err := s.sendMove(protocol.CommandMove, target.Altitude, target.Azimuth); err != nil {
			h.complete(StatusFailure, err)
			return
		}
		h.countFrame()
		h.complete(StatusIdle, nil)
	}()

	return h, nil
}

// SubmitPlanet tracks a planet for duration.
func (s *Service) SubmitPlanet(planet bodies.Planet, duration time.Duration) (*Handle, error) {
	return s.SubmitBody(planet, duration)
}

// SubmitFixed tracks a catalog object for duration.
func (s *Service) SubmitFixed(body bodies.FixedBody, duration time.Duration) (*Handle, error) {
	return s.SubmitBody(body, duration)
}

// SubmitBody tracks any Body for duration. The position is recomputed for
// every frame; the job moves to StatusTracking after the first
// acknowledged frame and returns to StatusIdle when duration has elapsed.
func (s *Service) SubmitBody(body bodies.Body, duration time.Duration) (*Handle, error) {
	h, err := s.tryStart(JobTrack, body.DisplayName(), duration)
	if err != nil {
		return nil, err
	}

	go func() {
		defer s.finishJob(h)

		if err := s.handshake(h); err != nil {
			h.complete(StatusFailure, err)
			return
		}

		limiter := s.frameLimiter()
		deadline := h.started.Add(duration)
		for time.Now().Before(deadline) && !h.aborted() {
			if err := limiter.Wait(h.ctx); err != nil {
				break
			}

			cfg := s.Config()
			target := bodies.Horizontal(body, cfg.Observer, astrotime.UtcNow())
			s.observeLimits(h, target)

			if err := s.sendMove(protocol.CommandMove, target.Altitude, target.Azimuth); err != nil {
				h.complete(StatusFailure, err)
				return
			}
			h.countFrame()

			if h.transition(StatusSlewing, StatusTracking) {
				log.Printf("Tracking %s (alt %.2f° az %.2f°)", h.Target(), target.Altitude, target.Azimuth)
			}
		}

		if s.ctx.Err() == nil {
			h.complete(StatusIdle, nil)
		}
	}()

	return h, nil
}

// steeringIdlePause keeps an idle steering loop from spinning when the
// frame rate is uncapped.
const steeringIdlePause = 10 * time.Millisecond

// SubmitSteering hands the mount to manual control. Each frame moves the
// axes by a quarter of the angular speed in the directions set in memory.
// The job runs until aborted.
func (s *Service) SubmitSteering(memory *SteeringMemory) (*Handle, error) {
	if memory == nil {
		return nil, ErrInvalidSteering
	}

	h, err := s.tryStart(JobSteering, "manual", 0)
	if err != nil {
		return nil, err
	}

	go func() {
		defer s.finishJob(h)

		if err := s.handshake(h); err != nil {
			h.complete(StatusFailure, err)
			return
		}
		h.transition(StatusSlewing, StatusTracking)

		limiter := s.frameLimiter()
		for h.InProgress() && !h.aborted() {
			if err := limiter.Wait(h.ctx); err != nil {
				break
			}

			speed := s.Config().AngularSpeed
			dAlt, dAz := memory.delta(speed / 4.0)
			if dAlt == 0 && dAz == 0 {
				time.Sleep(steeringIdlePause)
				continue
			}

			if err := s.sendMove(protocol.CommandAdvance, dAlt, dAz); err != nil {
				h.complete(StatusFailure, err)
				return
			}
			h.countFrame()
		}
	}()

	return h, nil
}

// UpdateConfig sends the driver configuration to the controller. It runs
// synchronously and is rejected while another job is in progress.
func (s *Service) UpdateConfig(ctx context.Context) error {
	h, err := s.tryStart(JobConfigure, "driver", 0)
	if err != nil {
		return err
	}
	defer s.finishJob(h)

	if err := s.handshake(h); err != nil {
		h.complete(StatusFailure, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		h.complete(StatusAborted, err)
		return err
	}

	d := s.Config().Driver
	pkg, err := protocol.NewConfigure(protocol.Configure{
		Altitude:   float32(d.HomeAltitude),
		Azimuth:    float32(d.HomeAzimuth),
		RMSCurrent: float32(d.RMSCurrent),
		GearRatio:  float32(d.GearRatio),
		Microsteps: float32(d.Microsteps),
	})
	if err != nil {
		h.complete(StatusFailure, err)
		return err
	}

	if _, err := s.sendPackage(pkg, false); err != nil {
		h.complete(StatusFailure, err)
		return err
	}
	h.complete(StatusIdle, nil)
	return nil
}

// handshake sends the empty Ack frame that opens every job and waits at
// most HandshakeTimeout for the reply.
func (s *Service) handshake(h *Handle) error {
	if _, err := s.sendPackage(protocol.NewHandshake(), true); err != nil {
		log.Printf("Handshake failed for %s %s: %v", h.Kind(), h.Target(), err)
		return err
	}
	return nil
}

// sendMove sends one Move or Advance frame.
func (s *Service) sendMove(cmd protocol.Command, altitude, azimuth float64) error {
	m := protocol.Move{
		Altitude: float32(altitude),
		Azimuth:  float32(azimuth),
		Speed:    float32(s.Config().AngularSpeed),
	}

	var pkg *protocol.Package
	var err error
	if cmd == protocol.CommandAdvance {
		pkg, err = protocol.NewAdvance(m)
	} else {
		pkg, err = protocol.NewMove(m)
	}
	if err != nil {
		return err
	}

	_, err = s.sendPackage(pkg, false)
	return err
}

// sendPackage performs one request/acknowledge exchange. With
// failAfterTimeout the wait for the reply is bounded by HandshakeTimeout;
// otherwise it lasts until the reply arrives or the port is closed.
func (s *Service) sendPackage(pkg *protocol.Package, failAfterTimeout bool) (protocol.Ack, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if !s.port.IsOpen() {
		s.metrics.exchangeFailed("not_connected")
		return protocol.Ack{}, ErrNotConnected
	}

	cfg := s.Config()
	raw, err := pkg.MarshalBinary()
	if err != nil {
		return protocol.Ack{}, fmt.Errorf("failed to encode %s frame: %w", pkg.Command, err)
	}

	s.discardStale(pkg.Command, cfg)

	start := time.Now()
	n, err := s.port.Write(raw)
	s.history.Append(newHistoryEntry(pkg, Outgoing))
	if err != nil {
		s.metrics.exchangeFailed("write")
		return protocol.Ack{}, fmt.Errorf("failed to send %s frame: %w", pkg.Command, err)
	}
	if n != len(raw) {
		s.metrics.exchangeFailed("write")
		return protocol.Ack{}, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortIO, n, len(raw))
	}
	s.metrics.frameSent(pkg.Command.String())

	for s.port.Available() < len(raw) {
		if failAfterTimeout && time.Since(start) > cfg.HandshakeTimeout {
			s.owed = len(raw)
			s.metrics.exchangeFailed("timeout")
			return protocol.Ack{}, fmt.Errorf("%w after %v", ErrHandshakeTimeout, cfg.HandshakeTimeout)
		}
		if !s.port.IsOpen() {
			s.metrics.exchangeFailed("not_connected")
			return protocol.Ack{}, ErrNotConnected
		}
		time.Sleep(cfg.PollInterval)
	}

	buf := make([]byte, len(raw))
	read := 0
	for read < len(buf) {
		m, err := s.port.Read(buf[read:])
		if err != nil {
			s.metrics.exchangeFailed("read")
			return protocol.Ack{}, fmt.Errorf("failed to read reply: %w", err)
		}
		if m == 0 {
			s.metrics.exchangeFailed("read")
			return protocol.Ack{}, fmt.Errorf("%w: read %d of %d bytes", ErrShortIO, read, len(buf))
		}
		read += m
	}

	reply, err := protocol.Decode(buf)
	if err != nil {
		s.metrics.exchangeFailed("decode")
		return protocol.Ack{}, fmt.Errorf("failed to decode reply: %w", err)
	}
	s.history.Append(newHistoryEntry(reply, Ingoing))
	s.metrics.frameReceived(reply.Command.String(), time.Since(start).Seconds())

	if reply.Command != protocol.CommandAck {
		s.metrics.exchangeFailed("nak")
		return protocol.Ack{}, fmt.Errorf("%w: %s answered with %s", ErrNotAcknowledged, pkg.Command, reply.Command)
	}

	ack, err := protocol.DecodeAck(reply)
	if err != nil {
		s.metrics.exchangeFailed("decode")
		return protocol.Ack{}, fmt.Errorf("failed to decode acknowledgement: %w", err)
	}
	if reply.Size() >= 8 {
		s.posMu.Lock()
		s.altitude, s.azimuth = float64(ack.Altitude), float64(ack.Azimuth)
		s.posMu.Unlock()
	}

	if cfg.ValidateMoveAck && pkg.Command == protocol.CommandMove && !ack.Valid(cfg.ValidationWords) {
		s.metrics.exchangeFailed("validation")
		return ack, fmt.Errorf("%w: got %v", ErrValidation, ack.Validation)
	}

	return ack, nil
}

// discardStale drops reply bytes left over from an earlier exchange so the
// next read belongs to the frame about to be sent. A reply abandoned on
// timeout is waited for up to HandshakeTimeout. Caller holds ioMu.
func (s *Service) discardStale(next protocol.Command, cfg Config) {
	if s.owed > 0 {
		deadline := time.Now().Add(cfg.HandshakeTimeout)
		for s.port.Available() < s.owed && s.port.IsOpen() && time.Now().Before(deadline) {
			time.Sleep(cfg.PollInterval)
		}
		s.owed = 0
	}

	pending := s.port.Available()
	if pending == 0 {
		return
	}
	buf := make([]byte, pending)
	read := 0
	for read < len(buf) {
		m, err := s.port.Read(buf[read:])
		if err != nil || m == 0 {
			break
		}
		read += m
	}
	buf = buf[:read]

	if stale, err := protocol.Decode(buf); err == nil {
		s.history.Append(newHistoryEntry(stale, Ingoing))
	}
	s.metrics.exchangeFailed("stale")
	log.Printf("Discarded %d stale reply bytes before %s: %x", read, next, buf)
}

// observeLimits records the commanded position and logs changes of its
// limit classification.
func (s *Service) observeLimits(h *Handle, target coordinates.Horizontal) {
	event, msg := s.Config().Limits.Check(target)

	s.posMu.Lock()
	s.target = target
	changed := event != s.lastEvent
	s.lastEvent = event
	s.posMu.Unlock()

	if changed {
		log.Printf("%s: %s (alt %.2f° az %.2f°)", h.Target(), msg, target.Altitude, target.Azimuth)
	}
}
