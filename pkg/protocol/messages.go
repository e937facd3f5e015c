package protocol

import (
	"fmt"
)

// DefaultValidationWords are the two sentinel values some firmware builds
// append to Move acknowledgements.
var DefaultValidationWords = [2]uint32{69, 420}

// Move is the payload of a Move (absolute) or Advance (relative) frame.
type Move struct {
	Altitude float32 // degrees, absolute or delta
	Azimuth  float32 // degrees, absolute or delta
	Speed    float32 // degrees per second
}

// Configure is the payload of a Configure frame. It reconfigures the
// stepper drivers and sets the mount's reference position.
type Configure struct {
	Altitude   float32 // degrees
	Azimuth    float32 // degrees
	RMSCurrent float32 // mA
	GearRatio  float32
	Microsteps float32
}

// Ack is the payload of an acknowledgement from the firmware.
type Ack struct {
	Altitude float32
	Azimuth  float32

	// Validation holds the two trailing words when the firmware sent them
	Validation    [2]uint32
	HasValidation bool
}

// Valid reports whether the acknowledgement carries the expected
// validation words.
func (a Ack) Valid(words [2]uint32) bool {
	return a.HasValidation && a.Validation == words
}

func newFrame(cmd Command, values ...float32) (*Package, error) {
	p := NewPack32()
	p.Command = cmd
	if err := PushRange(p, values); err != nil {
		return nil, fmt.Errorf("failed to build %s frame: %w", cmd, err)
	}
	return p, nil
}

// NewHandshake returns the empty Ack-flagged frame that opens every job.
func NewHandshake() *Package {
	p := NewPack32()
	p.Command = CommandAck
	return p
}

// NewMove returns an absolute Move frame.
func NewMove(m Move) (*Package, error) {
	return newFrame(CommandMove, m.Altitude, m.Azimuth, m.Speed)
}

// NewAdvance returns a relative Advance frame.
func NewAdvance(m Move) (*Package, error) {
	return newFrame(CommandAdvance, m.Altitude, m.Azimuth, m.Speed)
}

// NewConfigure returns a Configure frame.
func NewConfigure(c Configure) (*Package, error) {
	return newFrame(CommandConfigure, c.Altitude, c.Azimuth, c.RMSCurrent, c.GearRatio, c.Microsteps)
}

// NewAck builds an acknowledgement as the firmware would send it. When
// validation is non-nil its two words follow the position.
func NewAck(altitude, azimuth float32, validation *[2]uint32) (*Package, error) {
	p, err := newFrame(CommandAck, altitude, azimuth)
	if err != nil {
		return nil, err
	}
	if validation != nil {
		if err := PushRange(p, validation[:]); err != nil {
			return nil, fmt.Errorf("failed to build Ack frame: %w", err)
		}
	}
	return p, nil
}

// DecodeMove reads a Move or Advance payload.
func DecodeMove(p *Package) (Move, error) {
	if p.Command != CommandMove && p.Command != CommandAdvance {
		return Move{}, fmt.Errorf("expected Move or Advance frame, got %s", p.Command)
	}
	v, err := ReadRange[float32](p, 0, 3)
	if err != nil {
		return Move{}, err
	}
	return Move{Altitude: v[0], Azimuth: v[1], Speed: v[2]}, nil
}

// DecodeConfigure reads a Configure payload.
func DecodeConfigure(p *Package) (Configure, error) {
	if p.Command != CommandConfigure {
		return Configure{}, fmt.Errorf("expected Configure frame, got %s", p.Command)
	}
	v, err := ReadRange[float32](p, 0, 5)
	if err != nil {
		return Configure{}, err
	}
	return Configure{Altitude: v[0], Azimuth: v[1], RMSCurrent: v[2], GearRatio: v[3], Microsteps: v[4]}, nil
}

// DecodeAck reads an acknowledgement. A bare handshake reply without a
// position decodes to a zero position.
func DecodeAck(p *Package) (Ack, error) {
	if p.Command != CommandAck {
		return Ack{}, fmt.Errorf("expected Ack frame, got %s", p.Command)
	}

	var ack Ack
	if p.Size() < 8 {
		return ack, nil
	}

	pos, err := ReadRange[float32](p, 0, 2)
	if err != nil {
		return Ack{}, err
	}
	ack.Altitude, ack.Azimuth = pos[0], pos[1]

	if p.Size() >= 16 {
		words, err := ReadRange[uint32](p, 2, 2)
		if err != nil {
			return Ack{}, err
		}
		ack.Validation = [2]uint32{words[0], words[1]}
		ack.HasValidation = true
	}
	return ack, nil
}
