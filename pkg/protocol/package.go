// Package protocol implements the fixed-size binary frame exchanged with
// the mount firmware over the serial link.
//
// Every frame is a two byte header followed by a raw payload:
//
//	+---------+------+---------------------------+
//	| command | size | payload (total - 2 bytes) |
//	+---------+------+---------------------------+
//
// The layout is packed with no padding, multi-byte values are little
// endian, and unused payload bytes are transmitted as zero. Production
// traffic uses 32 byte frames.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOverflow is returned when a push would exceed the payload capacity.
	ErrOverflow = errors.New("payload capacity exceeded")

	// ErrOutOfRange is returned when a read falls outside the used payload.
	ErrOutOfRange = errors.New("read outside payload")

	// ErrFrameSize is returned for unsupported frame sizes.
	ErrFrameSize = errors.New("unsupported frame size")

	// ErrTruncated is returned when a decoded header claims more payload
	// than the frame can hold.
	ErrTruncated = errors.New("frame header exceeds frame size")
)

// Command is the one-hot frame type.
type Command uint8

const (
	CommandNone      Command = 1 << iota // 1
	CommandWakeup                        // 2
	CommandSleep                         // 4
	CommandMove                          // 8
	CommandConfigure                     // 16
	CommandOrigin                        // 32
	CommandAck                           // 64
	CommandAdvance                       // 128
)

var commandNames = map[Command]string{
	CommandNone:      "None",
	CommandWakeup:    "Wakeup",
	CommandSleep:     "Sleep",
	CommandMove:      "Move",
	CommandConfigure: "Configure",
	CommandOrigin:    "Origin",
	CommandAck:       "Ack",
	CommandAdvance:   "Advance",
}

// String returns the command name. Combined flags are joined with "|".
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	var parts []string
	for bit := CommandNone; bit != 0; bit <<= 1 {
		if c&bit != 0 {
			parts = append(parts, commandNames[bit])
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
	return strings.Join(parts, "|")
}

// HeaderSize is the number of header bytes preceding the payload.
const HeaderSize = 2

// Pack32 is the frame size used by all production traffic.
const Pack32 = 32

// ValidFrameSize reports whether total is a supported frame size.
func ValidFrameSize(total int) bool {
	switch total {
	case 8, 16, 32, 64, 128:
		return true
	}
	return false
}

// Package is a single protocol frame of fixed total size.
type Package struct {
	Command Command
	size    uint8
	payload []byte
}

// NewPackage returns an empty frame of the given total size (header
// included). Only 8, 16, 32, 64 and 128 byte frames exist.
func NewPackage(total int) (*Package, error) {
	if !ValidFrameSize(total) {
		return nil, fmt.Errorf("%w: %d", ErrFrameSize, total)
	}
	return &Package{
		Command: CommandNone,
		payload: make([]byte, total-HeaderSize),
	}, nil
}

// NewPack32 returns an empty 32 byte frame.
func NewPack32() *Package {
	p, _ := NewPackage(Pack32)
	return p
}

// Total returns the frame size in bytes, header included.
func (p *Package) Total() int { return len(p.payload) + HeaderSize }

// Capacity returns the number of payload bytes the frame can hold.
func (p *Package) Capacity() int { return len(p.payload) }

// Size returns the number of payload bytes in use.
func (p *Package) Size() int { return int(p.size) }

// Payload returns a copy of the used payload bytes.
func (p *Package) Payload() []byte {
	return append([]byte(nil), p.payload[:p.size]...)
}

// Clear empties the payload and resets the command to None.
func (p *Package) Clear() {
	p.Command = CommandNone
	p.size = 0
	clear(p.payload)
}

// Scalar is the set of fixed-size values that can be carried in a payload.
type Scalar interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 |
		~uint64 | ~int64 | ~float32 | ~float64
}

func sizeOf[T Scalar]() int {
	var zero T
	return binary.Size(zero)
}

// Push appends v to the payload.
func Push[T Scalar](p *Package, v T) error {
	n := sizeOf[T]()
	if int(p.size)+n > len(p.payload) {
		return fmt.Errorf("%w: %d + %d > %d", ErrOverflow, p.size, n, len(p.payload))
	}
	if _, err := binary.Encode(p.payload[p.size:], binary.LittleEndian, v); err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	p.size += uint8(n)
	return nil
}

// PushRange appends all values or none of them.
func PushRange[T Scalar](p *Package, values []T) error {
	n := sizeOf[T]() * len(values)
	if int(p.size)+n > len(p.payload) {
		return fmt.Errorf("%w: %d + %d > %d", ErrOverflow, p.size, n, len(p.payload))
	}
	for _, v := range values {
		if err := Push(p, v); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the index-th value of type T, counting in units of T.
func Read[T Scalar](p *Package, index int) (T, error) {
	var v T
	n := sizeOf[T]()
	if index < 0 || (index+1)*n > int(p.size) {
		return v, fmt.Errorf("%w: index %d of %d-byte values, size %d", ErrOutOfRange, index, n, p.size)
	}
	if _, err := binary.Decode(p.payload[index*n:], binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("failed to decode value: %w", err)
	}
	return v, nil
}

// ReadRange returns count values of type T starting at offset, both in
// units of T.
func ReadRange[T Scalar](p *Package, offset, count int) ([]T, error) {
	n := sizeOf[T]()
	if offset < 0 || count < 0 || (offset+count)*n > int(p.size) {
		return nil, fmt.Errorf("%w: %d values at %d, size %d", ErrOutOfRange, count, offset, p.size)
	}
	values := make([]T, count)
	for i := range values {
		v, err := Read[T](p, offset+i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// MarshalBinary returns the frame's wire image.
func (p *Package) MarshalBinary() ([]byte, error) {
	out := make([]byte, p.Total())
	out[0] = byte(p.Command)
	out[1] = p.size
	copy(out[HeaderSize:], p.payload)
	return out, nil
}

// UnmarshalBinary decodes a wire image. A zero Package adopts the size of
// data; an allocated one requires data to match its size exactly.
func (p *Package) UnmarshalBinary(data []byte) error {
	if p.payload == nil {
		if !ValidFrameSize(len(data)) {
			return fmt.Errorf("%w: %d", ErrFrameSize, len(data))
		}
		p.payload = make([]byte, len(data)-HeaderSize)
	}
	if len(data) != p.Total() {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrFrameSize, len(data), p.Total())
	}
	if int(data[1]) > len(p.payload) {
		return fmt.Errorf("%w: size %d, capacity %d", ErrTruncated, data[1], len(p.payload))
	}

	p.Command = Command(data[0])
	p.size = data[1]
	copy(p.payload, data[HeaderSize:])
	return nil
}

// Decode parses a wire image into a new Package.
func Decode(data []byte) (*Package, error) {
	p := &Package{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}
