package armbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Frame represents a classical CAN (2.0A/2.0B) frame as it travels between the
// transport and the driver pipelines.
//
// Supported features:
//   - Standard (11-bit) and Extended (29-bit) identifiers
//   - Data frames and Remote Transmission Request (RTR)
//   - Data length 0-8 bytes (classical CAN)
//   - Capture timestamp in microseconds since the Unix epoch (0 if unknown)
//
// Frame is a plain value; copying it never aliases payload memory.
type Frame struct {
	ID        uint32 // 11-bit (std) or 29-bit (ext)
	Extended  bool   // true for 29-bit identifier
	RTR       bool   // remote transmission request
	Len       uint8  // 0..8
	Data      [8]byte
	Timestamp uint64 // capture time in µs since epoch, 0 if unavailable
}

// Validation limits.
const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF
)

// Linux can_frame id flags and masks.
const (
	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canErrFlag = 0x20000000
	canEffMask = 0x1FFFFFFF
	canStdMask = 0x7FF
)

// FrameSize is the size of the Linux struct can_frame wire layout.
const FrameSize = 16

var (
	ErrInvalidID  = errors.New("armbus: invalid identifier")
	ErrInvalidLen = errors.New("armbus: invalid data length")
)

// Validate returns an error if the frame is not valid.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > maxExtID {
			return ErrInvalidID
		}
	} else if f.ID > maxStdID {
		return ErrInvalidID
	}
	return nil
}

// MustFrame constructs a Frame and panics if invalid. Convenience for examples
// and tests.
func MustFrame(id uint32, data []byte) Frame {
	var f Frame
	f.ID = id
	if id > maxStdID {
		f.Extended = true
	}
	if len(data) > 8 {
		panic(ErrInvalidLen)
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		panic(err)
	}
	return f
}

// Payload returns the valid data bytes of the frame. The returned slice
// aliases a copy of the frame, so it is safe to keep.
func (f Frame) Payload() []byte {
	n := f.Len
	if n > 8 {
		n = 8
	}
	return f.Data[:n]
}

// String renders the frame in a candump-like form: "123 [2] DE AD".
// Extended identifiers use 8 hex digits, RTR frames print "RTR" instead of data.
func (f Frame) String() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X", f.ID)
	}
	fmt.Fprintf(&b, " [%d]", f.Len)
	if f.RTR {
		b.WriteString(" RTR")
		return b.String()
	}
	for _, c := range f.Payload() {
		fmt.Fprintf(&b, " %02X", c)
	}
	return b.String()
}

// MarshalBinary encodes the frame to the Linux SocketCAN "struct can_frame"
// layout (16 bytes). The timestamp is not part of the layout.
//
// Layout (little-endian):
//
//	0..3  can_id (with flags: EFF/RTR/ERR)
//	4     can_dlc (data length code)
//	5..7  padding (set to zero)
//	8..15 data bytes
func (f Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FrameSize)
	if err := f.encodeTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// encodeTo writes the can_frame layout into buf, which must hold FrameSize bytes.
func (f Frame) encodeTo(buf []byte) error {
	if err := f.Validate(); err != nil {
		return err
	}
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	if f.RTR {
		id |= canRtrFlag
	}
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	buf[5], buf[6], buf[7] = 0, 0, 0
	copy(buf[8:16], f.Data[:])
	return nil
}

// UnmarshalBinary decodes a frame from the Linux SocketCAN can_frame layout.
// The timestamp field is left untouched.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameSize {
		return fmt.Errorf("armbus: need %d bytes, got %d", FrameSize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	f.Extended = id&canEffFlag != 0
	f.RTR = id&canRtrFlag != 0
	if f.Extended {
		f.ID = id & canEffMask
	} else {
		f.ID = id & canStdMask
	}
	f.Len = data[4]
	copy(f.Data[:], data[8:16])
	return f.Validate()
}
