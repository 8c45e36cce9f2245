package slcan

import (
	"errors"
	"fmt"

	"github.com/notnil/armbus"
)

const hexDigits = "0123456789ABCDEF"

// maxLine is the longest frame line: 'T' + 8 id + 1 dlc + 16 data + 4 timestamp.
const maxLine = 1 + 8 + 1 + 16 + 4

var errMalformed = errors.New("slcan: malformed frame line")

// appendFrame appends the SLCAN line for f, including the trailing '\r'.
func appendFrame(dst []byte, f armbus.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return dst, err
	}
	var tag byte
	var idDigits int
	switch {
	case f.Extended && f.RTR:
		tag, idDigits = 'R', 8
	case f.Extended:
		tag, idDigits = 'T', 8
	case f.RTR:
		tag, idDigits = 'r', 3
	default:
		tag, idDigits = 't', 3
	}
	dst = append(dst, tag)
	for i := idDigits - 1; i >= 0; i-- {
		dst = append(dst, hexDigits[(f.ID>>(4*uint(i)))&0xF])
	}
	dst = append(dst, hexDigits[f.Len])
	if !f.RTR {
		for _, b := range f.Payload() {
			dst = append(dst, hexDigits[b>>4], hexDigits[b&0xF])
		}
	}
	return append(dst, '\r'), nil
}

// parseFrame decodes one SLCAN frame line without its terminator. A trailing
// 4-digit adapter timestamp is accepted and ignored.
func parseFrame(line []byte) (armbus.Frame, error) {
	var f armbus.Frame
	if len(line) == 0 {
		return f, errMalformed
	}
	idDigits := 3
	switch line[0] {
	case 't':
	case 'r':
		f.RTR = true
	case 'T':
		f.Extended = true
		idDigits = 8
	case 'R':
		f.Extended, f.RTR = true, true
		idDigits = 8
	default:
		return f, fmt.Errorf("%w: tag %q", errMalformed, line[0])
	}
	if len(line) < 1+idDigits+1 {
		return f, errMalformed
	}
	id, ok := parseHex(line[1 : 1+idDigits])
	if !ok {
		return f, errMalformed
	}
	f.ID = id
	dlc, ok := parseHex(line[1+idDigits : 2+idDigits])
	if !ok || dlc > 8 {
		return f, errMalformed
	}
	f.Len = uint8(dlc)
	rest := line[2+idDigits:]
	if !f.RTR {
		if len(rest) < 2*int(dlc) {
			return f, errMalformed
		}
		for i := 0; i < int(dlc); i++ {
			b, ok := parseHex(rest[2*i : 2*i+2])
			if !ok {
				return f, errMalformed
			}
			f.Data[i] = byte(b)
		}
		rest = rest[2*dlc:]
	}
	if len(rest) != 0 && len(rest) != 4 {
		return f, errMalformed
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func parseHex(s []byte) (uint32, bool) {
	var v uint32
	for _, c := range s {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		default:
			return 0, false
		}
		v = v<<4 | uint32(d)
	}
	return v, true
}

// bitrateCommand returns the Sn setup command for a CAN bitrate.
func bitrateCommand(bitrate uint32) (string, error) {
	codes := map[uint32]byte{
		10_000: '0', 20_000: '1', 50_000: '2', 100_000: '3', 125_000: '4',
		250_000: '5', 500_000: '6', 800_000: '7', 1_000_000: '8',
	}
	c, ok := codes[bitrate]
	if !ok {
		return "", fmt.Errorf("slcan: unsupported bitrate %d", bitrate)
	}
	return "S" + string(c) + "\r", nil
}
