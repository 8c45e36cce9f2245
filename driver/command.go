package driver

import (
	"fmt"

	"github.com/notnil/armbus"
)

// inlineFrames is how many frames a Command stores without a heap allocation.
const inlineFrames = 4

// Command is one frame or a short ordered frame sequence that the TX pipeline
// transmits back to back. Up to four frames live inline in the value, so
// building and mailing a typical joint or pose package does not allocate.
//
// The zero value is an empty command. Commands are values: a copy can be
// appended to without affecting the original or any other copy.
type Command struct {
	n      int
	inline [inlineFrames]armbus.Frame
	spill  []armbus.Frame
}

// NewCommand builds a command from frames in transmission order.
func NewCommand(frames ...armbus.Frame) Command {
	var c Command
	for _, f := range frames {
		c.Append(f)
	}
	return c
}

// Append adds f to the end of the command.
func (c *Command) Append(f armbus.Frame) {
	if c.n < inlineFrames {
		c.inline[c.n] = f
	} else {
		// Full slice expression: copies sharing spill never write into each
		// other's backing array.
		c.spill = append(c.spill[:len(c.spill):len(c.spill)], f)
	}
	c.n++
}

// Len returns the number of frames.
func (c Command) Len() int { return c.n }

// Empty reports whether the command has no frames.
func (c Command) Empty() bool { return c.n == 0 }

// Frame returns the i-th frame. It panics if i is out of range.
func (c Command) Frame(i int) armbus.Frame {
	if i < 0 || i >= c.n {
		panic(fmt.Sprintf("driver: command frame index %d out of range [0,%d)", i, c.n))
	}
	if i < inlineFrames {
		return c.inline[i]
	}
	return c.spill[i-inlineFrames]
}

// Frames returns a copy of the frames in order.
func (c Command) Frames() []armbus.Frame {
	out := make([]armbus.Frame, c.n)
	for i := range out {
		out[i] = c.Frame(i)
	}
	return out
}

// validate checks the command against the configured package size and the
// frame invariants.
func (c Command) validate(maxFrames int) error {
	if c.n == 0 {
		return fmt.Errorf("%w: empty command", ErrInvalidInput)
	}
	if c.n > maxFrames {
		return fmt.Errorf("%w: command has %d frames, limit %d", ErrInvalidInput, c.n, maxFrames)
	}
	for i := 0; i < c.n; i++ {
		if err := c.Frame(i).Validate(); err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrInvalidInput, i, err)
		}
	}
	return nil
}
