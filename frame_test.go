package armbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Validate_Marshal_Unmarshal_String(t *testing.T) {
	cases := []struct {
		name    string
		frame   Frame
		wantStr string
	}{
		{
			name:    "standard frame with data",
			frame:   MustFrame(0x123, []byte{0xDE, 0xAD}),
			wantStr: "123 [2] DE AD",
		},
		{
			name:    "extended RTR, zero length",
			frame:   Frame{ID: 0x1ABCDEFF, Extended: true, RTR: true, Len: 0},
			wantStr: "1ABCDEFF [0] RTR",
		},
		{
			name:    "full payload",
			frame:   MustFrame(0x2A5, []byte{0, 0, 0x03, 0xE8, 0xFF, 0xFF, 0xFC, 0x18}),
			wantStr: "2A5 [8] 00 00 03 E8 FF FF FC 18",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.frame.Validate())
			b, err := tc.frame.MarshalBinary()
			require.NoError(t, err)
			require.Len(t, b, FrameSize)

			var g Frame
			require.NoError(t, g.UnmarshalBinary(b))
			assert.Equal(t, tc.frame, g)
			assert.Equal(t, tc.wantStr, g.String())
		})
	}
}

func TestFrame_TimestampNotSerialized(t *testing.T) {
	f := MustFrame(0x2A1, []byte{1, 2, 3})
	f.Timestamp = 1_700_000_000_000_000
	b, err := f.MarshalBinary()
	require.NoError(t, err)

	var g Frame
	require.NoError(t, g.UnmarshalBinary(b))
	assert.Zero(t, g.Timestamp)
	g.Timestamp = f.Timestamp
	assert.Equal(t, f, g)
}

func TestFrame_Invalid(t *testing.T) {
	assert.ErrorIs(t, Frame{ID: 0x800}.Validate(), ErrInvalidID)
	assert.ErrorIs(t, Frame{ID: 0x20000000, Extended: true}.Validate(), ErrInvalidID)
	assert.ErrorIs(t, Frame{ID: 0x1, Len: 9}.Validate(), ErrInvalidLen)

	_, err := Frame{ID: 0x1, Len: 9}.MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidLen)

	var g Frame
	assert.Error(t, g.UnmarshalBinary(make([]byte, 15)))

	assert.Panics(t, func() { _ = MustFrame(0x123, make([]byte, 9)) })
	assert.True(t, MustFrame(0x800, nil).Extended)
}

func TestFrame_Payload(t *testing.T) {
	f := MustFrame(0x10, []byte{9, 8, 7})
	p := f.Payload()
	assert.Equal(t, []byte{9, 8, 7}, p)
	p[0] = 0
	assert.Equal(t, byte(9), f.Data[0], "payload must not alias the caller's frame")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindTimeout, Classify(Timeout("receive", nil)))
	assert.Equal(t, KindFatal, Classify(Fatal("send", ErrClosed)))
	assert.Equal(t, KindTransient, Classify(Transient("send", ErrInvalidLen)))
	assert.Equal(t, KindFatal, Classify(ErrClosed))
	assert.Equal(t, KindTimeout, Classify(ErrTimeout))
	assert.Equal(t, KindTransient, Classify(assert.AnError))

	assert.True(t, IsFatal(Fatal("receive", ErrBusOff)))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsTimeout(nil))
	assert.ErrorIs(t, Fatal("receive", ErrBusOff), ErrBusOff)
	assert.Contains(t, Fatal("receive", ErrBusOff).Error(), "fatal")
}
