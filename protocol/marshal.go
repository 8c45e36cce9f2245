package protocol

import (
	"github.com/notnil/armbus"
)

// FrameMarshaler encodes a typed message into a CAN frame.
type FrameMarshaler interface {
	MarshalCANFrame() (armbus.Frame, error)
}

// FrameUnmarshaler decodes a typed message from a CAN frame.
type FrameUnmarshaler interface {
	UnmarshalCANFrame(armbus.Frame) error
}

// FrameCodec combines marshaling and unmarshaling of CAN frames.
type FrameCodec interface {
	FrameMarshaler
	FrameUnmarshaler
}

// Message is any typed frame known to the codec. CANID reports the identifier
// the message encodes to.
type Message interface {
	FrameMarshaler
	CANID() uint32
}

// Compile-time checks that every message type round-trips.
var (
	_ FrameCodec = (*ArmStatus)(nil)
	_ FrameCodec = (*EndPoseFeedback)(nil)
	_ FrameCodec = (*JointFeedback)(nil)
	_ FrameCodec = (*GripperFeedback)(nil)
	_ FrameCodec = (*MotorHighSpeed)(nil)
	_ FrameCodec = (*MotorLowSpeed)(nil)
	_ FrameCodec = (*FirmwareVersion)(nil)
	_ FrameCodec = (*MotionCtrl1)(nil)
	_ FrameCodec = (*MotionCtrl2)(nil)
	_ FrameCodec = (*EndPoseCtrl)(nil)
	_ FrameCodec = (*JointCtrl)(nil)
	_ FrameCodec = (*GripperCtrl)(nil)
	_ FrameCodec = (*MotorEnable)(nil)
	_ FrameCodec = (*ParamQuery)(nil)
)
