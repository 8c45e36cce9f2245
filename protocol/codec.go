package protocol

import (
	"errors"
	"fmt"

	"github.com/notnil/armbus"
)

// ErrUnknownID is returned by Decode for identifiers outside the message table.
var ErrUnknownID = errors.New("protocol: unknown frame id")

// Decode converts a frame into its typed message. The concrete type is chosen
// by identifier and returned by value, so callers can type-switch on it:
//
//	switch m := msg.(type) {
//	case protocol.JointFeedback:
//	case protocol.ArmStatus:
//	}
func Decode(f armbus.Frame) (Message, error) {
	if f.Extended {
		return nil, fmt.Errorf("%w: extended 0x%X", ErrUnknownID, f.ID)
	}
	id := f.ID
	switch {
	case id == IDArmStatus:
		return decodeAs[ArmStatus](f)
	case id >= IDEndPose1 && id <= IDEndPose3:
		return decodeAs[EndPoseFeedback](f)
	case id >= IDJoint12 && id <= IDJoint56:
		return decodeAs[JointFeedback](f)
	case id == IDGripperFeedback:
		return decodeAs[GripperFeedback](f)
	case id >= IDMotorHighSpeed1 && id < IDMotorHighSpeed1+Joints:
		return decodeAs[MotorHighSpeed](f)
	case id >= IDMotorLowSpeed1 && id < IDMotorLowSpeed1+Joints:
		return decodeAs[MotorLowSpeed](f)
	case id == IDFirmwareVersion:
		return decodeAs[FirmwareVersion](f)
	case id == IDMotionCtrl1:
		return decodeAs[MotionCtrl1](f)
	case id == IDMotionCtrl2:
		return decodeAs[MotionCtrl2](f)
	case id >= IDEndPoseCtrl1 && id <= IDEndPoseCtrl3:
		return decodeAs[EndPoseCtrl](f)
	case id >= IDJointCtrl12 && id <= IDJointCtrl56:
		return decodeAs[JointCtrl](f)
	case id == IDGripperCtrl:
		return decodeAs[GripperCtrl](f)
	case id == IDMotorEnable:
		return decodeAs[MotorEnable](f)
	case id == IDParamQuery:
		return decodeAs[ParamQuery](f)
	}
	return nil, fmt.Errorf("%w: 0x%X", ErrUnknownID, id)
}

// decodeAs unmarshals f into a fresh T and returns it by value.
func decodeAs[T any, PT interface {
	*T
	Message
	FrameUnmarshaler
}](f armbus.Frame) (Message, error) {
	var v T
	if err := PT(&v).UnmarshalCANFrame(f); err != nil {
		return nil, err
	}
	return any(v).(Message), nil
}

// DecodeBytes decodes a message from the Linux can_frame byte layout.
func DecodeBytes(b []byte) (Message, error) {
	var f armbus.Frame
	if err := f.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return Decode(f)
}

// Encode converts a typed message into a frame.
func Encode(m Message) (armbus.Frame, error) {
	return m.MarshalCANFrame()
}

// EncodeAll encodes messages in order, stopping at the first failure.
func EncodeAll(msgs ...Message) ([]armbus.Frame, error) {
	out := make([]armbus.Frame, 0, len(msgs))
	for _, m := range msgs {
		f, err := m.MarshalCANFrame()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// JointCommand builds the four-frame package that moves the arm to joint
// targets (0.001 degree): a MOVE J mode frame followed by the three joint pairs.
func JointCommand(speedRate uint8, milliDeg [Joints]int32) ([]armbus.Frame, error) {
	return EncodeAll(
		MotionCtrl2{CtrlMode: CtrlModeCAN, MoveMode: MoveModeJoint, SpeedRate: speedRate},
		JointCtrl{Pair: 0, A: milliDeg[0], B: milliDeg[1]},
		JointCtrl{Pair: 1, A: milliDeg[2], B: milliDeg[3]},
		JointCtrl{Pair: 2, A: milliDeg[4], B: milliDeg[5]},
	)
}

// EndPoseCommand builds the four-frame package that moves the end effector to
// pose (X, Y, Z in 0.001 mm, RX, RY, RZ in 0.001 degree) with the given move mode.
func EndPoseCommand(moveMode, speedRate uint8, pose [6]int32) ([]armbus.Frame, error) {
	return EncodeAll(
		MotionCtrl2{CtrlMode: CtrlModeCAN, MoveMode: moveMode, SpeedRate: speedRate},
		EndPoseCtrl{Part: 0, A: pose[0], B: pose[1]},
		EndPoseCtrl{Part: 1, A: pose[2], B: pose[3]},
		EndPoseCtrl{Part: 2, A: pose[4], B: pose[5]},
	)
}
