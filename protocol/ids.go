package protocol

import "fmt"

// Feedback identifiers (arm -> host).
const (
	IDArmStatus       uint32 = 0x2A1
	IDEndPose1        uint32 = 0x2A2 // X, Y
	IDEndPose2        uint32 = 0x2A3 // Z, RX
	IDEndPose3        uint32 = 0x2A4 // RY, RZ
	IDJoint12         uint32 = 0x2A5
	IDJoint34         uint32 = 0x2A6
	IDJoint56         uint32 = 0x2A7
	IDGripperFeedback uint32 = 0x2A8
	IDMotorHighSpeed1 uint32 = 0x251 // ..0x256, one per motor
	IDMotorLowSpeed1  uint32 = 0x261 // ..0x266, one per motor
	IDFirmwareVersion uint32 = 0x4AF
)

// Control identifiers (host -> arm).
const (
	IDMotionCtrl1  uint32 = 0x150
	IDMotionCtrl2  uint32 = 0x151
	IDEndPoseCtrl1 uint32 = 0x152
	IDEndPoseCtrl2 uint32 = 0x153
	IDEndPoseCtrl3 uint32 = 0x154
	IDJointCtrl12  uint32 = 0x155
	IDJointCtrl34  uint32 = 0x156
	IDJointCtrl56  uint32 = 0x157
	IDGripperCtrl  uint32 = 0x159
	IDMotorEnable  uint32 = 0x471
	IDParamQuery   uint32 = 0x472
)

// Joints is the number of joints (and joint motors) on the arm.
const Joints = 6

// Group identifies the logical telemetry update a feedback frame belongs to.
// Frames of a multi-frame group must be observed together or not at all.
type Group uint8

const (
	GroupNone           Group = iota // control frames and unknown ids
	GroupStatus                      // 0x2A1
	GroupEndPose                     // 0x2A2..0x2A4
	GroupJoints                      // 0x2A5..0x2A7
	GroupGripper                     // 0x2A8
	GroupMotorHighSpeed              // 0x251..0x256
	GroupMotorLowSpeed               // 0x261..0x266, diagnostic
	GroupFirmware                    // 0x4AF, diagnostic
)

var groupNames = [...]string{
	GroupNone:           "none",
	GroupStatus:         "status",
	GroupEndPose:        "end_pose",
	GroupJoints:         "joints",
	GroupGripper:        "gripper",
	GroupMotorHighSpeed: "motor_high_speed",
	GroupMotorLowSpeed:  "motor_low_speed",
	GroupFirmware:       "firmware",
}

func (g Group) String() string {
	if int(g) < len(groupNames) {
		return groupNames[g]
	}
	return fmt.Sprintf("group(%d)", uint8(g))
}

// Frames returns how many physical frames complete one update of g.
func (g Group) Frames() int {
	switch g {
	case GroupEndPose, GroupJoints:
		return 3
	case GroupMotorHighSpeed, GroupMotorLowSpeed:
		return Joints
	case GroupNone:
		return 0
	default:
		return 1
	}
}

// Complete returns the received-fields bitmask of a finished update of g.
func (g Group) Complete() uint32 {
	return uint32(1)<<g.Frames() - 1
}

// Atomic reports whether g is published through the atomic telemetry
// snapshot. Diagnostic groups are published without cross-field atomicity.
func (g Group) Atomic() bool {
	switch g {
	case GroupStatus, GroupEndPose, GroupJoints, GroupGripper, GroupMotorHighSpeed:
		return true
	}
	return false
}

// GroupOf resolves the group of a frame identifier and the frame's slot
// within that group.
func GroupOf(id uint32) (Group, int) {
	switch {
	case id == IDArmStatus:
		return GroupStatus, 0
	case id >= IDEndPose1 && id <= IDEndPose3:
		return GroupEndPose, int(id - IDEndPose1)
	case id >= IDJoint12 && id <= IDJoint56:
		return GroupJoints, int(id - IDJoint12)
	case id == IDGripperFeedback:
		return GroupGripper, 0
	case id >= IDMotorHighSpeed1 && id < IDMotorHighSpeed1+Joints:
		return GroupMotorHighSpeed, int(id - IDMotorHighSpeed1)
	case id >= IDMotorLowSpeed1 && id < IDMotorLowSpeed1+Joints:
		return GroupMotorLowSpeed, int(id - IDMotorLowSpeed1)
	case id == IDFirmwareVersion:
		return GroupFirmware, 0
	}
	return GroupNone, 0
}
