package driver

import (
	"sync"
	"sync/atomic"

	"github.com/notnil/armbus/protocol"
)

// JointState holds the six measured joint angles in 0.001 degree.
type JointState struct {
	Angles    [protocol.Joints]int32
	Timestamp uint64 // group timestamp, microseconds
}

// EndPose is the end-effector pose. Positions are in 0.001 mm, rotations in
// 0.001 degree.
type EndPose struct {
	X, Y, Z    int32
	RX, RY, RZ int32
	Timestamp  uint64
}

// StatusState is the latest arm status report.
type StatusState struct {
	protocol.ArmStatus
	Timestamp uint64
}

// GripperState is the latest gripper report.
type GripperState struct {
	protocol.GripperFeedback
	Timestamp uint64
}

// MotorState is the fast-rate feedback of one joint motor.
type MotorState struct {
	Speed    int16
	Current  uint16
	Position int32
}

// MotorsState holds the fast-rate feedback of all six motors, published
// together.
type MotorsState struct {
	Motors    [protocol.Joints]MotorState
	Timestamp uint64
}

// Snapshot is a consistent view of the robot state. Every multi-frame group
// in it was published whole: a reader never sees joint 1 from one update and
// joint 6 from another.
//
// Timestamps are microseconds on the transport clock. Snapshot.Timestamp is
// the group timestamp of the latest commit and never decreases.
type Snapshot struct {
	Generation uint64 // number of commits since start
	Timestamp  uint64

	Status  StatusState
	EndPose EndPose
	Joints  JointState
	Gripper GripperState
	Motors  MotorsState
}

// MotorDiagnostics is the slow-rate driver report of one motor.
type MotorDiagnostics struct {
	protocol.MotorLowSpeed
	Timestamp uint64
}

// Diagnostics aggregates low-rate data that does not need cross-field
// atomicity. Each motor entry is updated on its own.
type Diagnostics struct {
	Motors   [protocol.Joints]MotorDiagnostics
	Firmware string // firmware version as reassembled from 0x4AF fragments
	Updated  uint64 // timestamp of the latest update
}

// maxFirmwareLen bounds the reassembled firmware string.
const maxFirmwareLen = 64

// telemetry publishes snapshots and keeps the diagnostics aggregate. Commit
// and the diagnostics writers are only called from the RX pipeline.
type telemetry struct {
	current atomic.Pointer[Snapshot]

	diagMu   sync.RWMutex
	diag     Diagnostics
	firmware []byte
}

func newTelemetry() *telemetry {
	t := &telemetry{}
	t.current.Store(&Snapshot{})
	return t
}

// snapshot returns a copy of the latest published state.
func (t *telemetry) snapshot() Snapshot {
	return *t.current.Load()
}

// commit copies the current snapshot, overlays the completed group from acc
// and publishes the copy with a single pointer store.
func (t *telemetry) commit(g protocol.Group, acc *accumulator) {
	prev := t.current.Load()
	next := *prev

	ts := acc.stamp[g]
	if ts < prev.Timestamp {
		ts = prev.Timestamp
	}
	switch g {
	case protocol.GroupStatus:
		next.Status = StatusState{ArmStatus: acc.status, Timestamp: ts}
	case protocol.GroupEndPose:
		p := acc.pose
		next.EndPose = EndPose{X: p[0], Y: p[1], Z: p[2], RX: p[3], RY: p[4], RZ: p[5], Timestamp: ts}
	case protocol.GroupJoints:
		next.Joints = JointState{Angles: acc.joints, Timestamp: ts}
	case protocol.GroupGripper:
		next.Gripper = GripperState{GripperFeedback: acc.gripper, Timestamp: ts}
	case protocol.GroupMotorHighSpeed:
		next.Motors = MotorsState{Motors: acc.motors, Timestamp: ts}
	default:
		return
	}
	next.Generation = prev.Generation + 1
	next.Timestamp = ts
	t.current.Store(&next)
	acc.reset(g)
}

// diagnostics returns a copy of the aggregate.
func (t *telemetry) diagnostics() Diagnostics {
	t.diagMu.RLock()
	defer t.diagMu.RUnlock()
	return t.diag
}

func (t *telemetry) updateMotor(m protocol.MotorLowSpeed, ts uint64) {
	t.diagMu.Lock()
	t.diag.Motors[m.Motor-1] = MotorDiagnostics{MotorLowSpeed: m, Timestamp: ts}
	t.diag.Updated = ts
	t.diagMu.Unlock()
}

// appendFirmware adds one version fragment. The version string starts with
// "S-V"; a fragment carrying that prefix restarts reassembly.
func (t *telemetry) appendFirmware(v protocol.FirmwareVersion, ts uint64) {
	frag := v.Bytes()
	t.diagMu.Lock()
	defer t.diagMu.Unlock()
	if len(frag) >= 3 && string(frag[:3]) == "S-V" {
		t.firmware = t.firmware[:0]
	}
	if len(t.firmware)+len(frag) > maxFirmwareLen {
		t.firmware = t.firmware[:0]
	}
	t.firmware = append(t.firmware, frag...)
	t.diag.Firmware = string(t.firmware)
	t.diag.Updated = ts
}
