package driver

import "github.com/notnil/armbus/protocol"

const groupSlots = int(protocol.GroupFirmware) + 1

// accumulator collects the frames of multi-frame groups until every field of
// a group has been seen. It is owned by the RX pipeline.
//
// A field received twice before its group completes keeps the newer value.
// A group's timestamp is the newest frame timestamp that contributed to it.
type accumulator struct {
	mask  [groupSlots]uint32
	stamp [groupSlots]uint64

	status  protocol.ArmStatus
	pose    [6]int32
	joints  [protocol.Joints]int32
	gripper protocol.GripperFeedback
	motors  [protocol.Joints]MotorState
}

// add stores one decoded telemetry message in the pending state of its
// group. It returns the group and whether the group is now complete; a
// message that is not grouped telemetry yields GroupNone.
func (a *accumulator) add(msg protocol.Message, ts uint64) (protocol.Group, bool) {
	var (
		g    protocol.Group
		slot int
	)
	switch m := msg.(type) {
	case protocol.ArmStatus:
		g = protocol.GroupStatus
		a.status = m
	case protocol.EndPoseFeedback:
		g, slot = protocol.GroupEndPose, int(m.Part)
		a.pose[2*slot], a.pose[2*slot+1] = m.A, m.B
	case protocol.JointFeedback:
		g, slot = protocol.GroupJoints, int(m.Pair)
		a.joints[2*slot], a.joints[2*slot+1] = m.A, m.B
	case protocol.GripperFeedback:
		g = protocol.GroupGripper
		a.gripper = m
	case protocol.MotorHighSpeed:
		g, slot = protocol.GroupMotorHighSpeed, int(m.Motor)-1
		a.motors[slot] = MotorState{Speed: m.Speed, Current: m.Current, Position: m.Position}
	default:
		return protocol.GroupNone, false
	}
	a.mask[g] |= 1 << slot
	if ts > a.stamp[g] {
		a.stamp[g] = ts
	}
	return g, a.mask[g] == g.Complete()
}

// reset clears the bookkeeping of g after its commit. Field values are kept;
// the next update overwrites all of them before it can complete.
func (a *accumulator) reset(g protocol.Group) {
	a.mask[g] = 0
	a.stamp[g] = 0
}
