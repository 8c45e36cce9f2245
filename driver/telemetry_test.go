package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notnil/armbus/protocol"
)

func addFrame(t *testing.T, acc *accumulator, m protocol.Message, ts uint64) bool {
	t.Helper()
	f, err := protocol.Encode(m)
	require.NoError(t, err)
	msg, err := protocol.Decode(f)
	require.NoError(t, err)
	g, complete := acc.add(msg, ts)
	require.NotEqual(t, protocol.GroupNone, g)
	return complete
}

func TestAccumulator_EndPose(t *testing.T) {
	var acc accumulator
	assert.False(t, addFrame(t, &acc, protocol.EndPoseFeedback{Part: 2, A: 5, B: 6}, 30))
	assert.False(t, addFrame(t, &acc, protocol.EndPoseFeedback{Part: 0, A: 1, B: 2}, 10))
	assert.False(t, addFrame(t, &acc, protocol.EndPoseFeedback{Part: 0, A: 10, B: 20}, 20))
	assert.True(t, addFrame(t, &acc, protocol.EndPoseFeedback{Part: 1, A: 3, B: 4}, 15))

	tel := newTelemetry()
	tel.commit(protocol.GroupEndPose, &acc)
	s := tel.snapshot()
	assert.Equal(t, EndPose{X: 10, Y: 20, Z: 3, RX: 4, RY: 5, RZ: 6, Timestamp: 30}, s.EndPose)
	assert.Equal(t, uint64(1), s.Generation)
	assert.Zero(t, acc.mask[protocol.GroupEndPose], "commit resets the bitmask")

	assert.False(t, addFrame(t, &acc, protocol.EndPoseFeedback{Part: 0, A: 1, B: 2}, 40))
}

func TestAccumulator_MotorsNeedAllSix(t *testing.T) {
	var acc accumulator
	for motor := uint8(1); motor <= protocol.Joints; motor++ {
		complete := addFrame(t, &acc, protocol.MotorHighSpeed{Motor: motor, Speed: int16(motor), Current: 100, Position: int32(motor) * 1000}, 1)
		assert.Equal(t, motor == protocol.Joints, complete, "motor %d", motor)
	}
	tel := newTelemetry()
	tel.commit(protocol.GroupMotorHighSpeed, &acc)
	assert.Equal(t, MotorState{Speed: 4, Current: 100, Position: 4000}, tel.snapshot().Motors.Motors[3])
}

func TestAccumulator_IgnoresControlMessages(t *testing.T) {
	var acc accumulator
	for _, m := range []protocol.Message{
		protocol.JointCtrl{Pair: 1, A: 1, B: 2},
		protocol.MotionCtrl1{},
		protocol.MotorLowSpeed{Motor: 1},
	} {
		g, complete := acc.add(m, 1)
		assert.Equal(t, protocol.GroupNone, g, "%T", m)
		assert.False(t, complete)
	}
	assert.Equal(t, [groupSlots]uint32{}, acc.mask)
}

func TestTelemetry_TimestampNeverDecreases(t *testing.T) {
	tel := newTelemetry()
	var acc accumulator

	require.True(t, addFrame(t, &acc, protocol.ArmStatus{ArmState: 1}, 500))
	tel.commit(protocol.GroupStatus, &acc)
	require.True(t, addFrame(t, &acc, protocol.ArmStatus{ArmState: 2}, 400))
	tel.commit(protocol.GroupStatus, &acc)

	s := tel.snapshot()
	assert.Equal(t, uint8(2), s.Status.ArmState)
	assert.Equal(t, uint64(500), s.Status.Timestamp)
	assert.Equal(t, uint64(500), s.Timestamp)
	assert.Equal(t, uint64(2), s.Generation)
}

func TestTelemetry_SnapshotIsACopy(t *testing.T) {
	tel := newTelemetry()
	var acc accumulator
	require.True(t, addFrame(t, &acc, protocol.GripperFeedback{Angle: 1}, 1))
	tel.commit(protocol.GroupGripper, &acc)

	s := tel.snapshot()
	s.Gripper.Angle = 99
	assert.Equal(t, int32(1), tel.snapshot().Gripper.Angle)
}

func TestTelemetry_FirmwareReassembly(t *testing.T) {
	tel := newTelemetry()
	frag := func(s string) protocol.FirmwareVersion {
		v := protocol.FirmwareVersion{Len: uint8(len(s))}
		copy(v.Data[:], s)
		return v
	}
	tel.appendFirmware(frag("S-V1.6-"), 1)
	tel.appendFirmware(frag("3"), 2)
	assert.Equal(t, "S-V1.6-3", tel.diagnostics().Firmware)

	tel.appendFirmware(frag("S-V1.7-"), 3)
	assert.Equal(t, "S-V1.7-", tel.diagnostics().Firmware, "prefix restarts reassembly")

	for i := 0; i < 20; i++ {
		tel.appendFirmware(frag("garbage"), 4)
	}
	assert.LessOrEqual(t, len(tel.diagnostics().Firmware), maxFirmwareLen)
	assert.Equal(t, uint64(4), tel.diagnostics().Updated)
}
