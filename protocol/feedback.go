package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/notnil/armbus"
)

// ArmStatus is the arm's top-level state report (0x2A1).
//
// Layout:
//
//	0: control mode   1: arm state     2: mode feedback
//	3: teach state    4: motion state  5: trajectory point index
//	6..7: error bitfield (big-endian)
type ArmStatus struct {
	CtrlMode        uint8
	ArmState        uint8
	ModeFeedback    uint8
	TeachState      uint8
	MotionState     uint8
	TrajectoryPoint uint8
	ErrorCode       uint16
}

func (ArmStatus) CANID() uint32 { return IDArmStatus }

func (s ArmStatus) MarshalCANFrame() (armbus.Frame, error) {
	f := newFrame(IDArmStatus, 8)
	f.Data[0] = s.CtrlMode
	f.Data[1] = s.ArmState
	f.Data[2] = s.ModeFeedback
	f.Data[3] = s.TeachState
	f.Data[4] = s.MotionState
	f.Data[5] = s.TrajectoryPoint
	binary.BigEndian.PutUint16(f.Data[6:8], s.ErrorCode)
	return f, nil
}

func (s *ArmStatus) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expect(f, IDArmStatus, 8); err != nil {
		return err
	}
	s.CtrlMode = f.Data[0]
	s.ArmState = f.Data[1]
	s.ModeFeedback = f.Data[2]
	s.TeachState = f.Data[3]
	s.MotionState = f.Data[4]
	s.TrajectoryPoint = f.Data[5]
	s.ErrorCode = binary.BigEndian.Uint16(f.Data[6:8])
	return nil
}

// EndPoseFeedback carries two of the six end-effector pose values.
// Part 0 holds X/Y, part 1 Z/RX, part 2 RY/RZ. Positions are in 0.001 mm,
// rotations in 0.001 degree.
type EndPoseFeedback struct {
	Part uint8
	A, B int32
}

func (p EndPoseFeedback) CANID() uint32 { return IDEndPose1 + uint32(p.Part) }

func (p EndPoseFeedback) MarshalCANFrame() (armbus.Frame, error) {
	if p.Part > 2 {
		return armbus.Frame{}, fmt.Errorf("protocol: end pose part %d out of range", p.Part)
	}
	return pairFrame(p.CANID(), p.A, p.B), nil
}

func (p *EndPoseFeedback) UnmarshalCANFrame(f armbus.Frame) error {
	if f.ID < IDEndPose1 || f.ID > IDEndPose3 {
		return fmt.Errorf("protocol: not an end pose frame (id=0x%X)", f.ID)
	}
	if err := expect(f, f.ID, 8); err != nil {
		return err
	}
	p.Part = uint8(f.ID - IDEndPose1)
	p.A, p.B = parsePair(f)
	return nil
}

// JointFeedback carries the measured angles of two joints in 0.001 degree.
// Pair 0 holds joints 1-2, pair 1 joints 3-4, pair 2 joints 5-6.
type JointFeedback struct {
	Pair uint8
	A, B int32
}

func (j JointFeedback) CANID() uint32 { return IDJoint12 + uint32(j.Pair) }

func (j JointFeedback) MarshalCANFrame() (armbus.Frame, error) {
	if j.Pair > 2 {
		return armbus.Frame{}, fmt.Errorf("protocol: joint pair %d out of range", j.Pair)
	}
	return pairFrame(j.CANID(), j.A, j.B), nil
}

func (j *JointFeedback) UnmarshalCANFrame(f armbus.Frame) error {
	if f.ID < IDJoint12 || f.ID > IDJoint56 {
		return fmt.Errorf("protocol: not a joint feedback frame (id=0x%X)", f.ID)
	}
	if err := expect(f, f.ID, 8); err != nil {
		return err
	}
	j.Pair = uint8(f.ID - IDJoint12)
	j.A, j.B = parsePair(f)
	return nil
}

// GripperFeedback reports gripper opening (0.001 mm), effort (0.001 N·m) and
// a status bitfield. Byte 7 is reserved and encoded as zero.
type GripperFeedback struct {
	Angle  int32
	Effort int16
	Status uint8
}

func (GripperFeedback) CANID() uint32 { return IDGripperFeedback }

func (g GripperFeedback) MarshalCANFrame() (armbus.Frame, error) {
	f := newFrame(IDGripperFeedback, 8)
	binary.BigEndian.PutUint32(f.Data[0:4], uint32(g.Angle))
	binary.BigEndian.PutUint16(f.Data[4:6], uint16(g.Effort))
	f.Data[6] = g.Status
	return f, nil
}

func (g *GripperFeedback) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expect(f, IDGripperFeedback, 8); err != nil {
		return err
	}
	g.Angle = int32(binary.BigEndian.Uint32(f.Data[0:4]))
	g.Effort = int16(binary.BigEndian.Uint16(f.Data[4:6]))
	g.Status = f.Data[6]
	return nil
}

// MotorHighSpeed is the fast-rate feedback of one joint motor (Motor 1..6).
// Speed is in 0.001 rad/s, current in 0.001 A, position in encoder counts.
type MotorHighSpeed struct {
	Motor    uint8
	Speed    int16
	Current  uint16
	Position int32
}

func (m MotorHighSpeed) CANID() uint32 { return IDMotorHighSpeed1 + uint32(m.Motor) - 1 }

func (m MotorHighSpeed) MarshalCANFrame() (armbus.Frame, error) {
	if err := validMotor(m.Motor); err != nil {
		return armbus.Frame{}, err
	}
	f := newFrame(m.CANID(), 8)
	binary.BigEndian.PutUint16(f.Data[0:2], uint16(m.Speed))
	binary.BigEndian.PutUint16(f.Data[2:4], m.Current)
	binary.BigEndian.PutUint32(f.Data[4:8], uint32(m.Position))
	return f, nil
}

func (m *MotorHighSpeed) UnmarshalCANFrame(f armbus.Frame) error {
	if f.ID < IDMotorHighSpeed1 || f.ID >= IDMotorHighSpeed1+Joints {
		return fmt.Errorf("protocol: not a high speed motor frame (id=0x%X)", f.ID)
	}
	if err := expect(f, f.ID, 8); err != nil {
		return err
	}
	m.Motor = uint8(f.ID-IDMotorHighSpeed1) + 1
	m.Speed = int16(binary.BigEndian.Uint16(f.Data[0:2]))
	m.Current = binary.BigEndian.Uint16(f.Data[2:4])
	m.Position = int32(binary.BigEndian.Uint32(f.Data[4:8]))
	return nil
}

// MotorLowSpeed is the slow-rate driver diagnostic of one joint motor.
// Voltage is in 0.1 V, temperatures in °C, bus current in 0.001 A.
type MotorLowSpeed struct {
	Motor      uint8
	Voltage    uint16
	DriverTemp int16
	MotorTemp  int8
	Status     uint8
	BusCurrent uint16
}

func (m MotorLowSpeed) CANID() uint32 { return IDMotorLowSpeed1 + uint32(m.Motor) - 1 }

func (m MotorLowSpeed) MarshalCANFrame() (armbus.Frame, error) {
	if err := validMotor(m.Motor); err != nil {
		return armbus.Frame{}, err
	}
	f := newFrame(m.CANID(), 8)
	binary.BigEndian.PutUint16(f.Data[0:2], m.Voltage)
	binary.BigEndian.PutUint16(f.Data[2:4], uint16(m.DriverTemp))
	f.Data[4] = uint8(m.MotorTemp)
	f.Data[5] = m.Status
	binary.BigEndian.PutUint16(f.Data[6:8], m.BusCurrent)
	return f, nil
}

func (m *MotorLowSpeed) UnmarshalCANFrame(f armbus.Frame) error {
	if f.ID < IDMotorLowSpeed1 || f.ID >= IDMotorLowSpeed1+Joints {
		return fmt.Errorf("protocol: not a low speed motor frame (id=0x%X)", f.ID)
	}
	if err := expect(f, f.ID, 8); err != nil {
		return err
	}
	m.Motor = uint8(f.ID-IDMotorLowSpeed1) + 1
	m.Voltage = binary.BigEndian.Uint16(f.Data[0:2])
	m.DriverTemp = int16(binary.BigEndian.Uint16(f.Data[2:4]))
	m.MotorTemp = int8(f.Data[4])
	m.Status = f.Data[5]
	m.BusCurrent = binary.BigEndian.Uint16(f.Data[6:8])
	return nil
}

// FirmwareVersion is one fragment of the firmware version string, which the
// arm streams as consecutive 0x4AF frames.
type FirmwareVersion struct {
	Len  uint8
	Data [8]byte
}

func (FirmwareVersion) CANID() uint32 { return IDFirmwareVersion }

// Bytes returns the fragment payload.
func (v FirmwareVersion) Bytes() []byte { return v.Data[:min(v.Len, 8)] }

func (v FirmwareVersion) MarshalCANFrame() (armbus.Frame, error) {
	if v.Len > 8 {
		return armbus.Frame{}, armbus.ErrInvalidLen
	}
	f := newFrame(IDFirmwareVersion, v.Len)
	f.Data = v.Data
	return f, nil
}

func (v *FirmwareVersion) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expectID(f, IDFirmwareVersion); err != nil {
		return err
	}
	v.Len = f.Len
	v.Data = f.Data
	return nil
}

func validMotor(n uint8) error {
	if n < 1 || n > Joints {
		return fmt.Errorf("protocol: invalid motor %d (valid 1..%d)", n, Joints)
	}
	return nil
}

func newFrame(id uint32, n uint8) armbus.Frame {
	return armbus.Frame{ID: id, Len: n}
}

func pairFrame(id uint32, a, b int32) armbus.Frame {
	f := newFrame(id, 8)
	binary.BigEndian.PutUint32(f.Data[0:4], uint32(a))
	binary.BigEndian.PutUint32(f.Data[4:8], uint32(b))
	return f
}

func parsePair(f armbus.Frame) (int32, int32) {
	return int32(binary.BigEndian.Uint32(f.Data[0:4])), int32(binary.BigEndian.Uint32(f.Data[4:8]))
}

func expectID(f armbus.Frame, id uint32) error {
	if f.ID != id || f.Extended {
		return fmt.Errorf("protocol: unexpected frame id 0x%X, want 0x%X", f.ID, id)
	}
	if f.RTR {
		return fmt.Errorf("protocol: unexpected RTR frame 0x%X", f.ID)
	}
	return nil
}

func expect(f armbus.Frame, id uint32, n uint8) error {
	if err := expectID(f, id); err != nil {
		return err
	}
	if f.Len != n {
		return fmt.Errorf("protocol: frame 0x%X length %d, want %d", f.ID, f.Len, n)
	}
	return nil
}
