package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/notnil/armbus"
)

// Control mode values for MotionCtrl2.CtrlMode.
const (
	CtrlModeStandby uint8 = 0x00
	CtrlModeCAN     uint8 = 0x01
	CtrlModeTeach   uint8 = 0x02
)

// Move mode values for MotionCtrl2.MoveMode.
const (
	MoveModePose   uint8 = 0x00 // MOVE P
	MoveModeJoint  uint8 = 0x01 // MOVE J
	MoveModeLinear uint8 = 0x02 // MOVE L
	MoveModeCircle uint8 = 0x03 // MOVE C
)

// AllMotors addresses every joint motor in MotorEnable.
const AllMotors uint8 = 0xFF

// MotionCtrl1 carries emergency stop, trajectory and teach control (0x150).
type MotionCtrl1 struct {
	EmergencyStop uint8 // 0x01 stop, 0x02 resume
	TrackCtrl     uint8
	TeachCtrl     uint8
}

func (MotionCtrl1) CANID() uint32 { return IDMotionCtrl1 }

func (m MotionCtrl1) MarshalCANFrame() (armbus.Frame, error) {
	f := newFrame(IDMotionCtrl1, 8)
	f.Data[0] = m.EmergencyStop
	f.Data[1] = m.TrackCtrl
	f.Data[2] = m.TeachCtrl
	return f, nil
}

func (m *MotionCtrl1) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expect(f, IDMotionCtrl1, 8); err != nil {
		return err
	}
	m.EmergencyStop = f.Data[0]
	m.TrackCtrl = f.Data[1]
	m.TeachCtrl = f.Data[2]
	return nil
}

// MotionCtrl2 selects the control and move mode that subsequent joint or
// pose targets are interpreted in (0x151).
type MotionCtrl2 struct {
	CtrlMode      uint8
	MoveMode      uint8
	SpeedRate     uint8 // 0..100 percent
	MITMode       uint8
	ResidenceTime uint8
	InstallPos    uint8
}

func (MotionCtrl2) CANID() uint32 { return IDMotionCtrl2 }

func (m MotionCtrl2) MarshalCANFrame() (armbus.Frame, error) {
	if m.SpeedRate > 100 {
		return armbus.Frame{}, fmt.Errorf("protocol: speed rate %d > 100", m.SpeedRate)
	}
	f := newFrame(IDMotionCtrl2, 8)
	f.Data[0] = m.CtrlMode
	f.Data[1] = m.MoveMode
	f.Data[2] = m.SpeedRate
	f.Data[3] = m.MITMode
	f.Data[4] = m.ResidenceTime
	f.Data[5] = m.InstallPos
	return f, nil
}

func (m *MotionCtrl2) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expect(f, IDMotionCtrl2, 8); err != nil {
		return err
	}
	m.CtrlMode = f.Data[0]
	m.MoveMode = f.Data[1]
	m.SpeedRate = f.Data[2]
	m.MITMode = f.Data[3]
	m.ResidenceTime = f.Data[4]
	m.InstallPos = f.Data[5]
	return nil
}

// EndPoseCtrl is one third of an end-effector target. Units match
// EndPoseFeedback.
type EndPoseCtrl struct {
	Part uint8
	A, B int32
}

func (p EndPoseCtrl) CANID() uint32 { return IDEndPoseCtrl1 + uint32(p.Part) }

func (p EndPoseCtrl) MarshalCANFrame() (armbus.Frame, error) {
	if p.Part > 2 {
		return armbus.Frame{}, fmt.Errorf("protocol: end pose part %d out of range", p.Part)
	}
	return pairFrame(p.CANID(), p.A, p.B), nil
}

func (p *EndPoseCtrl) UnmarshalCANFrame(f armbus.Frame) error {
	if f.ID < IDEndPoseCtrl1 || f.ID > IDEndPoseCtrl3 {
		return fmt.Errorf("protocol: not an end pose control frame (id=0x%X)", f.ID)
	}
	if err := expect(f, f.ID, 8); err != nil {
		return err
	}
	p.Part = uint8(f.ID - IDEndPoseCtrl1)
	p.A, p.B = parsePair(f)
	return nil
}

// JointCtrl is the target angle of two joints in 0.001 degree.
type JointCtrl struct {
	Pair uint8
	A, B int32
}

func (j JointCtrl) CANID() uint32 { return IDJointCtrl12 + uint32(j.Pair) }

func (j JointCtrl) MarshalCANFrame() (armbus.Frame, error) {
	if j.Pair > 2 {
		return armbus.Frame{}, fmt.Errorf("protocol: joint pair %d out of range", j.Pair)
	}
	return pairFrame(j.CANID(), j.A, j.B), nil
}

func (j *JointCtrl) UnmarshalCANFrame(f armbus.Frame) error {
	if f.ID < IDJointCtrl12 || f.ID > IDJointCtrl56 {
		return fmt.Errorf("protocol: not a joint control frame (id=0x%X)", f.ID)
	}
	if err := expect(f, f.ID, 8); err != nil {
		return err
	}
	j.Pair = uint8(f.ID - IDJointCtrl12)
	j.A, j.B = parsePair(f)
	return nil
}

// GripperCtrl commands gripper opening (0.001 mm) and effort (0.001 N·m).
type GripperCtrl struct {
	Angle   int32
	Effort  uint16
	Code    uint8 // 0x01 enable, 0x00 disable, 0x02 clear error
	SetZero uint8
}

func (GripperCtrl) CANID() uint32 { return IDGripperCtrl }

func (g GripperCtrl) MarshalCANFrame() (armbus.Frame, error) {
	f := newFrame(IDGripperCtrl, 8)
	binary.BigEndian.PutUint32(f.Data[0:4], uint32(g.Angle))
	binary.BigEndian.PutUint16(f.Data[4:6], g.Effort)
	f.Data[6] = g.Code
	f.Data[7] = g.SetZero
	return f, nil
}

func (g *GripperCtrl) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expect(f, IDGripperCtrl, 8); err != nil {
		return err
	}
	g.Angle = int32(binary.BigEndian.Uint32(f.Data[0:4]))
	g.Effort = binary.BigEndian.Uint16(f.Data[4:6])
	g.Code = f.Data[6]
	g.SetZero = f.Data[7]
	return nil
}

// MotorEnable enables or disables one motor, or all of them with AllMotors.
type MotorEnable struct {
	Motor  uint8
	Enable bool
}

func (MotorEnable) CANID() uint32 { return IDMotorEnable }

func (m MotorEnable) MarshalCANFrame() (armbus.Frame, error) {
	if m.Motor != AllMotors {
		if err := validMotor(m.Motor); err != nil {
			return armbus.Frame{}, err
		}
	}
	f := newFrame(IDMotorEnable, 2)
	f.Data[0] = m.Motor
	f.Data[1] = 0x01
	if m.Enable {
		f.Data[1] = 0x02
	}
	return f, nil
}

func (m *MotorEnable) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expect(f, IDMotorEnable, 2); err != nil {
		return err
	}
	switch f.Data[1] {
	case 0x01:
		m.Enable = false
	case 0x02:
		m.Enable = true
	default:
		return fmt.Errorf("protocol: motor enable flag 0x%02X invalid", f.Data[1])
	}
	m.Motor = f.Data[0]
	return nil
}

// ParamQuery asks the arm to report a parameter block; the answer arrives as
// feedback frames (for example FirmwareVersion).
type ParamQuery struct {
	Query uint8
}

// Query codes for ParamQuery.
const (
	QueryEndVelAcc   uint8 = 0x01
	QueryCollision   uint8 = 0x02
	QueryTrajectory  uint8 = 0x03
	QueryFirmwareVer uint8 = 0x04
)

func (ParamQuery) CANID() uint32 { return IDParamQuery }

func (q ParamQuery) MarshalCANFrame() (armbus.Frame, error) {
	f := newFrame(IDParamQuery, 1)
	f.Data[0] = q.Query
	return f, nil
}

func (q *ParamQuery) UnmarshalCANFrame(f armbus.Frame) error {
	if err := expect(f, IDParamQuery, 1); err != nil {
		return err
	}
	q.Query = f.Data[0]
	return nil
}
