package mavlink

import (
	"encoding/binary"
	"math"
)

// Message IDs of the mount control dialect subset.
const (
	MsgIDHeartbeat        = 0
	MsgIDSysStatus        = 1
	MsgIDSystemTime       = 2
	MsgIDRawIMU           = 27
	MsgIDAttitude         = 30
	MsgIDCommandLong      = 76
	MsgIDCommandAck       = 77
	MsgIDMountStatus      = 158
	MsgIDMountOrientation = 265
)

// MAV_CMD values carried in COMMAND_LONG.
const (
	CmdDoMountConfigure = 204   // axis input modes and stabilization
	CmdDoMountControl   = 205   // pitch/roll/yaw setpoint
	CmdUser1            = 31010 // vendor: gimbal motor on/off
	CmdUser2            = 31011 // vendor: gimbal operating mode
)

// COMMAND_ACK results.
const (
	ResultAccepted            = 0
	ResultTemporarilyRejected = 1
	ResultUnsupported         = 3
	ResultFailed              = 4
)

// MountModeMavlinkTargeting is the MAV_MOUNT_MODE used for direct angle
// control.
const MountModeMavlinkTargeting = 2

// Message is a typed payload that knows its wire representation.
type Message interface {
	MsgID() uint32
	Pack() []byte
}

var le = binary.LittleEndian

// padded zero-extends a truncated MAVLink 2 payload to the full message
// length so fixed offsets can be read unconditionally.
func padded(p []byte, n int) []byte {
	if len(p) >= n {
		return p
	}
	out := make([]byte, n)
	copy(out, p)
	return out
}

func putF32(p []byte, v float32) { le.PutUint32(p, math.Float32bits(v)) }
func f32(p []byte) float32       { return math.Float32frombits(le.Uint32(p)) }

// Heartbeat announces component presence at 1Hz in both directions.
type Heartbeat struct {
	CustomMode     uint32
	Type           uint8
	Autopilot      uint8
	BaseMode       uint8
	SystemStatus   uint8
	MavlinkVersion uint8
}

func (m *Heartbeat) MsgID() uint32 { return MsgIDHeartbeat }

func (m *Heartbeat) Pack() []byte {
	p := make([]byte, 9)
	le.PutUint32(p[0:], m.CustomMode)
	p[4] = m.Type
	p[5] = m.Autopilot
	p[6] = m.BaseMode
	p[7] = m.SystemStatus
	p[8] = m.MavlinkVersion
	return p
}

func (m *Heartbeat) Unpack(p []byte) {
	p = padded(p, 9)
	m.CustomMode = le.Uint32(p[0:])
	m.Type = p[4]
	m.Autopilot = p[5]
	m.BaseMode = p[6]
	m.SystemStatus = p[7]
	m.MavlinkVersion = p[8]
}

// SysStatus carries the vendor gimbal state machine in the errors_count
// words (see the gimbal package for the bit assignments).
type SysStatus struct {
	SensorsPresent   uint32
	SensorsEnabled   uint32
	SensorsHealth    uint32
	Load             uint16
	VoltageBattery   uint16
	CurrentBattery   int16
	DropRateComm     uint16
	ErrorsComm       uint16
	ErrorsCount1     uint16
	ErrorsCount2     uint16
	ErrorsCount3     uint16
	ErrorsCount4     uint16
	BatteryRemaining int8
}

func (m *SysStatus) MsgID() uint32 { return MsgIDSysStatus }

func (m *SysStatus) Pack() []byte {
	p := make([]byte, 31)
	le.PutUint32(p[0:], m.SensorsPresent)
	le.PutUint32(p[4:], m.SensorsEnabled)
	le.PutUint32(p[8:], m.SensorsHealth)
	le.PutUint16(p[12:], m.Load)
	le.PutUint16(p[14:], m.VoltageBattery)
	le.PutUint16(p[16:], uint16(m.CurrentBattery))
	le.PutUint16(p[18:], m.DropRateComm)
	le.PutUint16(p[20:], m.ErrorsComm)
	le.PutUint16(p[22:], m.ErrorsCount1)
	le.PutUint16(p[24:], m.ErrorsCount2)
	le.PutUint16(p[26:], m.ErrorsCount3)
	le.PutUint16(p[28:], m.ErrorsCount4)
	p[30] = byte(m.BatteryRemaining)
	return p
}

func (m *SysStatus) Unpack(p []byte) {
	p = padded(p, 31)
	m.SensorsPresent = le.Uint32(p[0:])
	m.SensorsEnabled = le.Uint32(p[4:])
	m.SensorsHealth = le.Uint32(p[8:])
	m.Load = le.Uint16(p[12:])
	m.VoltageBattery = le.Uint16(p[14:])
	m.CurrentBattery = int16(le.Uint16(p[16:]))
	m.DropRateComm = le.Uint16(p[18:])
	m.ErrorsComm = le.Uint16(p[20:])
	m.ErrorsCount1 = le.Uint16(p[22:])
	m.ErrorsCount2 = le.Uint16(p[24:])
	m.ErrorsCount3 = le.Uint16(p[26:])
	m.ErrorsCount4 = le.Uint16(p[28:])
	m.BatteryRemaining = int8(p[30])
}

// SystemTime pairs the UNIX epoch clock with the boot clock.
type SystemTime struct {
	TimeUnixUsec uint64
	TimeBootMs   uint32
}

func (m *SystemTime) MsgID() uint32 { return MsgIDSystemTime }

func (m *SystemTime) Pack() []byte {
	p := make([]byte, 12)
	le.PutUint64(p[0:], m.TimeUnixUsec)
	le.PutUint32(p[8:], m.TimeBootMs)
	return p
}

func (m *SystemTime) Unpack(p []byte) {
	p = padded(p, 12)
	m.TimeUnixUsec = le.Uint64(p[0:])
	m.TimeBootMs = le.Uint32(p[8:])
}

// RawIMU is the unscaled 9-axis sample from the gimbal IMU.
type RawIMU struct {
	TimeUsec uint64
	Xacc     int16
	Yacc     int16
	Zacc     int16
	Xgyro    int16
	Ygyro    int16
	Zgyro    int16
	Xmag     int16
	Ymag     int16
	Zmag     int16
}

func (m *RawIMU) MsgID() uint32 { return MsgIDRawIMU }

func (m *RawIMU) Pack() []byte {
	p := make([]byte, 26)
	le.PutUint64(p[0:], m.TimeUsec)
	for i, v := range []int16{
		m.Xacc, m.Yacc, m.Zacc,
		m.Xgyro, m.Ygyro, m.Zgyro,
		m.Xmag, m.Ymag, m.Zmag,
	} {
		le.PutUint16(p[8+2*i:], uint16(v))
	}
	return p
}

func (m *RawIMU) Unpack(p []byte) {
	p = padded(p, 26)
	m.TimeUsec = le.Uint64(p[0:])
	vals := make([]int16, 9)
	for i := range vals {
		vals[i] = int16(le.Uint16(p[8+2*i:]))
	}
	m.Xacc, m.Yacc, m.Zacc = vals[0], vals[1], vals[2]
	m.Xgyro, m.Ygyro, m.Zgyro = vals[3], vals[4], vals[5]
	m.Xmag, m.Ymag, m.Zmag = vals[6], vals[7], vals[8]
}

// Attitude is the fused gimbal attitude in radians.
type Attitude struct {
	TimeBootMs uint32
	Roll       float32
	Pitch      float32
	Yaw        float32
	RollSpeed  float32
	PitchSpeed float32
	YawSpeed   float32
}

func (m *Attitude) MsgID() uint32 { return MsgIDAttitude }

func (m *Attitude) Pack() []byte {
	p := make([]byte, 28)
	le.PutUint32(p[0:], m.TimeBootMs)
	putF32(p[4:], m.Roll)
	putF32(p[8:], m.Pitch)
	putF32(p[12:], m.Yaw)
	putF32(p[16:], m.RollSpeed)
	putF32(p[20:], m.PitchSpeed)
	putF32(p[24:], m.YawSpeed)
	return p
}

func (m *Attitude) Unpack(p []byte) {
	p = padded(p, 28)
	m.TimeBootMs = le.Uint32(p[0:])
	m.Roll = f32(p[4:])
	m.Pitch = f32(p[8:])
	m.Yaw = f32(p[12:])
	m.RollSpeed = f32(p[16:])
	m.PitchSpeed = f32(p[20:])
	m.YawSpeed = f32(p[24:])
}

// CommandLong is the generic command carrier; all gimbal configuration
// and setpoints go through it.
type CommandLong struct {
	Params          [7]float32
	Command         uint16
	TargetSystem    uint8
	TargetComponent uint8
	Confirmation    uint8
}

func (m *CommandLong) MsgID() uint32 { return MsgIDCommandLong }

func (m *CommandLong) Pack() []byte {
	p := make([]byte, 33)
	for i, v := range m.Params {
		putF32(p[4*i:], v)
	}
	le.PutUint16(p[28:], m.Command)
	p[30] = m.TargetSystem
	p[31] = m.TargetComponent
	p[32] = m.Confirmation
	return p
}

func (m *CommandLong) Unpack(p []byte) {
	p = padded(p, 33)
	for i := range m.Params {
		m.Params[i] = f32(p[4*i:])
	}
	m.Command = le.Uint16(p[28:])
	m.TargetSystem = p[30]
	m.TargetComponent = p[31]
	m.Confirmation = p[32]
}

// CommandAck reports acceptance of a CommandLong. The MAVLink 2 extension
// fields are not used on this link.
type CommandAck struct {
	Command uint16
	Result  uint8
}

func (m *CommandAck) MsgID() uint32 { return MsgIDCommandAck }

func (m *CommandAck) Pack() []byte {
	p := make([]byte, 3)
	le.PutUint16(p[0:], m.Command)
	p[2] = m.Result
	return p
}

func (m *CommandAck) Unpack(p []byte) {
	p = padded(p, 3)
	m.Command = le.Uint16(p[0:])
	m.Result = p[2]
}

// MountStatus reports the mount encoder angles in centidegrees:
// pointing_a is pitch, pointing_b roll, pointing_c yaw.
type MountStatus struct {
	PointingA       int32
	PointingB       int32
	PointingC       int32
	TargetSystem    uint8
	TargetComponent uint8
}

func (m *MountStatus) MsgID() uint32 { return MsgIDMountStatus }

func (m *MountStatus) Pack() []byte {
	p := make([]byte, 14)
	le.PutUint32(p[0:], uint32(m.PointingA))
	le.PutUint32(p[4:], uint32(m.PointingB))
	le.PutUint32(p[8:], uint32(m.PointingC))
	p[12] = m.TargetSystem
	p[13] = m.TargetComponent
	return p
}

func (m *MountStatus) Unpack(p []byte) {
	p = padded(p, 14)
	m.PointingA = int32(le.Uint32(p[0:]))
	m.PointingB = int32(le.Uint32(p[4:]))
	m.PointingC = int32(le.Uint32(p[8:]))
	m.TargetSystem = p[12]
	m.TargetComponent = p[13]
}

// MountOrientation reports the mount attitude in degrees. Yaw is relative
// to the vehicle; YawAbsolute (an extension field) is relative to north
// and drifts against Yaw as the vehicle heading drifts.
type MountOrientation struct {
	TimeBootMs  uint32
	Roll        float32
	Pitch       float32
	Yaw         float32
	YawAbsolute float32
}

func (m *MountOrientation) MsgID() uint32 { return MsgIDMountOrientation }

func (m *MountOrientation) Pack() []byte {
	p := make([]byte, 20)
	le.PutUint32(p[0:], m.TimeBootMs)
	putF32(p[4:], m.Roll)
	putF32(p[8:], m.Pitch)
	putF32(p[12:], m.Yaw)
	putF32(p[16:], m.YawAbsolute)
	return p
}

func (m *MountOrientation) Unpack(p []byte) {
	p = padded(p, 20)
	m.TimeBootMs = le.Uint32(p[0:])
	m.Roll = f32(p[4:])
	m.Pitch = f32(p[8:])
	m.Yaw = f32(p[12:])
	m.YawAbsolute = f32(p[16:])
}
