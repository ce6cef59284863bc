package gimbal

// Mode is the gimbal operating mode.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeLock
	ModeFollow
)

// ModeFromInt maps the integer configuration value onto a Mode. Values
// outside the range fall back to off, matching the vendor SDK.
func ModeFromInt(v int) Mode {
	switch v {
	case 1:
		return ModeLock
	case 2:
		return ModeFollow
	default:
		return ModeOff
	}
}

func (m Mode) String() string {
	switch m {
	case ModeLock:
		return "lock"
	case ModeFollow:
		return "follow"
	default:
		return "off"
	}
}

// InputMode selects how an axis interprets its control input.
type InputMode uint8

const (
	InputAngleBodyFrame InputMode = iota
	InputAngularRate
	InputAngleAbsoluteFrame
)

// InputModeFromInt maps the integer configuration value onto an
// InputMode. Values outside the range fall back to absolute frame,
// matching the vendor SDK.
func InputModeFromInt(v int) InputMode {
	switch v {
	case 0:
		return InputAngleBodyFrame
	case 1:
		return InputAngularRate
	default:
		return InputAngleAbsoluteFrame
	}
}

// AxisMode is the control configuration of a single gimbal axis.
type AxisMode struct {
	Input     InputMode
	Stabilize bool
}

// State is the gimbal motor state machine reported over SYS_STATUS.
type State uint8

const (
	StateOff State = iota
	StateInit
	StateOn
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateOn:
		return "on"
	case StateError:
		return "error"
	default:
		return "off"
	}
}

// Status is the decoded gimbal state.
type Status struct {
	State State
	Mode  Mode
}

// The gimbal reports its state machine in the errors_count1 word of
// SYS_STATUS.
const (
	status1MotorsOn        = 0x0001
	status1InitMotors      = 0x0002
	status1SensorError     = 0x0004
	status1MotorPhaseError = 0x0008
	status1MotorAngleError = 0x0010
	status1ModeLock        = 0x0020
	status1ModeFollow      = 0x0040

	status1Errors = status1SensorError | status1MotorPhaseError | status1MotorAngleError
)

// StatusFromErrorsCount1 decodes the vendor status word.
func StatusFromErrorsCount1(w uint16) Status {
	var st Status
	switch {
	case w&status1MotorsOn != 0:
		st.State = StateOn
		switch {
		case w&status1ModeFollow != 0:
			st.Mode = ModeFollow
		case w&status1ModeLock != 0:
			st.Mode = ModeLock
		}
	case w&status1InitMotors != 0:
		st.State = StateInit
	case w&status1Errors != 0:
		st.State = StateError
	default:
		st.State = StateOff
	}
	return st
}

// ErrorsCount1 encodes st back into the vendor status word. The simulator
// uses it to report state the same way the device does.
func (st Status) ErrorsCount1() uint16 {
	var w uint16
	switch st.State {
	case StateOn:
		w = status1MotorsOn
		switch st.Mode {
		case ModeFollow:
			w |= status1ModeFollow
		case ModeLock:
			w |= status1ModeLock
		}
	case StateInit:
		w = status1InitMotors
	case StateError:
		w = status1SensorError
	}
	return w
}

// MountStatus is the mount encoder snapshot in degrees.
type MountStatus struct {
	PitchDeg float64
	RollDeg  float64
	YawDeg   float64
}

// MountOrientation is the mount attitude snapshot in degrees. YawDeg is
// relative to the vehicle; YawAbsoluteDeg is relative to north.
type MountOrientation struct {
	RollDeg        float64
	PitchDeg       float64
	YawDeg         float64
	YawAbsoluteDeg float64
}

// LinkStats are the frame counters of the link parser.
type LinkStats struct {
	FramesOK     uint64
	FramesBadCRC uint64
	BytesDropped uint64
}
