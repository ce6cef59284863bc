package sim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/gimbal"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/mavlink"
)

func command(id uint16, params [7]float32) mavlink.CommandLong {
	return mavlink.CommandLong{Command: id, Params: params}
}

func TestMotorSpinUp(t *testing.T) {
	opts := DefaultOptions()
	opts.SpinUpMs = 10
	g := NewGimbal(opts)

	if st := g.Status(); st.State != gimbal.StateOff {
		t.Fatalf("initial state = %v, want off", st.State)
	}

	ack := g.HandleCommand(command(mavlink.CmdUser1, [7]float32{6: 1}))
	if ack.Result != mavlink.ResultAccepted {
		t.Fatalf("motor on ack = %d", ack.Result)
	}
	if st := g.Status(); st.State != gimbal.StateInit {
		t.Fatalf("state after motor on = %v, want init", st.State)
	}

	g.Step(time.Now().Add(20*time.Millisecond), 0.02)
	if st := g.Status(); st.State != gimbal.StateOn {
		t.Fatalf("state after spin-up = %v, want on", st.State)
	}

	g.HandleCommand(command(mavlink.CmdUser1, [7]float32{}))
	if st := g.Status(); st.State != gimbal.StateOff {
		t.Fatalf("state after motor off = %v, want off", st.State)
	}
}

func TestModeAndMoveCommands(t *testing.T) {
	opts := DefaultOptions()
	opts.MotorsOn = true
	g := NewGimbal(opts)

	g.HandleCommand(command(mavlink.CmdUser2, [7]float32{6: 2}))
	if st := g.Status(); st.Mode != gimbal.ModeFollow {
		t.Errorf("mode = %v, want follow", st.Mode)
	}

	g.HandleCommand(command(mavlink.CmdDoMountControl, [7]float32{-30, 5, 120, 0, 0, 0, mavlink.MountModeMavlinkTargeting}))
	pitch, roll, yaw := g.Targets()
	if pitch != -30 || roll != 5 || yaw != 120 {
		t.Errorf("targets = %v %v %v, want -30 5 120", pitch, roll, yaw)
	}

	ack := g.HandleCommand(command(4242, [7]float32{}))
	if ack.Result != mavlink.ResultUnsupported {
		t.Errorf("unknown command ack = %d, want unsupported", ack.Result)
	}
}

func TestMountConfigure(t *testing.T) {
	g := NewGimbal(DefaultOptions())

	// param1 mount mode, 2-4 stabilize roll/tilt/pan, 5-7 input modes.
	g.HandleCommand(command(mavlink.CmdDoMountConfigure,
		[7]float32{mavlink.MountModeMavlinkTargeting, 1, 0, 1, 0, 1, 2}))

	tilt, roll, pan := g.AxisModes()
	if roll != (gimbal.AxisMode{Input: gimbal.InputAngleBodyFrame, Stabilize: true}) {
		t.Errorf("roll axis = %+v", roll)
	}
	if tilt != (gimbal.AxisMode{Input: gimbal.InputAngularRate, Stabilize: false}) {
		t.Errorf("tilt axis = %+v", tilt)
	}
	if pan != (gimbal.AxisMode{Input: gimbal.InputAngleAbsoluteFrame, Stabilize: true}) {
		t.Errorf("pan axis = %+v", pan)
	}
}

func TestStepSlewsTowardTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.MotorsOn = true
	opts.SlewDegPerSec = 10
	opts.YawDriftDegPerSec = 0
	g := NewGimbal(opts)

	g.HandleCommand(command(mavlink.CmdDoMountControl, [7]float32{100, -100, 3}))

	now := time.Now()
	g.Step(now, 0.5) // 5 degrees of travel
	pitch, roll, yaw := g.Angles()
	if pitch != 5 || roll != -5 || yaw != 3 {
		t.Errorf("angles after step = %v %v %v, want 5 -5 3", pitch, roll, yaw)
	}

	// Enough steps to converge; must not overshoot.
	for i := 0; i < 40; i++ {
		g.Step(now, 0.5)
	}
	pitch, roll, yaw = g.Angles()
	if pitch != 100 || roll != -100 || yaw != 3 {
		t.Errorf("angles after convergence = %v %v %v", pitch, roll, yaw)
	}
}

func TestStepIgnoredWhileOff(t *testing.T) {
	g := NewGimbal(DefaultOptions())
	g.HandleCommand(command(mavlink.CmdDoMountControl, [7]float32{10, 10, 10}))
	g.Step(time.Now(), 1)
	if pitch, roll, yaw := g.Angles(); pitch != 0 || roll != 0 || yaw != 0 {
		t.Errorf("moved while off: %v %v %v", pitch, roll, yaw)
	}
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	data := "spin_up_ms: 25\nreport_rate_hz: 100\nmotors_on: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if opts.SpinUpMs != 25 || opts.ReportRateHz != 100 || !opts.MotorsOn {
		t.Errorf("opts = %+v", opts)
	}
	// Unset keys keep their defaults.
	if opts.CompID != DefaultOptions().CompID {
		t.Errorf("comp_id = %d, want default %d", opts.CompID, DefaultOptions().CompID)
	}

	if _, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
