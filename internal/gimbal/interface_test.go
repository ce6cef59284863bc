package gimbal_test

import (
	"net"
	"testing"
	"time"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/gimbal"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/sim"
)

// startSim wires an Interface to a simulated gimbal over an in-memory
// pipe.
func startSim(t *testing.T, opts sim.Options) (*gimbal.Interface, *sim.Gimbal) {
	t.Helper()

	driverEnd, simEnd := net.Pipe()
	dev := sim.NewGimbal(opts)
	go dev.Serve(simEnd)

	g := gimbal.NewInterface(driverEnd)
	if err := g.Start(5 * time.Second); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		g.Close()
		simEnd.Close()
	})
	return g, dev
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, desc string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func fastOptions() sim.Options {
	opts := sim.DefaultOptions()
	opts.SpinUpMs = 10
	opts.ReportRateHz = 200
	opts.SlewDegPerSec = 3600
	opts.YawDriftDegPerSec = 0
	return opts
}

func TestStartTimesOutWithoutPeer(t *testing.T) {
	driverEnd, simEnd := net.Pipe()
	defer simEnd.Close()

	// Drain the pipe so the interface's own heartbeats don't block.
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := simEnd.Read(buf); err != nil {
				return
			}
		}
	}()

	g := gimbal.NewInterface(driverEnd)
	if err := g.Start(50 * time.Millisecond); err == nil {
		t.Fatal("expected heartbeat timeout")
	}
	g.Close()
}

func TestMotorModeAndStatus(t *testing.T) {
	g, _ := startSim(t, fastOptions())

	waitFor(t, 2*time.Second, func() bool {
		return g.Status().State == gimbal.StateOff
	}, "initial off status")

	if err := g.SetMotorMode(true); err != nil {
		t.Fatalf("SetMotorMode: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return g.Status().State == gimbal.StateOn
	}, "motors on")

	if err := g.SetMode(gimbal.ModeFollow); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return g.Status().Mode == gimbal.ModeFollow
	}, "follow mode")
}

func TestSetMoveReachesDevice(t *testing.T) {
	opts := fastOptions()
	opts.MotorsOn = true
	g, dev := startSim(t, opts)

	if err := g.SetMove(-25, 5, 90); err != nil {
		t.Fatalf("SetMove: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		pitch, roll, yaw := dev.Targets()
		return pitch == -25 && roll == 5 && yaw == 90
	}, "setpoint at device")

	// The device slews to the setpoint and its telemetry flows back.
	waitFor(t, 2*time.Second, func() bool {
		ms, at := g.MountStatus()
		return !at.IsZero() && ms.PitchDeg == -25 && ms.RollDeg == 5 && ms.YawDeg == 90
	}, "encoder snapshot at setpoint")

	waitFor(t, 2*time.Second, func() bool {
		mo, at := g.MountOrientation()
		return !at.IsZero() && mo.PitchDeg == -25 && mo.YawDeg == 90
	}, "orientation snapshot at setpoint")

	if ack, ok := g.LastAck(); !ok || ack.Result != 0 {
		t.Errorf("ack = %+v ok=%v", ack, ok)
	}
}

func TestAxesModeAck(t *testing.T) {
	g, dev := startSim(t, fastOptions())

	err := g.SetAxesMode(
		gimbal.AxisMode{Input: gimbal.InputAngularRate, Stabilize: true},
		gimbal.AxisMode{Input: gimbal.InputAngleBodyFrame, Stabilize: false},
		gimbal.AxisMode{Input: gimbal.InputAngleAbsoluteFrame, Stabilize: true},
	)
	if err != nil {
		t.Fatalf("SetAxesMode: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		tilt, roll, pan := dev.AxisModes()
		return tilt == gimbal.AxisMode{Input: gimbal.InputAngularRate, Stabilize: true} &&
			roll == gimbal.AxisMode{Input: gimbal.InputAngleBodyFrame, Stabilize: false} &&
			pan == gimbal.AxisMode{Input: gimbal.InputAngleAbsoluteFrame, Stabilize: true}
	}, "axis modes at device")
}

func TestRawIMUFlows(t *testing.T) {
	g, _ := startSim(t, fastOptions())

	waitFor(t, 2*time.Second, func() bool {
		raw, at := g.RawIMU()
		return !at.IsZero() && raw.Zacc != 0
	}, "raw IMU sample")

	if stats := g.Stats(); stats.FramesOK == 0 {
		t.Errorf("stats = %+v, want frames", stats)
	}
}
