// Copyright (c) 2026 Mehmet Killioglu
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim models a MAVLink gimbal well enough to run the driver with
// no hardware attached: heartbeat and status emission, the motor
// spin-up sequence, mode and axis configuration commands, and setpoint
// slewing with yaw drift.
package sim

import (
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/gimbal"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/mavlink"
)

// Options describe one simulated gimbal. Loaded from YAML for the
// simulator command; tests fill them directly.
type Options struct {
	SysID             uint8   `yaml:"sys_id"`
	CompID            uint8   `yaml:"comp_id"`
	SpinUpMs          int     `yaml:"spin_up_ms"`
	SlewDegPerSec     float64 `yaml:"slew_deg_per_sec"`
	ReportRateHz      float64 `yaml:"report_rate_hz"`
	YawDriftDegPerSec float64 `yaml:"yaw_drift_deg_per_sec"`
	IMUNoise          int     `yaml:"imu_noise"`
	MotorsOn          bool    `yaml:"motors_on"`
	Mode              int     `yaml:"mode"`
}

// DefaultOptions mirror a bench gimbal: powered off, half-second motor
// spin-up, modest drift.
func DefaultOptions() Options {
	return Options{
		SysID:             4,
		CompID:            154, // MAV_COMP_ID_GIMBAL
		SpinUpMs:          500,
		SlewDegPerSec:     90,
		ReportRateHz:      50,
		YawDriftDegPerSec: 0.2,
		IMUNoise:          4,
	}
}

// LoadOptions reads Options from a YAML file, filling unset fields from
// the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrap(err, "sim: read options")
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrap(err, "sim: parse options")
	}
	if opts.ReportRateHz <= 0 {
		return opts, errors.Errorf("sim: report_rate_hz must be positive, got %v", opts.ReportRateHz)
	}
	return opts, nil
}

// Gimbal is the simulated device state machine.
type Gimbal struct {
	opts Options
	log  *logrus.Entry
	rng  *rand.Rand

	mu         sync.Mutex
	motorsOn   bool
	spinningUp bool
	readyAt    time.Time
	mode       gimbal.Mode

	tilt, roll, pan gimbal.AxisMode

	pitchDeg, rollDeg, yawDeg          float64
	targetPitch, targetRoll, targetYaw float64
	yawDriftDeg                        float64

	bootAt time.Time
	seq    uint8
}

// NewGimbal builds a simulated gimbal.
func NewGimbal(opts Options) *Gimbal {
	g := &Gimbal{
		opts:   opts,
		log:    logrus.WithField("component", "sim"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		mode:   gimbal.ModeFromInt(opts.Mode),
		bootAt: time.Now(),
	}
	if opts.MotorsOn {
		g.motorsOn = true
	}
	return g
}

// HandleCommand applies one COMMAND_LONG and returns the ack the device
// would send.
func (g *Gimbal) HandleCommand(cmd mavlink.CommandLong) mavlink.CommandAck {
	g.mu.Lock()
	defer g.mu.Unlock()

	ack := mavlink.CommandAck{Command: cmd.Command, Result: mavlink.ResultAccepted}
	switch cmd.Command {
	case mavlink.CmdUser1: // motor on/off
		if cmd.Params[6] > 0.5 {
			if !g.motorsOn && !g.spinningUp {
				g.spinningUp = true
				g.readyAt = time.Now().Add(time.Duration(g.opts.SpinUpMs) * time.Millisecond)
			}
		} else {
			g.motorsOn = false
			g.spinningUp = false
		}

	case mavlink.CmdUser2: // operating mode
		g.mode = gimbal.ModeFromInt(int(cmd.Params[6]))

	case mavlink.CmdDoMountConfigure:
		g.roll = gimbal.AxisMode{Input: gimbal.InputModeFromInt(int(cmd.Params[4])), Stabilize: cmd.Params[1] > 0.5}
		g.tilt = gimbal.AxisMode{Input: gimbal.InputModeFromInt(int(cmd.Params[5])), Stabilize: cmd.Params[2] > 0.5}
		g.pan = gimbal.AxisMode{Input: gimbal.InputModeFromInt(int(cmd.Params[6])), Stabilize: cmd.Params[3] > 0.5}

	case mavlink.CmdDoMountControl:
		g.targetPitch = float64(cmd.Params[0])
		g.targetRoll = float64(cmd.Params[1])
		g.targetYaw = float64(cmd.Params[2])

	default:
		ack.Result = mavlink.ResultUnsupported
	}
	return ack
}

// Step advances the model by dt: spin-up completion, axis slewing and
// yaw drift.
func (g *Gimbal) Step(now time.Time, dt float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.spinningUp && now.After(g.readyAt) {
		g.spinningUp = false
		g.motorsOn = true
	}
	if !g.motorsOn {
		return
	}

	maxStep := g.opts.SlewDegPerSec * dt
	g.pitchDeg = slew(g.pitchDeg, g.targetPitch, maxStep)
	g.rollDeg = slew(g.rollDeg, g.targetRoll, maxStep)
	g.yawDeg = slew(g.yawDeg, g.targetYaw, maxStep)
	g.yawDriftDeg += g.opts.YawDriftDegPerSec * dt
}

func slew(cur, target, maxStep float64) float64 {
	d := target - cur
	if d > maxStep {
		d = maxStep
	} else if d < -maxStep {
		d = -maxStep
	}
	return cur + d
}

// Status reports the device state the way the wire encodes it.
func (g *Gimbal) Status() gimbal.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked()
}

func (g *Gimbal) statusLocked() gimbal.Status {
	switch {
	case g.motorsOn:
		return gimbal.Status{State: gimbal.StateOn, Mode: g.mode}
	case g.spinningUp:
		return gimbal.Status{State: gimbal.StateInit}
	default:
		return gimbal.Status{State: gimbal.StateOff}
	}
}

// Targets returns the current setpoint in degrees (pitch, roll, yaw).
func (g *Gimbal) Targets() (pitch, roll, yaw float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.targetPitch, g.targetRoll, g.targetYaw
}

// Angles returns the current mount angles in degrees (pitch, roll, yaw).
func (g *Gimbal) Angles() (pitch, roll, yaw float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pitchDeg, g.rollDeg, g.yawDeg
}

// AxisModes returns the configured axis modes (tilt, roll, pan).
func (g *Gimbal) AxisModes() (tilt, roll, pan gimbal.AxisMode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tilt, g.roll, g.pan
}

func (g *Gimbal) noise() int16 {
	if g.opts.IMUNoise <= 0 {
		return 0
	}
	return int16(g.rng.Intn(2*g.opts.IMUNoise+1) - g.opts.IMUNoise)
}

func (g *Gimbal) bootMs(now time.Time) uint32 {
	return uint32(now.Sub(g.bootAt) / time.Millisecond)
}

// telemetry builds the periodic report messages under one lock.
func (g *Gimbal) telemetry(now time.Time) []mavlink.Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	return []mavlink.Message{
		&mavlink.SysStatus{ErrorsCount1: g.statusLocked().ErrorsCount1()},
		&mavlink.RawIMU{
			TimeUsec: uint64(now.Sub(g.bootAt) / time.Microsecond),
			Xacc:     g.noise(),
			Yacc:     g.noise(),
			Zacc:     -1000 + g.noise(), // gravity, raw units
			Xgyro:    g.noise(),
			Ygyro:    g.noise(),
			Zgyro:    g.noise(),
		},
		&mavlink.MountStatus{
			PointingA: int32(g.pitchDeg * 100),
			PointingB: int32(g.rollDeg * 100),
			PointingC: int32(g.yawDeg * 100),
		},
		&mavlink.MountOrientation{
			TimeBootMs:  g.bootMs(now),
			Roll:        float32(g.rollDeg),
			Pitch:       float32(g.pitchDeg),
			Yaw:         float32(g.yawDeg),
			YawAbsolute: float32(g.yawDeg + g.yawDriftDeg),
		},
	}
}

func (g *Gimbal) write(w io.Writer, m mavlink.Message) error {
	g.mu.Lock()
	seq := g.seq
	g.seq++
	g.mu.Unlock()

	b, err := mavlink.PackFrame(g.opts.SysID, g.opts.CompID, seq, m)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "sim: write")
}

// Serve runs the device against one connection: decodes incoming
// commands, acks them, and emits heartbeat plus telemetry until the peer
// goes away.
func (g *Gimbal) Serve(conn io.ReadWriter) error {
	acks := make(chan mavlink.CommandAck, 16)
	readErr := make(chan error, 1)

	go func() {
		var parser mavlink.Parser
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				for _, f := range parser.Parse(buf[:n]) {
					if f.MsgID != mavlink.MsgIDCommandLong {
						continue
					}
					var cmd mavlink.CommandLong
					cmd.Unpack(f.Payload)
					select {
					case acks <- g.HandleCommand(cmd):
					default:
						g.log.Warn("ack queue full, dropping ack")
					}
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	report := time.NewTicker(time.Duration(float64(time.Second) / g.opts.ReportRateHz))
	defer report.Stop()
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	// Announce immediately so a connecting driver does not wait a full
	// heartbeat interval.
	hello := &mavlink.Heartbeat{Type: 26, Autopilot: 8, MavlinkVersion: 3}
	if err := g.write(conn, hello); err != nil {
		return err
	}

	last := time.Now()
	for {
		select {
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err

		case ack := <-acks:
			if err := g.write(conn, &ack); err != nil {
				return err
			}

		case <-heartbeat.C:
			hb := &mavlink.Heartbeat{Type: 26, Autopilot: 8, MavlinkVersion: 3} // MAV_TYPE_GIMBAL
			if err := g.write(conn, hb); err != nil {
				return err
			}

		case now := <-report.C:
			g.Step(now, now.Sub(last).Seconds())
			last = now
			for _, m := range g.telemetry(now) {
				if err := g.write(conn, m); err != nil {
					return err
				}
			}
		}
	}
}
