// Package driver implements the gimbal driver node: it applies the
// startup configuration to the device once, polls telemetry on one
// ticker and republishes it, and pushes the last received orientation
// setpoint on another ticker.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/config"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/geometry"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/gimbal"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/mavlink"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/msgs"
)

// frameID is the reference frame stamped on orientation messages.
const frameID = "gimbal_link"

// Gimbal is the device surface the driver needs. *gimbal.Interface
// implements it; tests substitute a fake.
type Gimbal interface {
	Status() gimbal.Status
	RawIMU() (mavlink.RawIMU, time.Time)
	MountStatus() (gimbal.MountStatus, time.Time)
	MountOrientation() (gimbal.MountOrientation, time.Time)
	SetMotorMode(on bool) error
	SetMode(m gimbal.Mode) error
	SetAxesMode(tilt, roll, pan gimbal.AxisMode) error
	SetMove(pitchDeg, rollDeg, yawDeg float64) error
	Stats() gimbal.LinkStats
}

// Publisher sends one payload to one topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Driver owns the gimbal handle and the publisher. Both tickers are
// serviced by a single goroutine, so the poll and push paths never run
// concurrently; only the setpoint slot and the yaw offset are shared
// with the subscriber callback and guarded.
type Driver struct {
	cfg *config.Config
	gim Gimbal
	pub Publisher
	log *logrus.Entry

	mu        sync.Mutex
	goal      *msgs.Vector3Stamped
	yawOffset float64 // radians, yaw_absolute - yaw
}

// New builds a driver from an already-started gimbal interface.
func New(cfg *config.Config, gim Gimbal, pub Publisher) *Driver {
	return &Driver{
		cfg: cfg,
		gim: gim,
		pub: pub,
		log: logrus.WithField("component", "driver"),
	}
}

// Configure applies the startup parameters to the gimbal: turn the
// motors on if needed, wait for the device to come up, then set the
// operating mode and the per-axis control modes.
func (d *Driver) Configure() error {
	if d.gim.Status().State == gimbal.StateOff {
		d.log.Info("gimbal is off, turning it on")
		if err := d.gim.SetMotorMode(true); err != nil {
			return fmt.Errorf("turning gimbal on: %w", err)
		}
	}

	deadline := time.Now().Add(time.Duration(d.cfg.ConnectTimeoutSec) * time.Second)
	for d.gim.Status().State != gimbal.StateOn {
		if time.Now().After(deadline) {
			return fmt.Errorf("gimbal did not come up within %ds (state %s)",
				d.cfg.ConnectTimeoutSec, d.gim.Status().State)
		}
		d.log.Info("waiting for gimbal to turn on")
		time.Sleep(100 * time.Millisecond)
	}

	mode := gimbal.ModeFromInt(d.cfg.GimbalMode)
	if err := d.gim.SetMode(mode); err != nil {
		return fmt.Errorf("setting gimbal mode: %w", err)
	}

	err := d.gim.SetAxesMode(
		gimbal.AxisMode{Input: gimbal.InputModeFromInt(d.cfg.TiltAxisInputMode), Stabilize: d.cfg.TiltAxisStabilize},
		gimbal.AxisMode{Input: gimbal.InputModeFromInt(d.cfg.RollAxisInputMode), Stabilize: d.cfg.RollAxisStabilize},
		gimbal.AxisMode{Input: gimbal.InputModeFromInt(d.cfg.PanAxisInputMode), Stabilize: d.cfg.PanAxisStabilize},
	)
	if err != nil {
		return fmt.Errorf("setting axis modes: %w", err)
	}

	d.log.WithField("mode", mode.String()).Info("gimbal configured")
	return nil
}

// Run services both tickers until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	statePeriod := time.Duration(float64(time.Second) / d.cfg.StatePollRate)
	goalPeriod := time.Duration(float64(time.Second) / d.cfg.GoalPushRate)

	stateTicker := time.NewTicker(statePeriod)
	defer stateTicker.Stop()
	goalTicker := time.NewTicker(goalPeriod)
	defer goalTicker.Stop()

	d.log.WithFields(logrus.Fields{
		"state_poll_rate": d.cfg.StatePollRate,
		"goal_push_rate":  d.cfg.GoalPushRate,
	}).Info("driver running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-stateTicker.C:
			d.pollState(now)
		case <-goalTicker.C:
			if err := d.pushGoal(); err != nil {
				d.log.WithError(err).Warn("goal push failed")
			}
		}
	}
}

// HandleGoal decodes an incoming setpoint payload. The last received
// setpoint wins; there is no queue and no staleness check.
func (d *Driver) HandleGoal(payload []byte) {
	var goal msgs.Vector3Stamped
	if err := json.Unmarshal(payload, &goal); err != nil {
		d.log.WithError(err).Warn("bad setpoint payload")
		return
	}
	d.SetGoal(goal)
}

// SetGoal stores the desired mount orientation (radians).
func (d *Driver) SetGoal(goal msgs.Vector3Stamped) {
	d.mu.Lock()
	d.goal = &goal
	d.mu.Unlock()
}

func stamp(t time.Time) msgs.Header {
	return msgs.Header{StampUsec: t.UnixMicro()}
}

func stampFrame(t time.Time) msgs.Header {
	return msgs.Header{StampUsec: t.UnixMicro(), FrameID: frameID}
}

// pollState reads the telemetry snapshots, republishes them, and
// refreshes the yaw offset used by the yaw lock.
func (d *Driver) pollState(now time.Time) {
	d.log.Debug("gimbal state poll")

	// Raw IMU. The sample is stamped with its receive time.
	raw, rawAt := d.gim.RawIMU()
	if rawAt.IsZero() {
		rawAt = now
	}
	d.publish(d.cfg.TopicIMU, msgs.Imu{
		Header: stamp(rawAt),
		AngularVelocity: msgs.Vector3{
			X: float64(raw.Xgyro), Y: float64(raw.Ygyro), Z: float64(raw.Zgyro),
		},
		LinearAcceleration: msgs.Vector3{
			X: float64(raw.Xacc), Y: float64(raw.Yacc), Z: float64(raw.Zacc),
		},
	})

	// Encoder angles, republished in radians. The mount reports pitch
	// on a, roll on b and yaw on c; the vector is x=roll, y=pitch,
	// z=yaw.
	ms, _ := d.gim.MountStatus()
	d.publish(d.cfg.TopicEncoder, msgs.Vector3Stamped{
		Header: stamp(now),
		Vector: msgs.Vector3{
			X: ms.RollDeg * geometry.DegToRad,
			Y: ms.PitchDeg * geometry.DegToRad,
			Z: ms.YawDeg * geometry.DegToRad,
		},
	})

	// Mount orientation in both frames, and the drift between them.
	mo, _ := d.gim.MountOrientation()
	d.mu.Lock()
	d.yawOffset = (mo.YawAbsoluteDeg - mo.YawDeg) * geometry.DegToRad
	yawOffset := d.yawOffset
	d.mu.Unlock()

	d.publish(d.cfg.TopicOrientationGlobal, msgs.QuaternionStamped{
		Header:     stampFrame(now),
		Quaternion: geometry.QuaternionFromYXZ(mo.RollDeg, mo.PitchDeg, mo.YawAbsoluteDeg),
	})
	d.publish(d.cfg.TopicOrientationLocal, msgs.QuaternionStamped{
		Header:     stampFrame(now),
		Quaternion: geometry.QuaternionFromYXZ(mo.RollDeg, mo.PitchDeg, mo.YawDeg),
	})

	status := d.gim.Status()
	stats := d.gim.Stats()
	d.publish(d.cfg.TopicStatus, msgs.Status{
		Header:       stamp(now),
		State:        status.State.String(),
		Mode:         status.Mode.String(),
		YawOffsetRad: yawOffset,
		FramesOK:     stats.FramesOK,
		FramesBadCRC: stats.FramesBadCRC,
		BytesDropped: stats.BytesDropped,
	})
}

// pushGoal sends the last received setpoint to the gimbal, correcting
// commanded yaw against vehicle drift when the yaw lock is enabled.
// Ticks before the first setpoint arrives are skipped.
func (d *Driver) pushGoal() error {
	d.mu.Lock()
	goal := d.goal
	yawOffset := d.yawOffset
	d.mu.Unlock()

	if goal == nil {
		return nil
	}

	z := goal.Vector.Z
	if d.cfg.LockYawToVehicle {
		z += yawOffset
	}

	return d.gim.SetMove(
		geometry.RadToDeg*goal.Vector.Y,
		geometry.RadToDeg*goal.Vector.X,
		geometry.RadToDeg*z,
	)
}

func (d *Driver) publish(topic string, msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		d.log.WithError(err).WithField("topic", topic).Error("marshal failed")
		return
	}
	if err := d.pub.Publish(topic, payload); err != nil {
		d.log.WithError(err).WithField("topic", topic).Warn("publish failed")
	}
}
