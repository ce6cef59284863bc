// Package gimbal is the Go port of the vendor gimbal SDK surface the
// driver calls: a serial/TCP link speaking MAVLink, a read pump that
// keeps the latest telemetry snapshots, and the small set of commands
// the device understands (motor on/off, operating mode, axis
// configuration, move setpoints).
package gimbal

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/mavlink"
)

// Component ids on the link. The driver identifies as an onboard
// computer; the gimbal's own ids are learned from its first heartbeat.
const (
	localSysID  = 1
	localCompID = 191 // MAV_COMP_ID_ONBOARDCOMPUTER
)

// Interface talks to one gimbal over an open link. All getters return
// the latest decoded snapshot together with its receive time; the read
// pump updates them as frames arrive.
type Interface struct {
	port io.ReadWriteCloser
	log  *logrus.Entry

	hbOnce sync.Once
	hbSeen chan struct{}

	wmu sync.Mutex
	seq uint8

	mu            sync.RWMutex
	targetSys     uint8
	targetComp    uint8
	status        Status
	rawIMU        mavlink.RawIMU
	rawIMUAt      time.Time
	mountStat     MountStatus
	mountStatAt   time.Time
	mountOrient   MountOrientation
	mountOrientAt time.Time
	lastAck       mavlink.CommandAck
	haveAck       bool
	stats         LinkStats
	pumpErr       error

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewInterface wraps an open gimbal link.
func NewInterface(port io.ReadWriteCloser) *Interface {
	return &Interface{
		port:   port,
		log:    logrus.WithField("component", "gimbal"),
		hbSeen: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the read pump and the 1Hz heartbeat, then waits up to
// timeout for the gimbal's first heartbeat.
func (g *Interface) Start(timeout time.Duration) error {
	g.wg.Add(2)
	go g.pump()
	go g.heartbeatLoop()

	select {
	case <-g.hbSeen:
		return nil
	case <-time.After(timeout):
		return errors.New("gimbal: no heartbeat received")
	}
}

// Close stops the pump and closes the link.
func (g *Interface) Close() error {
	g.stopOnce.Do(func() { close(g.done) })
	err := g.port.Close()
	g.wg.Wait()
	return err
}

func (g *Interface) pump() {
	defer g.wg.Done()

	var parser mavlink.Parser
	buf := make([]byte, 256)
	for {
		n, err := g.port.Read(buf)
		if n > 0 {
			for _, f := range parser.Parse(buf[:n]) {
				g.handleFrame(f)
			}
			ok, bad, dropped := parser.Stats()
			g.mu.Lock()
			g.stats = LinkStats{FramesOK: ok, FramesBadCRC: bad, BytesDropped: dropped}
			g.mu.Unlock()
		}
		if err != nil {
			select {
			case <-g.done:
			default:
				g.log.WithError(err).Warn("link read failed, stopping pump")
				g.mu.Lock()
				g.pumpErr = err
				g.mu.Unlock()
			}
			return
		}
	}
}

func (g *Interface) handleFrame(f mavlink.Frame) {
	now := time.Now()

	switch f.MsgID {
	case mavlink.MsgIDHeartbeat:
		g.mu.Lock()
		g.targetSys = f.SysID
		g.targetComp = f.CompID
		g.mu.Unlock()
		g.hbOnce.Do(func() { close(g.hbSeen) })

	case mavlink.MsgIDSysStatus:
		var m mavlink.SysStatus
		m.Unpack(f.Payload)
		g.mu.Lock()
		g.status = StatusFromErrorsCount1(m.ErrorsCount1)
		g.mu.Unlock()

	case mavlink.MsgIDRawIMU:
		var m mavlink.RawIMU
		m.Unpack(f.Payload)
		g.mu.Lock()
		g.rawIMU = m
		g.rawIMUAt = now
		g.mu.Unlock()

	case mavlink.MsgIDMountStatus:
		var m mavlink.MountStatus
		m.Unpack(f.Payload)
		g.mu.Lock()
		// The wire carries centidegrees.
		g.mountStat = MountStatus{
			PitchDeg: float64(m.PointingA) / 100,
			RollDeg:  float64(m.PointingB) / 100,
			YawDeg:   float64(m.PointingC) / 100,
		}
		g.mountStatAt = now
		g.mu.Unlock()

	case mavlink.MsgIDMountOrientation:
		var m mavlink.MountOrientation
		m.Unpack(f.Payload)
		g.mu.Lock()
		g.mountOrient = MountOrientation{
			RollDeg:        float64(m.Roll),
			PitchDeg:       float64(m.Pitch),
			YawDeg:         float64(m.Yaw),
			YawAbsoluteDeg: float64(m.YawAbsolute),
		}
		g.mountOrientAt = now
		g.mu.Unlock()

	case mavlink.MsgIDCommandAck:
		var m mavlink.CommandAck
		m.Unpack(f.Payload)
		g.mu.Lock()
		g.lastAck = m
		g.haveAck = true
		g.mu.Unlock()
		if m.Result != mavlink.ResultAccepted {
			g.log.WithFields(logrus.Fields{
				"command": m.Command,
				"result":  m.Result,
			}).Warn("gimbal rejected command")
		}
	}
}

func (g *Interface) heartbeatLoop() {
	defer g.wg.Done()

	hb := &mavlink.Heartbeat{
		Type:           18, // MAV_TYPE_ONBOARD_CONTROLLER
		Autopilot:      8,  // MAV_AUTOPILOT_INVALID
		MavlinkVersion: 3,
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			if err := g.send(hb); err != nil {
				g.log.WithError(err).Debug("heartbeat send failed")
			}
		}
	}
}

func (g *Interface) send(m mavlink.Message) error {
	g.wmu.Lock()
	defer g.wmu.Unlock()

	b, err := mavlink.PackFrame(localSysID, localCompID, g.seq, m)
	if err != nil {
		return err
	}
	g.seq++
	if _, err := g.port.Write(b); err != nil {
		return errors.Wrap(err, "gimbal: write")
	}
	return nil
}

func (g *Interface) sendCommand(command uint16, params [7]float32) error {
	g.mu.RLock()
	sys, comp := g.targetSys, g.targetComp
	g.mu.RUnlock()

	return g.send(&mavlink.CommandLong{
		Params:          params,
		Command:         command,
		TargetSystem:    sys,
		TargetComponent: comp,
	})
}

// SetMotorMode turns the gimbal motors on or off.
func (g *Interface) SetMotorMode(on bool) error {
	var params [7]float32
	if on {
		params[6] = 1
	}
	return g.sendCommand(mavlink.CmdUser1, params)
}

// SetMode sets the gimbal operating mode.
func (g *Interface) SetMode(m Mode) error {
	var params [7]float32
	params[6] = float32(m)
	return g.sendCommand(mavlink.CmdUser2, params)
}

func boolParam(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// SetAxesMode configures input mode and stabilization for all three axes
// in one DO_MOUNT_CONFIGURE command. Tilt is the pitch axis, pan the yaw
// axis.
func (g *Interface) SetAxesMode(tilt, roll, pan AxisMode) error {
	return g.sendCommand(mavlink.CmdDoMountConfigure, [7]float32{
		mavlink.MountModeMavlinkTargeting,
		boolParam(roll.Stabilize),
		boolParam(tilt.Stabilize),
		boolParam(pan.Stabilize),
		float32(roll.Input),
		float32(tilt.Input),
		float32(pan.Input),
	})
}

// SetMove pushes an orientation setpoint in degrees.
func (g *Interface) SetMove(pitchDeg, rollDeg, yawDeg float64) error {
	return g.sendCommand(mavlink.CmdDoMountControl, [7]float32{
		float32(pitchDeg),
		float32(rollDeg),
		float32(yawDeg),
		0, 0, 0,
		mavlink.MountModeMavlinkTargeting,
	})
}

// Status returns the latest decoded gimbal state.
func (g *Interface) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// RawIMU returns the latest raw IMU sample and its receive time.
func (g *Interface) RawIMU() (mavlink.RawIMU, time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rawIMU, g.rawIMUAt
}

// MountStatus returns the latest encoder snapshot and its receive time.
func (g *Interface) MountStatus() (MountStatus, time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mountStat, g.mountStatAt
}

// MountOrientation returns the latest attitude snapshot and its receive
// time.
func (g *Interface) MountOrientation() (MountOrientation, time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mountOrient, g.mountOrientAt
}

// LastAck returns the most recent COMMAND_ACK, if any arrived yet.
func (g *Interface) LastAck() (mavlink.CommandAck, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastAck, g.haveAck
}

// Stats returns the link frame counters.
func (g *Interface) Stats() LinkStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stats
}

// Err reports the error that stopped the read pump, if it stopped.
func (g *Interface) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pumpErr
}
