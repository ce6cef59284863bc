package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all driver configuration values. Loaded once at startup
// and immutable afterwards.
type Config struct {
	// Gimbal link
	SerialDevice string // device path, or tcp://host:port for the simulator
	BaudRate     uint

	// Rates
	StatePollRate float64 // Hz, telemetry poll and publish
	GoalPushRate  float64 // Hz, setpoint push

	// Gimbal configuration
	// Mode: 0=off, 1=lock, 2=follow
	GimbalMode int
	// Input modes: 0=angle body frame, 1=angular rate, 2=angle absolute frame
	TiltAxisInputMode int
	RollAxisInputMode int
	PanAxisInputMode  int
	TiltAxisStabilize bool
	RollAxisStabilize bool
	PanAxisStabilize  bool
	// Correct commanded yaw for vehicle yaw drift
	LockYawToVehicle bool

	// Seconds to wait for the gimbal to come up at startup
	ConnectTimeoutSec int

	// MQTT
	MQTTBroker          string
	MQTTClientIDDriver  string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string

	// Topics
	TopicIMU               string
	TopicEncoder           string
	TopicOrientationGlobal string
	TopicOrientationLocal  string
	TopicGoal              string
	TopicStatus            string

	// Web Server
	WebServerPort int
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only set through InitGlobal and read through Get.
//   - configOnce ensures InitGlobal() only runs once, even if called
//     multiple times.
//   - configMu protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration the driver runs with when a key is
// absent from the file.
func Default() *Config {
	return &Config{
		SerialDevice:      "/dev/ttyUSB0",
		BaudRate:          115200,
		StatePollRate:     10,
		GoalPushRate:      60,
		GimbalMode:        1,
		TiltAxisInputMode: 2,
		RollAxisInputMode: 2,
		PanAxisInputMode:  2,
		TiltAxisStabilize: true,
		RollAxisStabilize: true,
		PanAxisStabilize:  true,
		LockYawToVehicle:  true,
		ConnectTimeoutSec: 30,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDDriver:  "gremsy-driver",
		MQTTClientIDConsole: "gremsy-console",
		MQTTClientIDWeb:     "gremsy-web",

		TopicIMU:               "gremsy/imu",
		TopicEncoder:           "gremsy/encoder",
		TopicOrientationGlobal: "gremsy/mount_orientation_global",
		TopicOrientationLocal:  "gremsy/mount_orientation_local",
		TopicGoal:              "gremsy/goal",
		TopicStatus:            "gremsy/status",

		WebServerPort: 8080,
	}
}

// Load reads the configuration file and returns a Config struct. Keys
// not present keep their defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseRangedInt(key, value string, from, to int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < from || v > to {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, from, to, v)
	}
	return v, nil
}

func parseFlag(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Gimbal link
	case "SERIAL_DEVICE":
		c.SerialDevice = value
	case "BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("BAUD_RATE must be positive, got %d", rate)
		}
		c.BaudRate = uint(rate)

	// Rates
	case "STATE_POLL_RATE":
		c.StatePollRate, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid STATE_POLL_RATE %q: %w", value, err)
		}
	case "GOAL_PUSH_RATE":
		c.GoalPushRate, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GOAL_PUSH_RATE %q: %w", value, err)
		}

	// Gimbal configuration
	case "GIMBAL_MODE":
		c.GimbalMode, err = parseRangedInt(key, value, 0, 2)
	case "TILT_AXIS_INPUT_MODE":
		c.TiltAxisInputMode, err = parseRangedInt(key, value, 0, 2)
	case "ROLL_AXIS_INPUT_MODE":
		c.RollAxisInputMode, err = parseRangedInt(key, value, 0, 2)
	case "PAN_AXIS_INPUT_MODE":
		c.PanAxisInputMode, err = parseRangedInt(key, value, 0, 2)
	case "TILT_AXIS_STABILIZE":
		c.TiltAxisStabilize, err = parseFlag(key, value)
	case "ROLL_AXIS_STABILIZE":
		c.RollAxisStabilize, err = parseFlag(key, value)
	case "PAN_AXIS_STABILIZE":
		c.PanAxisStabilize, err = parseFlag(key, value)
	case "LOCK_YAW_TO_VEHICLE":
		c.LockYawToVehicle, err = parseFlag(key, value)
	case "CONNECT_TIMEOUT_SEC":
		c.ConnectTimeoutSec, err = parseRangedInt(key, value, 1, 600)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_DRIVER":
		c.MQTTClientIDDriver = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_ENCODER":
		c.TopicEncoder = value
	case "TOPIC_ORIENTATION_GLOBAL":
		c.TopicOrientationGlobal = value
	case "TOPIC_ORIENTATION_LOCAL":
		c.TopicOrientationLocal = value
	case "TOPIC_GOAL":
		c.TopicGoal = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseRangedInt(key, value, 1, 65535)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field constraints that setValue cannot see.
func (c *Config) validate() error {
	if c.SerialDevice == "" {
		return fmt.Errorf("SERIAL_DEVICE is required")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.StatePollRate <= 0 || c.StatePollRate > 300 {
		return fmt.Errorf("STATE_POLL_RATE must be in (0, 300], got %v", c.StatePollRate)
	}
	if c.GoalPushRate <= 0 || c.GoalPushRate > 300 {
		return fmt.Errorf("GOAL_PUSH_RATE must be in (0, 300], got %v", c.GoalPushRate)
	}
	telemetry := []struct{ key, val string }{
		{"TOPIC_IMU", c.TopicIMU},
		{"TOPIC_ENCODER", c.TopicEncoder},
		{"TOPIC_ORIENTATION_GLOBAL", c.TopicOrientationGlobal},
		{"TOPIC_ORIENTATION_LOCAL", c.TopicOrientationLocal},
		{"TOPIC_STATUS", c.TopicStatus},
	}
	if c.TopicGoal == "" {
		return fmt.Errorf("TOPIC_GOAL is required")
	}
	for _, t := range telemetry {
		if t.val == "" {
			return fmt.Errorf("%s is required", t.key)
		}
		// A goal topic that aliases a telemetry topic would make the
		// driver consume its own output.
		if t.val == c.TopicGoal {
			return fmt.Errorf("TOPIC_GOAL must differ from %s", t.key)
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once to ensure this only runs once, even if called multiple
// times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
