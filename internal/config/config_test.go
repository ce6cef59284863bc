package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gremsy_config.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# gimbal link
SERIAL_DEVICE = tcp://localhost:5760
BAUD_RATE = 57600

STATE_POLL_RATE = 20.5
GOAL_PUSH_RATE = 50
GIMBAL_MODE = 2
TILT_AXIS_INPUT_MODE = 1
TILT_AXIS_STABILIZE = false
LOCK_YAW_TO_VEHICLE = false
TOPIC_GOAL = gimbal/setpoint
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SerialDevice != "tcp://localhost:5760" {
		t.Errorf("SerialDevice = %q", cfg.SerialDevice)
	}
	if cfg.BaudRate != 57600 {
		t.Errorf("BaudRate = %d", cfg.BaudRate)
	}
	if cfg.StatePollRate != 20.5 || cfg.GoalPushRate != 50 {
		t.Errorf("rates = %v %v", cfg.StatePollRate, cfg.GoalPushRate)
	}
	if cfg.GimbalMode != 2 || cfg.TiltAxisInputMode != 1 {
		t.Errorf("modes = %d %d", cfg.GimbalMode, cfg.TiltAxisInputMode)
	}
	if cfg.TiltAxisStabilize || cfg.LockYawToVehicle {
		t.Errorf("flags = %v %v", cfg.TiltAxisStabilize, cfg.LockYawToVehicle)
	}
	if cfg.TopicGoal != "gimbal/setpoint" {
		t.Errorf("TopicGoal = %q", cfg.TopicGoal)
	}

	// Untouched keys keep their defaults.
	if cfg.RollAxisInputMode != 2 || !cfg.RollAxisStabilize {
		t.Errorf("roll axis = %d %v", cfg.RollAxisInputMode, cfg.RollAxisStabilize)
	}
	if cfg.MQTTBroker != "tcp://localhost:1883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
}

func TestLoadEmptyFileIsAllDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n# nothing here\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "NO_SUCH_KEY = 1\n", "unknown config key"},
		{"missing equals", "JUST A LINE\n", "invalid config line"},
		{"mode out of range", "GIMBAL_MODE = 7\n", "GIMBAL_MODE must be 0-2"},
		{"input mode out of range", "PAN_AXIS_INPUT_MODE = -1\n", "PAN_AXIS_INPUT_MODE must be 0-2"},
		{"bad baud", "BAUD_RATE = fast\n", "invalid BAUD_RATE"},
		{"zero baud", "BAUD_RATE = 0\n", "BAUD_RATE must be positive"},
		{"bad bool", "LOCK_YAW_TO_VEHICLE = maybe\n", "invalid LOCK_YAW_TO_VEHICLE"},
		{"poll rate too high", "STATE_POLL_RATE = 301\n", "STATE_POLL_RATE must be in (0, 300]"},
		{"push rate zero", "GOAL_PUSH_RATE = 0\n", "GOAL_PUSH_RATE must be in (0, 300]"},
		{"goal aliases telemetry", "TOPIC_GOAL = gremsy/imu\n", "TOPIC_GOAL must differ from TOPIC_IMU"},
		{"empty topic", "TOPIC_ENCODER =\n", "TOPIC_ENCODER is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("Load succeeded, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
