// Package msgs defines the JSON payloads the gimbal driver publishes and
// consumes over MQTT.
package msgs

import (
	"github.com/mehmetkillioglu/ros2-gremsy/internal/geometry"
)

// Header carries the receive/publish stamp and the reference frame of a
// message.
type Header struct {
	StampUsec int64  `json:"stamp_usec"`
	FrameID   string `json:"frame_id,omitempty"`
}

// Vector3 is a plain three-axis vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector3Stamped is a Vector3 with a header. Used for the encoder topic
// (radians) and the desired orientation topic (radians).
type Vector3Stamped struct {
	Header Header  `json:"header"`
	Vector Vector3 `json:"vector"`
}

// QuaternionStamped is a mount orientation with a header.
type QuaternionStamped struct {
	Header     Header              `json:"header"`
	Quaternion geometry.Quaternion `json:"quaternion"`
}

// Imu is a single raw IMU sample from the gimbal. Acceleration and angular
// velocity are the raw sensor units from the wire, as the vendor reports
// them.
type Imu struct {
	Header             Header  `json:"header"`
	AngularVelocity    Vector3 `json:"angular_velocity"`
	LinearAcceleration Vector3 `json:"linear_acceleration"`
}

// Status is the driver's view of the gimbal link, published alongside the
// telemetry topics.
type Status struct {
	Header       Header  `json:"header"`
	State        string  `json:"state"`
	Mode         string  `json:"mode"`
	YawOffsetRad float64 `json:"yaw_offset_rad"`
	FramesOK     uint64  `json:"frames_ok"`
	FramesBadCRC uint64  `json:"frames_bad_crc"`
	BytesDropped uint64  `json:"bytes_dropped"`
}
