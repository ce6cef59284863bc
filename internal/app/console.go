package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/config"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/msgs"
)

// RunConsole subscribes to the driver topics and prints each message as
// a formatted line. Useful for eyeballing a live gimbal.
func RunConsole() error {
	log := logrus.WithField("component", "console")
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.WithField("broker", cfg.MQTTBroker).Info("console connected to MQTT")

	subscribe := func(topic string, handler mqtt.MessageHandler) error {
		token := client.Subscribe(topic, 0, handler)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.WithField("topic", topic).Info("subscribed")
		return nil
	}

	if err := subscribe(cfg.TopicIMU, func(_ mqtt.Client, msg mqtt.Message) {
		var m msgs.Imu
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.WithError(err).Warn("imu unmarshal error")
			return
		}
		fmt.Printf("[IMU]    ACC=%7.0f %7.0f %7.0f  GYR=%6.0f %6.0f %6.0f\n",
			m.LinearAcceleration.X, m.LinearAcceleration.Y, m.LinearAcceleration.Z,
			m.AngularVelocity.X, m.AngularVelocity.Y, m.AngularVelocity.Z,
		)
	}); err != nil {
		return err
	}

	if err := subscribe(cfg.TopicEncoder, func(_ mqtt.Client, msg mqtt.Message) {
		var m msgs.Vector3Stamped
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.WithError(err).Warn("encoder unmarshal error")
			return
		}
		fmt.Printf("[ENC]    ROLL=%7.4f  PITCH=%7.4f  YAW=%7.4f (rad)\n",
			m.Vector.X, m.Vector.Y, m.Vector.Z,
		)
	}); err != nil {
		return err
	}

	if err := subscribe(cfg.TopicOrientationLocal, func(_ mqtt.Client, msg mqtt.Message) {
		var m msgs.QuaternionStamped
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.WithError(err).Warn("orientation unmarshal error")
			return
		}
		q := m.Quaternion
		fmt.Printf("[LOCAL]  X=%7.4f  Y=%7.4f  Z=%7.4f  W=%7.4f\n", q.X, q.Y, q.Z, q.W)
	}); err != nil {
		return err
	}

	if err := subscribe(cfg.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		var m msgs.Status
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.WithError(err).Warn("status unmarshal error")
			return
		}
		fmt.Printf("[STATE]  %s/%s  yaw_offset=%.4f rad  frames=%d bad_crc=%d\n",
			m.State, m.Mode, m.YawOffsetRad, m.FramesOK, m.FramesBadCRC,
		)
	}); err != nil {
		return err
	}

	// Block until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}
