package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/config"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/driver"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/gimbal"
)

// mqttPublisher adapts the paho client to the driver's Publisher.
type mqttPublisher struct {
	client mqtt.Client
}

func (p mqttPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

// RunDriver wires config, MQTT and the gimbal link into the driver and
// runs it until SIGINT/SIGTERM.
func RunDriver() error {
	log := logrus.WithField("component", "app")
	cfg := config.Get()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDriver)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.WithField("broker", cfg.MQTTBroker).Info("connected to MQTT")

	// --- open the gimbal link and start the SDK interface ---
	port, err := gimbal.Open(cfg.SerialDevice, cfg.BaudRate)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"device": cfg.SerialDevice,
		"baud":   cfg.BaudRate,
	}).Info("gimbal link open")

	gim := gimbal.NewInterface(port)
	if err := gim.Start(time.Duration(cfg.ConnectTimeoutSec) * time.Second); err != nil {
		port.Close()
		return err
	}
	defer gim.Close()

	d := driver.New(cfg, gim, mqttPublisher{client})
	if err := d.Configure(); err != nil {
		return err
	}

	// --- subscribe to the setpoint topic ---
	token := client.Subscribe(cfg.TopicGoal, 0, func(_ mqtt.Client, msg mqtt.Message) {
		d.HandleGoal(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", cfg.TopicGoal, token.Error())
	}
	log.WithField("topic", cfg.TopicGoal).Info("subscribed to setpoint topic")

	// --- run until signalled ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = d.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	// Leave the motors off on the way out, best effort.
	if moErr := gim.SetMotorMode(false); moErr != nil {
		log.WithError(moErr).Warn("motor off on shutdown failed")
	}
	return err
}
