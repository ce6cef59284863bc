// Copyright (c) 2026 Mehmet Killioglu
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/config"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/msgs"
)

// webState is the latest-of-everything snapshot served to the page.
type webState struct {
	Orientation *msgs.QuaternionStamped `json:"orientation,omitempty"`
	Encoder     *msgs.Vector3Stamped    `json:"encoder,omitempty"`
	Status      *msgs.Status            `json:"status,omitempty"`
}

// RunWeb subscribes to the driver topics and serves a small monitoring
// page: a JSON snapshot endpoint, a websocket pushing live updates, and
// static files from ./web.
func RunWeb() error {
	log := logrus.WithField("component", "web")
	cfg := config.Get()

	var (
		mu    sync.RWMutex
		state webState
	)

	// 1) Connect to the broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.WithField("broker", cfg.MQTTBroker).Info("connected to MQTT")

	// 2) Keep the snapshot fresh from the driver topics
	subscribe := func(topic string, update func([]byte) error) error {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			mu.Lock()
			defer mu.Unlock()
			if err := update(msg.Payload()); err != nil {
				log.WithError(err).WithField("topic", topic).Warn("payload unmarshal error")
			}
		})
		token.Wait()
		return token.Error()
	}

	if err := subscribe(cfg.TopicOrientationLocal, func(p []byte) error {
		var m msgs.QuaternionStamped
		if err := json.Unmarshal(p, &m); err != nil {
			return err
		}
		state.Orientation = &m
		return nil
	}); err != nil {
		return err
	}
	if err := subscribe(cfg.TopicEncoder, func(p []byte) error {
		var m msgs.Vector3Stamped
		if err := json.Unmarshal(p, &m); err != nil {
			return err
		}
		state.Encoder = &m
		return nil
	}); err != nil {
		return err
	}
	if err := subscribe(cfg.TopicStatus, func(p []byte) error {
		var m msgs.Status
		if err := json.Unmarshal(p, &m); err != nil {
			return err
		}
		state.Status = &m
		return nil
	}); err != nil {
		return err
	}

	// 3) JSON API endpoint: latest snapshot
	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if state.Status == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state); err != nil {
			log.WithError(err).Error("json encode error")
		}
	})

	// 4) Websocket: push the snapshot at 10Hz
	upgrader := websocket.Upgrader{}
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			mu.RLock()
			snapshot := state
			mu.RUnlock()
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
		}
	})

	// 5) Static files from ./web as the root
	http.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.WithField("addr", addr).Info("web server listening")
	return http.ListenAndServe(addr, nil)
}
