// Copyright (c) 2026 Mehmet Killioglu
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package main

import (
	"flag"
	"log"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/app"
	"github.com/mehmetkillioglu/ros2-gremsy/internal/config"
)

func main() {
	configPath := flag.String("config", "./gremsy_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting ros2-gremsy gimbal driver (serial → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDriver(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
