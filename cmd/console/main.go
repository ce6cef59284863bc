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

	log.Println("starting ros2-gremsy console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
