package main

import (
	"flag"
	"log"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/app"
)

func main() {
	optionsPath := flag.String("options", "", "optional path to simulator options YAML")
	listenAddr := flag.String("listen", "localhost:5760", "TCP address to listen on")
	flag.Parse()

	log.Println("starting ros2-gremsy simulated gimbal")

	if err := app.RunSimulator(*optionsPath, *listenAddr); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
