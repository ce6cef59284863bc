package app

import (
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mehmetkillioglu/ros2-gremsy/internal/sim"
)

// RunSimulator listens for driver connections and serves each one from
// a single simulated gimbal. optionsPath may be empty to run with the
// defaults.
func RunSimulator(optionsPath, listenAddr string) error {
	log := logrus.WithField("component", "sim")

	opts := sim.DefaultOptions()
	if optionsPath != "" {
		var err error
		if opts, err = sim.LoadOptions(optionsPath); err != nil {
			return err
		}
	}

	dev := sim.NewGimbal(opts)

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", listenAddr)
	}
	defer ln.Close()
	log.WithField("addr", ln.Addr().String()).Info("simulated gimbal listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "accept")
		}
		log.WithField("peer", conn.RemoteAddr().String()).Info("driver connected")
		go func() {
			defer conn.Close()
			if err := dev.Serve(conn); err != nil {
				log.WithError(err).Warn("connection closed")
			}
		}()
	}
}
