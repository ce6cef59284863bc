// Copyright (c) 2026 Mehmet Killioglu
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gimbal

import (
	"io"
	"net"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// Open opens the gimbal link. device is either a serial device path
// (/dev/ttyUSB0) or a tcp://host:port endpoint, the latter used to talk
// to the simulator.
func Open(device string, baudRate uint) (io.ReadWriteCloser, error) {
	if addr, ok := strings.CutPrefix(device, "tcp://"); ok {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, errors.Wrapf(err, "gimbal: dial %s", addr)
		}
		return conn, nil
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:        device,
		BaudRate:        baudRate,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "gimbal: open %s", device)
	}
	return port, nil
}
