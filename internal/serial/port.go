package serial

import (
	"time"

	"go.bug.st/serial"

	"github.com/buckleypaul/bringup/internal/fault"
	"github.com/buckleypaul/bringup/internal/logging"
)

// Port is an open UART.
type Port = serial.Port

// Open opens portName at baudRate, 8N1, with the given read timeout.
// A read that sees no data within the timeout returns 0, nil.
func Open(portName string, baudRate int, readTimeout time.Duration) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fault.Wrap(fault.Connection, err, "open %s", portName)
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fault.Wrap(fault.Connection, err, "set read timeout on %s", portName)
		}
	}

	logging.L().Info("serial port opened", "port", portName, "baud", baudRate)
	return port, nil
}
