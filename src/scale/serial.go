package scale

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// PortConfig describes the serial link to the balance
type PortConfig struct {
	Name        string
	BaudRate    int
	ReadTimeout time.Duration
}

// OpenSerial opens the balance's serial port as 8N1
func OpenSerial(config PortConfig) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(config.Name, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", config.Name)
	}

	if config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(config.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, errors.Wrapf(err, "set read timeout on %s", config.Name)
		}
	}
	return port, nil
}

// ListPorts returns the serial ports present on the host
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list serial ports")
	}
	return ports, nil
}
