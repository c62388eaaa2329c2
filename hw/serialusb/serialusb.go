// Package serialusb adapts tarm/serial's USB-CDC serial port to
// transport.USBPort, the way seedhammer-seedhammer's mjolnir driver opens
// its microcontroller's serial port.
package serialusb

import (
	"fmt"

	"github.com/tarm/serial"

	"github.com/nedpals/pn532badge/transport"
)

// Port wraps a tarm/serial port as a transport.USBPort.
type Port struct {
	port *serial.Port
}

// Open opens dev (e.g. "/dev/ttyACM0") at the given baud rate.
func Open(dev string, baud int) (*Port, error) {
	cfg := &serial.Config{Name: dev, Baud: baud}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("serialusb: open %q: %w", dev, err)
	}
	return &Port{port: p}, nil
}

func (p *Port) Write(data []byte) (int, error) { return p.port.Write(data) }
func (p *Port) Read(buf []byte) (int, error)   { return p.port.Read(buf) }
func (p *Port) Close() error                   { return p.port.Close() }

var _ transport.USBPort = (*Port)(nil)
