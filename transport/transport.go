// Package transport defines the external-collaborator interfaces the rest
// of this module is built against: SPI/USB byte transports, GPIO lines for
// the IRQ/reset/LED/button wiring, and a clock for the reset-pulse timing.
// Nothing in this package touches real hardware; see hw/periphhw,
// hw/serialusb, and hw/hwmock for implementations.
package transport

import "time"

// ByteTransceiver is a half-duplex byte-oriented link: Write sends a frame
// of bytes, Read blocks (up to the implementation's own timeout policy)
// for whatever the peer has made available. Both the SPI leg to the PN532
// and the USB-CDC leg to the host implement this.
type ByteTransceiver interface {
	// Write sends data to the peer, returning the number of bytes
	// accepted and any I/O error.
	Write(data []byte) (int, error)
	// Read fills buf with whatever bytes are currently available,
	// returning the count read. A zero count with a nil error means
	// nothing was available at this poll.
	Read(buf []byte) (int, error)
	Close() error
}

// SPI is the bus used to talk to the PN532 controller.
type SPI interface {
	ByteTransceiver
}

// USBPort is the bus used to talk to the host (bridge mode's other leg).
type USBPort interface {
	ByteTransceiver
}

// GPIOPin is a single digital line: an LED, a button, the PN532's IRQ pin,
// or its reset pin.
type GPIOPin interface {
	// Set drives an output pin high (true) or low (false).
	Set(high bool) error
	// Get reads an input pin's current level.
	Get() (bool, error)
}

// IRQLine is the PN532's IRQ pin, active-low: it reports whether the
// controller is signalling data-ready.
type IRQLine interface {
	// Asserted reports true when the controller is pulling IRQ low.
	Asserted() (bool, error)
}

// Clock provides the delays the reset pulse and polling loops need,
// factored out so tests can run them instantaneously.
type Clock interface {
	Sleep(d time.Duration)
	Now() time.Time
}

// ButtonEdge identifies which of the badge's three buttons produced an
// interrupt, matching the supervisor's button vocabulary.
type ButtonEdge int

const (
	ButtonMenu ButtonEdge = iota + 1
	ButtonOK
	ButtonProfile
)

// ButtonSource delivers debounced button-press edges to the supervisor.
// A real implementation wires this to GPIO interrupt handlers; hwmock
// lets tests inject edges synchronously.
type ButtonSource interface {
	// Edges returns the channel on which button edges are delivered.
	Edges() <-chan ButtonEdge
}

// Transceiver is the PN532 command/response primitive the clone engine
// builds on: send a command, get back however many bytes the
// controller answered with. Callers must not retain the returned slice
// beyond their next call, since implementations are free to reuse a
// scratch buffer.
type Transceiver interface {
	// Execute sends cmd to the controller and returns its response, or
	// an error if the controller reported a negative result.
	Execute(cmd []byte) ([]byte, error)
	// TurnRFOff issues RFConfiguration(CfgItem=0x01, RF=0x00), letting
	// a selected target fall off the field. Callers must issue this
	// between card interactions.
	TurnRFOff() error
}

// LEDs is the badge's three-LED feedback surface.
type LEDs interface {
	SetMenu(on bool) error
	SetOK(on bool) error
	SetProfile(on bool) error
}
