// Package periphhw adapts periph.io's SPI port and GPIO pin abstractions
// to the transport package's interfaces, the way
// other_examples/0bb2de20_EdgxCloud-EdgeFlow's PN532 executor and
// google-periph's host/sysfs drivers open SPI/GPIO off devfs.
package periphhw

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/nedpals/pn532badge/transport"
)

// Init loads every driver periph.io/x/host/v3 knows about. Call this once
// before opening any bus or pin.
func Init() error {
	_, err := host.Init()
	return err
}

// SPIPort wraps a periph.io spi.Conn as a transport.SPI. PN532 SPI framing
// is half-duplex byte-oriented, so Write/Read each perform a short
// single-direction Tx.
type SPIPort struct {
	conn spi.Conn
	port spi.PortCloser
}

// OpenSPI opens busName (e.g. "/dev/spidev0.0", or "" for periph's
// default) at the PN532's maximum SPI clock and mode 0.
func OpenSPI(busName string) (*SPIPort, error) {
	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("periphhw: open spi %q: %w", busName, err)
	}
	conn, err := port.Connect(2*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("periphhw: connect spi %q: %w", busName, err)
	}
	return &SPIPort{conn: conn, port: port}, nil
}

func (s *SPIPort) Write(data []byte) (int, error) {
	if err := s.conn.Tx(data, nil); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (s *SPIPort) Read(buf []byte) (int, error) {
	if err := s.conn.Tx(nil, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (s *SPIPort) Close() error {
	return s.port.Close()
}

// Pin wraps a periph.io gpio.PinIO as a transport.GPIOPin.
type Pin struct {
	pin gpio.PinIO
}

// OpenPin looks up a GPIO pin by its periph.io name (e.g. "GPIO17").
func OpenPin(name string) (*Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periphhw: no such gpio pin %q", name)
	}
	return &Pin{pin: p}, nil
}

func (p *Pin) Set(high bool) error {
	level := gpio.Low
	if high {
		level = gpio.High
	}
	return p.pin.Out(level)
}

func (p *Pin) Get() (bool, error) {
	if err := p.pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return false, err
	}
	return p.pin.Read() == gpio.High, nil
}

// IRQLine wraps a periph.io gpio.PinIO configured as an active-low
// interrupt request line.
type IRQLine struct {
	pin gpio.PinIO
}

// OpenIRQ looks up and configures name as a falling-edge IRQ input.
func OpenIRQ(name string) (*IRQLine, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periphhw: no such gpio pin %q", name)
	}
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("periphhw: configure irq pin %q: %w", name, err)
	}
	return &IRQLine{pin: p}, nil
}

func (i *IRQLine) Asserted() (bool, error) {
	return i.pin.Read() == gpio.Low, nil
}

var _ transport.SPI = (*SPIPort)(nil)
var _ transport.GPIOPin = (*Pin)(nil)
var _ transport.IRQLine = (*IRQLine)(nil)

// LEDs wraps three periph.io output pins as transport.LEDs.
type LEDs struct {
	Menu, OK, Profile gpio.PinIO
}

// OpenLEDs looks up the three named output pins.
func OpenLEDs(menu, ok, profile string) (*LEDs, error) {
	names := map[string]string{"menu": menu, "ok": ok, "profile": profile}
	pins := make(map[string]gpio.PinIO, 3)
	for role, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("periphhw: no such gpio pin %q for %s LED", name, role)
		}
		pins[role] = p
	}
	return &LEDs{Menu: pins["menu"], OK: pins["ok"], Profile: pins["profile"]}, nil
}

func setLevel(pin gpio.PinIO, on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	return pin.Out(level)
}

func (l *LEDs) SetMenu(on bool) error    { return setLevel(l.Menu, on) }
func (l *LEDs) SetOK(on bool) error      { return setLevel(l.OK, on) }
func (l *LEDs) SetProfile(on bool) error { return setLevel(l.Profile, on) }

var _ transport.LEDs = (*LEDs)(nil)

// ButtonSource waits on the edge detection of three periph.io input pins
// and emits transport.ButtonEdge values on falling edges (buttons wired
// active-low with a pull-up, matching the original firmware's PIOx
// WAKEUP IRQ handlers).
type ButtonSource struct {
	menu, ok, profile gpio.PinIO
	ch                chan transport.ButtonEdge
	stop              chan struct{}
}

// OpenButtons looks up the three named input pins, configuring each as a
// falling-edge input. Call Run to start forwarding edges.
func OpenButtons(menu, ok, profile string) (*ButtonSource, error) {
	lookup := func(name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("periphhw: no such gpio pin %q for button", name)
		}
		if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("periphhw: configure button pin %q: %w", name, err)
		}
		return p, nil
	}
	menuPin, err := lookup(menu)
	if err != nil {
		return nil, err
	}
	okPin, err := lookup(ok)
	if err != nil {
		return nil, err
	}
	profilePin, err := lookup(profile)
	if err != nil {
		return nil, err
	}
	return &ButtonSource{
		menu:    menuPin,
		ok:      okPin,
		profile: profilePin,
		ch:      make(chan transport.ButtonEdge, 8),
		stop:    make(chan struct{}),
	}, nil
}

// Run blocks, waiting on each pin's edge detection and forwarding button
// presses to Edges() until Stop is called.
func (b *ButtonSource) Run() {
	type watched struct {
		pin  gpio.PinIO
		edge transport.ButtonEdge
	}
	pins := []watched{
		{b.menu, transport.ButtonMenu},
		{b.ok, transport.ButtonOK},
		{b.profile, transport.ButtonProfile},
	}
	for _, w := range pins {
		go func(pin gpio.PinIO, edge transport.ButtonEdge) {
			for {
				select {
				case <-b.stop:
					return
				default:
				}
				if pin.WaitForEdge(-1) {
					select {
					case b.ch <- edge:
					case <-b.stop:
						return
					}
				}
			}
		}(w.pin, w.edge)
	}
}

// Stop signals the goroutines started by Run to exit. A goroutine blocked
// waiting for an edge exits only after that wait returns.
func (b *ButtonSource) Stop() { close(b.stop) }

func (b *ButtonSource) Edges() <-chan transport.ButtonEdge { return b.ch }

var _ transport.ButtonSource = (*ButtonSource)(nil)

// RealClock is a transport.Clock backed by the wall clock. There's no
// periph.io or pack library for this; time.Sleep/time.Now are the
// standard library's own job.
type RealClock struct{}

func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }
func (RealClock) Now() time.Time        { return time.Now() }

var _ transport.Clock = RealClock{}
