// Package bridge implements the tunnelling loop that pipes PN532 frames
// between a host's USB-CDC endpoint and the controller's SPI bus,
// running one HSM instance per direction with opposite TFI discriminants.
package bridge

import (
	"log"
	"os"
	"time"

	"github.com/nedpals/pn532badge/pn532frame"
	"github.com/nedpals/pn532badge/transport"
)

// SPI command bytes the PN532 expects as the first byte of a transfer.
const (
	spiDataRead  = 0x03
	spiDataWrite = 0x01
)

// fifoFlushSize is the number of zero bytes shipped after the 0x01
// data-write prefix on a FIFO flush.
const fifoFlushSize = 64

const (
	resetPulseLow  = 100 * time.Millisecond
	resetPulseWait = 400 * time.Millisecond
)

// Bridge tunnels frames between the host and the controller. It holds
// two packet buffers: get (controller->host, TFI 0xD5) and put
// (host->controller, TFI 0xD4).
type Bridge struct {
	SPI   transport.SPI
	USB   transport.USBPort
	IRQ   transport.IRQLine
	Reset transport.GPIOPin
	Clock transport.Clock

	Logger *log.Logger

	get *pn532frame.Packet
	put *pn532frame.Packet
}

// New constructs a Bridge with fresh packet buffers in their initial
// states.
func New(spi transport.SPI, usb transport.USBPort, irq transport.IRQLine, reset transport.GPIOPin, clock transport.Clock) *Bridge {
	return &Bridge{
		SPI:    spi,
		USB:    usb,
		IRQ:    irq,
		Reset:  reset,
		Clock:  clock,
		Logger: log.New(os.Stderr, "[bridge] ", log.LstdFlags),
		get:    pn532frame.New(0, pn532frame.TFIControllerToHost),
		put:    pn532frame.New(1, pn532frame.TFIHostToController),
	}
}

// Run executes bridge iterations until active returns false. Each
// iteration drains a pending controller read burst, then drains
// whatever the host has sent; reads complete before writes within an
// iteration, matching the ordering the framing design requires.
func (b *Bridge) Run(active func() bool) error {
	for active() {
		if err := b.drainController(); err != nil {
			b.Logger.Printf("controller drain: %v", err)
		}
		if err := b.drainHost(); err != nil {
			b.Logger.Printf("host drain: %v", err)
		}
	}
	return nil
}

// drainController services a pending IRQ-signalled read burst from the
// controller, forwarding any completed frame to the host.
func (b *Bridge) drainController() error {
	asserted, err := b.IRQ.Asserted()
	if err != nil {
		return err
	}
	if !asserted {
		return nil
	}

	if _, err := b.SPI.Write([]byte{spiDataRead}); err != nil {
		return err
	}

	buf := make([]byte, 1)
	for {
		asserted, err := b.IRQ.Asserted()
		if err != nil {
			return err
		}
		if !asserted {
			return nil
		}
		if _, err := b.SPI.Read(buf); err != nil {
			return err
		}
		if res := b.get.Put(buf[0]); res > 0 {
			if _, err := b.USB.Write(b.get.Terminated()); err != nil {
				return err
			}
		}
	}
}

// drainHost services whatever bytes the host has queued on USB,
// forwarding a completed frame to the controller over SPI and handling
// the WAKEUP/FIFOFLUSH control signals along the way.
func (b *Bridge) drainHost() error {
	buf := make([]byte, 1)
	for {
		n, err := b.USB.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		switch res := b.put.Put(buf[0]); {
		case res > 0:
			b.put.SetByte(0, spiDataWrite)
			_, err := b.SPI.Write(b.put.Terminated())
			return err
		case res == pn532frame.SigWakeup:
			b.pulseReset()
		case res == pn532frame.SigFIFOFlush:
			if err := b.flushFIFO(); err != nil {
				return err
			}
		}
	}
}

func (b *Bridge) pulseReset() {
	b.Logger.Printf("wakeup detected, pulsing reset")
	_ = b.Reset.Set(false)
	b.Clock.Sleep(resetPulseLow)
	_ = b.Reset.Set(true)
	b.Clock.Sleep(resetPulseWait)
}

func (b *Bridge) flushFIFO() error {
	flush := make([]byte, fifoFlushSize+1)
	flush[0] = spiDataWrite
	_, err := b.SPI.Write(flush)
	return err
}
