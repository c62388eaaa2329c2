package main

import (
	"time"

	"github.com/nedpals/pn532badge/nfcerr"
	"github.com/nedpals/pn532badge/pn532frame"
	"github.com/nedpals/pn532badge/transport"
)

// spiTransceiver realizes the Transceiver external contract (spec §4.1)
// directly against the PN532's SPI bus: it builds a standard command
// frame, writes it, waits out the controller's ACK, then polls IRQ for
// the response frame and hands it back through the HSM. clone.Engine uses
// this when main_menu is CLONE; bridge.Bridge talks to the same SPI bus
// at a lower level (raw byte tunnelling) when main_menu is BRIDGE, so the
// two are never driven concurrently.
type spiTransceiver struct {
	spi   transport.SPI
	irq   transport.IRQLine
	clock transport.Clock

	out *pn532frame.Packet
	in  *pn532frame.Packet
}

func newSPITransceiver(spi transport.SPI, irq transport.IRQLine, clock transport.Clock) *spiTransceiver {
	return &spiTransceiver{
		spi:   spi,
		irq:   irq,
		clock: clock,
		out:   pn532frame.New(1, pn532frame.TFIHostToController),
		in:    pn532frame.New(0, pn532frame.TFIControllerToHost),
	}
}

const spiDataWrite = 0x01
const spiDataRead = 0x03

// Execute sends a command buffer (opcode plus arguments, no TFI) and
// returns the controller's response data (opcode echo plus results,
// with TFI/checksum/framing already stripped).
func (t *spiTransceiver) Execute(cmd []byte) ([]byte, error) {
	t.out.Reset()
	frame, err := buildCommandFrame(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := t.spi.Write(append([]byte{spiDataWrite}, frame...)); err != nil {
		return nil, nfcerr.Wrap(nfcerr.CodeTransceive, "spiTransceiver.Execute", "write command frame", err)
	}

	if err := t.awaitACK(); err != nil {
		return nil, err
	}
	return t.awaitResponse()
}

// TurnRFOff issues RFConfiguration(CfgItem=0x01, RF=0x00).
func (t *spiTransceiver) TurnRFOff() error {
	_, err := t.Execute([]byte{0x32, 0x01, 0x00})
	return err
}

func (t *spiTransceiver) awaitACK() error {
	t.in.Reset()
	return t.pollFrame(50 * time.Millisecond)
}

func (t *spiTransceiver) awaitResponse() ([]byte, error) {
	t.in.Reset()
	if err := t.pollFrame(1 * time.Second); err != nil {
		return nil, err
	}
	data := t.in.Data()
	// data is the full assembled frame: preamble (3 bytes) + LEN + LCS +
	// TFI + PD0..PDn + DCS. Callers (clone.Engine) address response
	// fields relative to the opcode echo at PD0, matching the original's
	// data[0]==response opcode convention, so strip the preamble/LEN/
	// LCS/TFI prefix and the trailing DCS here.
	payloadStart := t.in.Reserved() + 6
	if len(data) < payloadStart+1 {
		return nil, nfcerr.New(nfcerr.CodeFrameMalformed, "spiTransceiver.awaitResponse", "short response frame")
	}
	return data[payloadStart : len(data)-1], nil
}

// pollFrame reads the controller one byte at a time while IRQ is
// asserted, feeding the shared HSM until a full frame or an error
// deadline elapses.
func (t *spiTransceiver) pollFrame(timeout time.Duration) error {
	if _, err := t.spi.Write([]byte{spiDataRead}); err != nil {
		return nfcerr.Wrap(nfcerr.CodeTransceive, "spiTransceiver.pollFrame", "write data-read prefix", err)
	}

	deadline := t.clock.Now().Add(timeout)
	buf := make([]byte, 1)
	for t.clock.Now().Before(deadline) {
		asserted, err := t.irq.Asserted()
		if err != nil {
			return nfcerr.Wrap(nfcerr.CodeTransceive, "spiTransceiver.pollFrame", "read irq", err)
		}
		if !asserted {
			continue
		}
		if _, err := t.spi.Read(buf); err != nil {
			return nfcerr.Wrap(nfcerr.CodeTransceive, "spiTransceiver.pollFrame", "read spi byte", err)
		}
		if res := t.in.Put(buf[0]); res > 0 {
			return nil
		}
	}
	return nfcerr.New(nfcerr.CodeNoCard, "spiTransceiver.pollFrame", "timed out waiting for controller frame")
}

// buildCommandFrame wraps cmd (opcode + args) in the standard PN532
// frame: preamble, start code, LEN/LCS, TFI, data, DCS, postamble.
func buildCommandFrame(cmd []byte) ([]byte, error) {
	if len(cmd) > 0xFE {
		return nil, nfcerr.New(nfcerr.CodeUnsupportedExtendedFrame, "buildCommandFrame", "command too long for a standard frame")
	}
	length := byte(len(cmd) + 1) // + TFI
	lcs := byte(0x100 - int(length))

	frame := make([]byte, 0, 7+len(cmd))
	frame = append(frame, 0x00, 0x00, 0xFF, length, lcs, pn532frame.TFIHostToController)
	frame = append(frame, cmd...)

	sum := int(pn532frame.TFIHostToController)
	for _, b := range cmd {
		sum += int(b)
	}
	dcs := byte(0x100 - (sum & 0xFF))
	frame = append(frame, dcs, 0x00)
	return frame, nil
}
