// Package ui implements the badge's operator-facing feedback: LED state
// driven by the mode supervisor, and the block-dump printer used when the
// Profile button is pressed.
package ui

import (
	"fmt"
	"io"

	"github.com/nedpals/pn532badge/mifare"
	"github.com/nedpals/pn532badge/supervisor"
	"github.com/nedpals/pn532badge/transport"
)

// Feedback drives LEDs from the supervisor's current mode on every tick.
// Menu is lit for BRIDGE, OK for CLONE/READ and CLONE/WRITE; Profile is lit
// only while a dump is in progress, during which Tick leaves Menu and OK as
// they were.
type Feedback struct {
	LEDs       transport.LEDs
	Supervisor *supervisor.Supervisor

	dumping bool
}

// NewFeedback returns a Feedback wired to leds and sup.
func NewFeedback(leds transport.LEDs, sup *supervisor.Supervisor) *Feedback {
	return &Feedback{LEDs: leds, Supervisor: sup}
}

// Tick refreshes LED state for the supervisor's current mode. Call it
// periodically from the same loop that polls buttons.
func (f *Feedback) Tick() error {
	if f.dumping {
		return nil
	}
	bridge := f.Supervisor.MainMenu() == supervisor.Bridge
	if err := f.LEDs.SetMenu(bridge); err != nil {
		return err
	}
	if err := f.LEDs.SetOK(!bridge); err != nil {
		return err
	}
	return f.LEDs.SetProfile(false)
}

// BeginDump and EndDump bracket a profile dump so Tick doesn't fight the
// Profile LED while one is printing.
func (f *Feedback) BeginDump() error {
	f.dumping = true
	return f.LEDs.SetProfile(true)
}

func (f *Feedback) EndDump() error {
	f.dumping = false
	return f.LEDs.SetProfile(false)
}

// DumpBlocks prints every block of image in runs of 16 bytes per row,
// annotating trailer blocks, the layout the original firmware's
// rfid_hexdump/dump_mifare_card pair produced adapted to the 64x16 card
// image shape this spec uses instead of the original's 80-byte scratch
// payload.
func DumpBlocks(w io.Writer, image *mifare.Image) {
	for b := 0; b < mifare.Blocks; b++ {
		block := image.Block(b)
		marker := "  "
		if mifare.IsTrailer(b) {
			marker = " *"
		}
		fmt.Fprintf(w, "Block %2d%s:", b, marker)
		for i, v := range block {
			if i != 0 && i%4 == 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, " %02X", v)
		}
		fmt.Fprintf(w, " [sector=%d]\n", mifare.SectorOf(b))
	}
}

// DefaultUIDPayload seeds a 16-byte emulation payload block from a
// device's own UID, the way the original firmware's boot path memorized
// its IAP UID into payload[UIDPROFILE]. This repo doesn't implement card
// emulation (spec.md scopes that out); the helper exists so a future
// emulation dispatcher has a ready-made seed.
func DefaultUIDPayload(deviceUID [4]byte) [16]byte {
	var payload [16]byte
	copy(payload[:], deviceUID[:])
	return payload
}
