// Package clone implements the per-block authenticated read/write engine
// that clones a MIFARE Classic card into an in-memory image, or writes a
// captured image back onto a blank card. It tries each sector against a
// rotating key dictionary and fabricates a permissive sector trailer on
// capture so the clone is itself writable.
package clone

import (
	"log"
	"os"

	"github.com/nedpals/pn532badge/mifare"
	"github.com/nedpals/pn532badge/transport"
)

// PN532 opcodes the engine issues through the Transceiver.
const (
	cmdSAMConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInListPassiveTarget = 0x4A
	cmdInDataExchange      = 0x40
)

// Submode selects whether a pass reads a card into the image or writes
// the image back onto a card.
type Submode int

const (
	Read Submode = iota
	Write
)

func (s Submode) String() string {
	if s == Write {
		return "WRITE"
	}
	return "READ"
}

// Engine runs one clone/write pass at a time against a Transceiver. It
// holds no goroutines of its own; RunPass blocks until the pass
// completes or active returns false.
type Engine struct {
	T          transport.Transceiver
	Image      *mifare.Image
	Dictionary []mifare.Key
	Logger     *log.Logger

	// Unreadable marks blocks whose entire dictionary was exhausted
	// against a present card without a successful authentication.
	Unreadable [mifare.Blocks]bool

	block    int
	keyIndex int
	tries    int
	done     bool
}

// NewEngine constructs an Engine. dict defaults to mifare.Dictionary when
// nil. logger defaults to a discard-free stderr logger tagged "clone"
// when nil.
func NewEngine(t transport.Transceiver, image *mifare.Image, dict []mifare.Key, logger *log.Logger) *Engine {
	if dict == nil {
		dict = mifare.Dictionary
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[clone] ", log.LstdFlags)
	}
	return &Engine{T: t, Image: image, Dictionary: dict, Logger: logger}
}

// Done reports whether the most recent pass (read or write) completed
// every block: the pass authenticated block 63 and no block along the way
// was marked Unreadable.
func (e *Engine) Done() bool { return e.done && !e.anyUnreadable() }

func (e *Engine) anyUnreadable() bool {
	for _, unreadable := range e.Unreadable {
		if unreadable {
			return true
		}
	}
	return false
}

// RunPass drives one full pass of the algorithm: iterate blocks 0-63,
// authenticate with key rotation, then read or write per submode.
// active is polled at the top of every iteration (and should reflect the
// mode supervisor's current submode) so the pass can be cooperatively
// cancelled when the operator changes mode.
func (e *Engine) RunPass(submode Submode, active func() bool) error {
	e.block = 0
	e.keyIndex = 0
	e.tries = 0
	e.done = false
	for i := range e.Unreadable {
		e.Unreadable[i] = false
	}

	for e.block < mifare.Blocks && active() {
		if _, err := e.T.Execute([]byte{cmdSAMConfiguration, 0x01}); err != nil {
			e.Logger.Printf("SAMConfiguration: %v", err)
		}

		if e.tries >= len(e.Dictionary) {
			e.Unreadable[e.block] = true
			e.block++
			e.tries = 0
			e.turnRFOff()
			continue
		}

		e.stepBlock(submode)
		e.turnRFOff()
	}

	return nil
}

func (e *Engine) turnRFOff() {
	if err := e.T.TurnRFOff(); err != nil {
		e.Logger.Printf("turn_rf_off: %v", err)
	}
}

func (e *Engine) stepBlock(submode Submode) {
	target, err := e.T.Execute([]byte{cmdInListPassiveTarget, 0x01, 0x00})
	if err != nil {
		e.Logger.Printf("InListPassiveTarget: %v", err)
		return
	}
	if !validTarget(target) {
		return
	}
	var uid [4]byte
	copy(uid[:], target[7:11])
	if e.block == 0 {
		e.Logger.Printf("card UID: % X, family: %s", uid, mifare.ClassifyTarget(target))
	}

	auth := buildAuthCommand(e.block, e.Dictionary[e.keyIndex], uid)
	resp, err := e.T.Execute(auth)
	if err != nil {
		e.Logger.Printf("InDataExchange(auth): %v", err)
		return
	}
	if len(resp) < 2 {
		return
	}

	switch {
	case resp[0] == 0x41 && resp[1] == 0x00:
		e.tries = 0
		e.applySuccessfulAuth(submode, e.Dictionary[e.keyIndex])
		if e.block == mifare.Blocks-1 {
			e.done = true
		}
		e.block++
	case resp[0] == 0x41 && resp[1] == 0x14:
		e.keyIndex = (e.keyIndex + 1) % len(e.Dictionary)
		e.tries++
	}
}

func (e *Engine) applySuccessfulAuth(submode Submode, key mifare.Key) {
	switch submode {
	case Read:
		resp, err := e.T.Execute([]byte{cmdInDataExchange, 0x01, 0x30, byte(e.block)})
		if err != nil {
			e.Logger.Printf("InDataExchange(read): %v", err)
			return
		}
		if len(resp) != 18 {
			return
		}
		copy(e.Image.Block(e.block), resp[2:18])
		if mifare.IsTrailer(e.block) {
			trailer := mifare.FabricateTrailer(key)
			copy(e.Image.Block(e.block), trailer[:])
		}
	case Write:
		cmd := make([]byte, 20)
		cmd[0] = cmdInDataExchange
		cmd[1] = 0x01
		cmd[2] = 0xA0
		cmd[3] = byte(e.block)
		copy(cmd[4:20], e.Image.Block(e.block))
		if _, err := e.T.Execute(cmd); err != nil {
			e.Logger.Printf("InDataExchange(write): %v", err)
		}
	}
}

// validTarget reports whether an InListPassiveTarget response names a
// MIFARE-compatible 4-byte-UID target: at least 11 bytes, ATQA high byte
// zero, and a UID length of at least 4.
func validTarget(resp []byte) bool {
	return len(resp) >= 11 && resp[3] == 0x00 && resp[6] >= 0x04
}

func buildAuthCommand(block int, key mifare.Key, uid [4]byte) []byte {
	cmd := make([]byte, 14)
	cmd[0] = cmdInDataExchange
	cmd[1] = 0x01
	cmd[2] = byte(mifare.AuthA)
	cmd[3] = byte(block)
	copy(cmd[4:10], key[:])
	copy(cmd[10:14], uid[:])
	return cmd
}
