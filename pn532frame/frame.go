// Package pn532frame implements the resumable PN532 host-framing state
// machine: a byte-at-a-time parser that classifies and reassembles
// standard, ACK, NACK, and wakeup/flow-control frames on a half-duplex
// link, with TFI discrimination so one parser instance only ever
// completes frames travelling in its own direction.
package pn532frame

import "github.com/nedpals/pn532badge/nfcerr"

// MAX is the packet buffer's capacity: 264 payload bytes plus 11 bytes of
// framing overhead.
const MAX = 275

// TFI values distinguishing host->controller frames from
// controller->host frames.
const (
	TFIHostToController = 0xD4
	TFIControllerToHost = 0xD5
)

// State is the HSM's tagged state. Every non-completion state is zero or
// negative, the same convention the source enum uses (STATE_IDLE=0,
// STATE_PREFIX=-1, ... STATE_FLOWCTRL=-7), so that Put's "res > 0" test
// uniquely identifies a completed frame and is never confused with an
// intermediate transition. WAKEUP and FIFOFLUSH reuse their
// control-signal values directly, since Put assigns state := res verbatim
// whenever res is negative.
type State int

const (
	StateIdle        State = 0
	StatePrefix      State = -1
	StatePrefixExt   State = -2
	StateWakeup      State = SigWakeup
	StateFIFOFlush   State = SigFIFOFlush
	StatePayload     State = -6
	StateFlowControl State = -7
)

// Control signals returned by Put.
const (
	SigWakeup    = -4
	SigFIFOFlush = -5
)

// Packet is the fixed-capacity scratch buffer and parser state for one
// direction of the PN532 link. A Bridge loop holds two: one per
// direction, each with its own tfi.
type Packet struct {
	reserved int
	tfi      byte
	pos      int
	expected int
	dataPrev byte
	wakeup   int
	crc      byte
	state    State
	data     [MAX]byte
}

// New returns an initialized Packet for the given reserved-byte count and
// TFI discriminant.
func New(reserved int, tfi byte) *Packet {
	p := &Packet{}
	p.Init(reserved, tfi)
	return p
}

// Init zeroes the packet then sets reserved, tfi, and the data_prev
// sentinel so the first byte fed can never false-trigger the 0x00/0xFF
// prefix scan.
func (p *Packet) Init(reserved int, tfi byte) {
	*p = Packet{}
	p.reserved = reserved
	p.tfi = tfi
	p.dataPrev = 0x01
	p.state = StateIdle
}

// Reset re-initializes the packet with its existing (reserved, tfi).
func (p *Packet) Reset() {
	p.Init(p.reserved, p.tfi)
}

// State returns the parser's current state.
func (p *Packet) State() State { return p.state }

// Pos returns the number of bytes currently held.
func (p *Packet) Pos() int { return p.pos }

// Data returns the frame bytes assembled so far: data[0:Pos()]. Valid
// only immediately after a positive Put result, before the next Put call
// resets the buffer.
func (p *Packet) Data() []byte { return p.data[:p.pos] }

// Reserved returns the reserved leading-byte count this packet was
// constructed with.
func (p *Packet) Reserved() int { return p.reserved }

// Terminated returns data[0:Pos()+1] with a trailing 0x00 framing
// terminator written at data[Pos()]. Bridge loops use this to build the
// byte run they ship to the opposite transport after a completed frame.
func (p *Packet) Terminated() []byte {
	end := p.pos + 1
	if end > MAX {
		end = MAX
	}
	p.data[p.pos] = 0x00
	return p.data[:end]
}

// SetByte overwrites data[i], for the reserved leading bytes a bridge
// fills in after the fact (e.g. the SPI "data write" prefix 0x01 at
// data[0] when reserved == 1). i must be less than Reserved().
func (p *Packet) SetByte(i int, b byte) {
	if i < p.reserved {
		p.data[i] = b
	}
}

func (p *Packet) append(b byte) {
	if p.pos < MAX {
		p.data[p.pos] = b
	}
	p.pos++
}

// Put consumes one byte and returns:
//
//	> 0  a complete frame was assembled; the caller reads Data() (pos bytes).
//	  0  byte absorbed, parser idle (StateIdle), no event.
//	< 0  the negative State just entered: SigWakeup and SigFIFOFlush are
//	     control signals for the caller; the other negative values mark a
//	     frame still being received.
func (p *Packet) Put(b byte) int {
	res := p.step(b)
	p.dataPrev = b
	if res > 0 {
		p.state = StateIdle
	} else {
		p.state = State(res)
	}
	return res
}

func (p *Packet) step(b byte) int {
	switch p.state {
	case StateWakeup:
		// Falls through to IDLE handling: the byte that follows a
		// reported wakeup is processed as if freshly idle.
		return p.stepIdle(b)
	case StateIdle:
		return p.stepIdle(b)
	case StateFlowControl:
		return p.stepFlowControl(b)
	case StatePrefix:
		return p.stepPrefix(b)
	case StatePayload:
		return p.stepPayload(b)
	case StatePrefixExt:
		p.Reset()
		return int(StateIdle)
	default:
		p.Reset()
		return int(StateIdle)
	}
}

func (p *Packet) stepIdle(b byte) int {
	if p.pos != 0 {
		p.Reset()
		return 0
	}

	if b == 0xFF && p.dataPrev == 0x00 {
		off := p.reserved
		p.data[off] = 0x00
		p.data[off+1] = 0x00
		p.data[off+2] = 0xFF
		p.pos = off + 3
		p.expected = p.pos + 2
		return int(StateFlowControl)
	}

	if b == 0x55 && p.dataPrev == 0x55 {
		p.wakeup = 3
	} else if p.wakeup != 0 {
		if b != 0 {
			p.wakeup = 0
		} else {
			p.wakeup--
			if p.wakeup == 0 {
				return SigWakeup
			}
		}
	}

	return int(StateIdle)
}

func (p *Packet) stepFlowControl(b byte) int {
	p.append(b)
	if p.pos < p.expected {
		return int(StateFlowControl)
	}

	length := p.data[p.pos-2]
	lcs := p.data[p.pos-1]

	switch {
	case length == 0xFF && lcs == 0xFF:
		p.expected += 4
		return int(StatePrefixExt)
	case length == 0xFF && lcs == 0x00:
		return p.pos
	case length == 0x00 && lcs == 0xFF:
		return p.pos
	default:
		p.expected++
		return int(StatePrefix)
	}
}

func (p *Packet) stepPrefix(b byte) int {
	p.append(b)
	if p.pos < p.expected {
		return int(StatePrefix)
	}

	length := p.data[p.pos-3]
	lcs := p.data[p.pos-2]
	tfiByte := p.data[p.pos-1]

	if byte(length+lcs) == 0 {
		if length == 0x01 && lcs == 0xFF {
			p.expected++
			p.crc = tfiByte
			return int(StatePayload)
		}
		p.expected += int(length)
		if p.expected > MAX {
			p.Reset()
			return int(StateIdle)
		}
		if tfiByte != p.tfi {
			p.Reset()
			return int(StateIdle)
		}
		p.crc = p.tfi
		return int(StatePayload)
	}

	p.Reset()
	return int(StateIdle)
}

func (p *Packet) stepPayload(b byte) int {
	p.append(b)
	p.crc = byte(int(p.crc) + int(b))
	if p.pos < p.expected {
		return int(StatePayload)
	}
	if p.crc == 0 {
		return p.pos
	}
	p.Reset()
	return int(StateIdle)
}

// Err maps a negative Put result into a typed error; callers only need
// this for logging, since every framing error is locally recovered by
// resetting the buffer.
func Err(signal int) error {
	switch State(signal) {
	case StateWakeup:
		return nfcerr.New(nfcerr.CodeFrameMalformed, "pn532frame.Put", "unexpected wakeup signal treated as error")
	case StateFIFOFlush:
		return nfcerr.New(nfcerr.CodeFrameMalformed, "pn532frame.Put", "unexpected FIFO flush signal treated as error")
	default:
		return nfcerr.New(nfcerr.CodeInvariantViolation, "pn532frame.Put", "unrecognised control signal")
	}
}
