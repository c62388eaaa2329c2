// Package hwmock provides deterministic, in-memory fakes for every
// interface in package transport, so the framing, clone, bridge, and
// supervisor packages can be exercised without real SPI/GPIO/USB
// hardware.
package hwmock

import (
	"sync"
	"time"

	"github.com/nedpals/pn532badge/transport"
)

// ByteLink is a deterministic transport.ByteTransceiver: writes are
// recorded verbatim in Writes, and reads are served from an injectable
// queue of byte slices via Feed.
type ByteLink struct {
	mu      sync.Mutex
	Writes  [][]byte
	queue   []byte
	closed  bool
	WriteErr error
	ReadErr  error
}

// NewByteLink returns an empty ByteLink.
func NewByteLink() *ByteLink { return &ByteLink{} }

// Feed appends bytes to the read queue a subsequent Read will drain.
func (b *ByteLink) Feed(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, data...)
}

func (b *ByteLink) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteErr != nil {
		return 0, b.WriteErr
	}
	cp := append([]byte(nil), data...)
	b.Writes = append(b.Writes, cp)
	return len(data), nil
}

func (b *ByteLink) Read(buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReadErr != nil {
		return 0, b.ReadErr
	}
	n := copy(buf, b.queue)
	b.queue = b.queue[n:]
	return n, nil
}

func (b *ByteLink) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *ByteLink) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// AllWritten concatenates every recorded Write call, in order.
func (b *ByteLink) AllWritten() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []byte
	for _, w := range b.Writes {
		out = append(out, w...)
	}
	return out
}

// GPIOPin is a settable/readable transport.GPIOPin fake.
type GPIOPin struct {
	mu      sync.Mutex
	level   bool
	History []bool
}

func (p *GPIOPin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = high
	p.History = append(p.History, high)
	return nil
}

func (p *GPIOPin) Get() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

// IRQLine is a settable transport.IRQLine fake.
type IRQLine struct {
	mu       sync.Mutex
	asserted bool
}

// SetAsserted controls what Asserted() reports next.
func (l *IRQLine) SetAsserted(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.asserted = v
}

func (l *IRQLine) Asserted() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.asserted, nil
}

// Clock is a transport.Clock fake that records requested sleeps instead
// of actually waiting, so tests run instantly.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	Slept  []time.Duration
}

// NewClock returns a Clock seeded at an arbitrary fixed instant.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Slept = append(c.Slept, d)
	c.now = c.now.Add(d)
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// LEDs is a transport.LEDs fake recording the latest and historical
// on/off state of each of the three LEDs.
type LEDs struct {
	mu                    sync.Mutex
	Menu, OK, Profile     bool
	MenuLog, OKLog, PrLog []bool
}

func (l *LEDs) SetMenu(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Menu = on
	l.MenuLog = append(l.MenuLog, on)
	return nil
}

func (l *LEDs) SetOK(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.OK = on
	l.OKLog = append(l.OKLog, on)
	return nil
}

func (l *LEDs) SetProfile(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Profile = on
	l.PrLog = append(l.PrLog, on)
	return nil
}

// Transceiver is a configurable transport.Transceiver fake: Func
// computes the response for a given command, defaulting to an empty
// success response when unset.
type Transceiver struct {
	mu         sync.Mutex
	Func       func(cmd []byte) ([]byte, error)
	CallLog    [][]byte
	RFOffCalls int
	RFOffErr   error
}

func (t *Transceiver) Execute(cmd []byte) ([]byte, error) {
	t.mu.Lock()
	t.CallLog = append(t.CallLog, append([]byte(nil), cmd...))
	fn := t.Func
	t.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(cmd)
}

func (t *Transceiver) TurnRFOff() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RFOffCalls++
	return t.RFOffErr
}

// ButtonSource is a test-driven transport.ButtonSource: Push enqueues an
// edge for the consumer's Edges() channel.
type ButtonSource struct {
	ch chan transport.ButtonEdge
}

// NewButtonSource returns a ButtonSource with reasonable channel
// capacity for test scenarios.
func NewButtonSource() *ButtonSource {
	return &ButtonSource{ch: make(chan transport.ButtonEdge, 16)}
}

// Push enqueues a button edge.
func (b *ButtonSource) Push(edge transport.ButtonEdge) {
	b.ch <- edge
}

func (b *ButtonSource) Edges() <-chan transport.ButtonEdge {
	return b.ch
}
