package clone

import (
	"log"
	"testing"

	"github.com/nedpals/pn532badge/mifare"
)

// fakeTransceiver is a deterministic transport.Transceiver double: it
// answers SAMConfiguration/InListPassiveTarget/InDataExchange commands
// the way a single present card would, authenticating a given block only
// against one correct key per sector.
type fakeTransceiver struct {
	uid          [4]byte
	sectorKeys   map[int]mifare.Key // sector -> the one key that authenticates it
	cardData     mifare.Image       // "real" card contents backing reads
	CallLog      []string
	rfOffCalls   int
	alwaysNoCard bool
}

func newFakeTransceiver(sectorKeys map[int]mifare.Key) *fakeTransceiver {
	f := &fakeTransceiver{uid: [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, sectorKeys: sectorKeys}
	for i := range f.cardData {
		f.cardData[i] = byte(i)
	}
	return f
}

func (f *fakeTransceiver) TurnRFOff() error {
	f.rfOffCalls++
	return nil
}

func (f *fakeTransceiver) Execute(cmd []byte) ([]byte, error) {
	f.CallLog = append(f.CallLog, logCmd(cmd))
	if len(cmd) == 0 {
		return nil, nil
	}
	switch cmd[0] {
	case cmdSAMConfiguration:
		return []byte{0x15, 0x00}, nil
	case cmdInListPassiveTarget:
		if f.alwaysNoCard {
			return []byte{0x00}, nil
		}
		resp := make([]byte, 11)
		resp[0] = 0x4B
		resp[1] = 0x01
		resp[2] = 0x01
		resp[3] = 0x00
		resp[4] = 0x04
		resp[5] = 0x08
		resp[6] = 0x04
		copy(resp[7:11], f.uid[:])
		return resp, nil
	case cmdInDataExchange:
		return f.handleDataExchange(cmd)
	}
	return nil, nil
}

func (f *fakeTransceiver) handleDataExchange(cmd []byte) ([]byte, error) {
	sub := cmd[2]
	block := int(cmd[3])
	switch sub {
	case byte(mifare.AuthA):
		key := mifare.Key{}
		copy(key[:], cmd[4:10])
		want, ok := f.sectorKeys[mifare.SectorOf(block)]
		if ok && key == want {
			return []byte{0x41, 0x00}, nil
		}
		return []byte{0x41, 0x14}, nil
	case 0x30: // read
		resp := make([]byte, 18)
		resp[0] = 0x41
		resp[1] = 0x00
		copy(resp[2:18], f.cardData.Block(block))
		return resp, nil
	case 0xA0: // write
		copy(f.cardData.Block(block), cmd[4:20])
		return []byte{0x41, 0x00}, nil
	}
	return nil, nil
}

func logCmd(cmd []byte) string {
	if len(cmd) == 0 {
		return "<empty>"
	}
	return string(rune(cmd[0]))
}

func alwaysActive() bool { return true }

func TestRunPass_FactoryKeyOnly(t *testing.T) {
	keys := map[int]mifare.Key{}
	factory := mifare.Dictionary[0]
	for s := 0; s < 16; s++ {
		keys[s] = factory
	}
	fake := newFakeTransceiver(keys)
	var img mifare.Image

	e := NewEngine(fake, &img, nil, log.New(discard{}, "", 0))
	if err := e.RunPass(Read, alwaysActive); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if !e.Done() {
		t.Fatal("Done() = false, want true after a full pass")
	}

	trailer := img.Block(3)
	if trailer[0] != factory[0] {
		t.Errorf("trailer Key A[0] = %X, want %X", trailer[0], factory[0])
	}
	want := mifare.FabricateTrailer(factory)
	for i, b := range trailer {
		if b != want[i] {
			t.Fatalf("trailer block 3 byte %d = %X, want %X", i, b, want[i])
		}
	}

	block0 := img.Block(0)
	for i, b := range block0 {
		if b != fake.cardData.Block(0)[i] {
			t.Fatalf("block 0 byte %d = %X, want %X", i, b, fake.cardData.Block(0)[i])
		}
	}

	for _, unreadable := range e.Unreadable {
		if unreadable {
			t.Fatal("no block should be marked unreadable when every sector authenticates")
		}
	}
}

func TestRunPass_KeyRotationAdvancesMonotonically(t *testing.T) {
	keys := map[int]mifare.Key{}
	factory := mifare.Dictionary[0]
	sector2Key := mifare.Dictionary[7]
	for s := 0; s < 16; s++ {
		keys[s] = factory
	}
	keys[2] = sector2Key

	fake := newFakeTransceiver(keys)
	var img mifare.Image
	e := NewEngine(fake, &img, nil, log.New(discard{}, "", 0))

	if err := e.RunPass(Read, alwaysActive); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if !e.Done() {
		t.Fatal("Done() = false, want true")
	}

	trailer := img.Block(11) // sector 2's trailer block (2*4+3)
	if trailer[0] != sector2Key[0] || trailer[1] != sector2Key[1] {
		t.Fatalf("sector 2 trailer Key A = % X, want % X", trailer[0:6], sector2Key)
	}
}

func TestRunPass_DictionaryExhaustionMarksUnreadable(t *testing.T) {
	fake := newFakeTransceiver(map[int]mifare.Key{}) // no key ever matches
	var img mifare.Image
	e := NewEngine(fake, &img, nil, log.New(discard{}, "", 0))

	if err := e.RunPass(Read, alwaysActive); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if e.Done() {
		t.Fatal("Done() = true, want false when every block is unreadable")
	}
	for i, unreadable := range e.Unreadable {
		if !unreadable {
			t.Fatalf("block %d not marked unreadable", i)
		}
	}
}

func TestRunPass_StopsWhenModeLeaves(t *testing.T) {
	fake := newFakeTransceiver(map[int]mifare.Key{0: mifare.Dictionary[0]})
	var img mifare.Image
	e := NewEngine(fake, &img, nil, log.New(discard{}, "", 0))

	calls := 0
	active := func() bool {
		calls++
		return calls <= 2
	}
	if err := e.RunPass(Read, active); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if e.block >= mifare.Blocks {
		t.Fatal("pass should have been cut short by active() returning false")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
