package pn532frame

import "testing"

func feed(p *Packet, bytes []byte) []int {
	results := make([]int, len(bytes))
	for i, b := range bytes {
		results[i] = p.Put(b)
	}
	return results
}

// ACK/NACK are 5-byte frames: the 3-byte preamble plus LEN/LCS, complete
// as soon as LCS lands. The 0x00 conventionally sent after one is a
// postamble, not part of the counted frame, and is absorbed with no
// effect exactly like firmwareVersionFrame's trailing byte below.
func TestACKFrame(t *testing.T) {
	p := New(0, TFIControllerToHost)
	ack := []byte{0x00, 0x00, 0xFF, 0x00, 0xFF}
	results := feed(p, ack)

	completions := 0
	for i, r := range results {
		if r > 0 {
			completions++
			if i != len(ack)-1 {
				t.Fatalf("ACK completed early at byte %d, want last byte", i)
			}
			if r != len(ack) {
				t.Fatalf("completed frame length = %d, want %d", r, len(ack))
			}
		}
	}
	if completions != 1 {
		t.Fatalf("got %d completions, want exactly 1", completions)
	}
	if p.State() != StateIdle {
		t.Fatalf("state after completion = %v, want IDLE", p.State())
	}
	if r := p.Put(0x00); r != 0 {
		t.Fatalf("postamble byte produced result %d, want 0", r)
	}
}

func TestNACKFrame(t *testing.T) {
	p := New(0, TFIControllerToHost)
	nack := []byte{0x00, 0x00, 0xFF, 0xFF, 0x00}
	results := feed(p, nack)
	if results[len(results)-1] != len(nack) {
		t.Fatalf("NACK did not complete: results=%v", results)
	}
}

// firmwareVersionFrame is a GetFirmwareVersion response: TFI 0xD5,
// payload 03 32 01 06, DCS computed so TFI+payload+DCS sums to zero
// mod 256 (0xD5+0x03+0x32+0x01+0x06 = 0x111, DCS = 0x100-0x11 = 0xEF).
var firmwareVersionFrame = []byte{0x00, 0x00, 0xFF, 0x05, 0xFB, 0xD5, 0x03, 0x32, 0x01, 0x06, 0xEF}

func TestFirmwareVersionFrame_MatchingTFI(t *testing.T) {
	p := New(0, TFIControllerToHost)
	results := feed(p, firmwareVersionFrame)

	last := results[len(results)-1]
	if last != len(firmwareVersionFrame) {
		t.Fatalf("frame did not complete on final byte: results=%v", results)
	}
	for _, r := range results[:len(results)-1] {
		if r > 0 {
			t.Fatalf("frame completed early: results=%v", results)
		}
	}

	got := p.Data()
	if len(got) != len(firmwareVersionFrame) {
		t.Fatalf("Data() length = %d, want %d", len(got), len(firmwareVersionFrame))
	}

	// Trailing postamble byte is not part of the frame itself; it is
	// absorbed afterward with no effect.
	if r := p.Put(0x00); r != 0 {
		t.Fatalf("postamble byte produced result %d, want 0", r)
	}
}

func TestFirmwareVersionFrame_MismatchedTFIDiscarded(t *testing.T) {
	p := New(0, TFIHostToController)
	results := feed(p, firmwareVersionFrame)
	for _, r := range results {
		if r > 0 {
			t.Fatalf("frame with wrong TFI should never complete, got %d", r)
		}
	}
	if p.Pos() != 0 {
		t.Fatalf("pos = %d after TFI mismatch, want 0 (reset)", p.Pos())
	}
}

func TestWakeupSignal(t *testing.T) {
	p := New(1, TFIHostToController)
	seq := []byte{0x55, 0x55, 0x00, 0x00, 0x00}
	var signals int
	for _, b := range seq {
		if r := p.Put(b); r == SigWakeup {
			signals++
		}
	}
	if signals != 1 {
		t.Fatalf("got %d wakeup signals, want exactly 1", signals)
	}
}

func TestTruncatedFrameBadDCSResets(t *testing.T) {
	p := New(0, TFIControllerToHost)
	// Same prefix/length as firmwareVersionFrame but DCS corrupted.
	bad := []byte{0x00, 0x00, 0xFF, 0x05, 0xFB, 0xD5, 0x03, 0x32, 0x01, 0x06, 0xFF}
	results := feed(p, bad)
	for _, r := range results {
		if r > 0 {
			t.Fatalf("corrupted-DCS frame should never complete, got %d", r)
		}
	}
	if p.Pos() != 0 {
		t.Fatalf("pos = %d after bad DCS, want 0 (reset)", p.Pos())
	}
}

func TestSplitStreamEquivalence(t *testing.T) {
	stream := append(append([]byte{}, firmwareVersionFrame...), 0x00)

	whole := New(0, TFIControllerToHost)
	var wholeFrames []int
	for _, b := range stream {
		if r := whole.Put(b); r > 0 {
			wholeFrames = append(wholeFrames, r)
		}
	}

	for split := 1; split < len(stream); split++ {
		a := New(0, TFIControllerToHost)
		var frames []int
		for _, b := range stream[:split] {
			if r := a.Put(b); r > 0 {
				frames = append(frames, r)
			}
		}
		// Resume with a second instance carrying the same tfi and
		// discriminant from where the first left off is not directly
		// expressible without exposing internal state, so instead
		// verify the single resumable instance handles an arbitrary
		// split of calls identically to the unsplit stream by
		// continuing to feed the same instance (this is what the
		// invariant actually requires: one instance, any call
		// granularity).
		for _, b := range stream[split:] {
			if r := a.Put(b); r > 0 {
				frames = append(frames, r)
			}
		}
		if len(frames) != len(wholeFrames) {
			t.Fatalf("split at %d: got %d frames, want %d", split, len(frames), len(wholeFrames))
		}
		for i := range frames {
			if frames[i] != wholeFrames[i] {
				t.Fatalf("split at %d: frame %d = %d, want %d", split, i, frames[i], wholeFrames[i])
			}
		}
	}
}
