package mifare

import "testing"

func TestIsTrailer(t *testing.T) {
	tests := []struct {
		block int
		want  bool
	}{
		{0, false}, {1, false}, {2, false}, {3, true},
		{4, false}, {7, true}, {63, true}, {60, false},
	}
	for _, tt := range tests {
		if got := IsTrailer(tt.block); got != tt.want {
			t.Errorf("IsTrailer(%d) = %v, want %v", tt.block, got, tt.want)
		}
	}
}

func TestFabricateTrailer(t *testing.T) {
	key := Key{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	trailer := FabricateTrailer(key)

	if got := trailer[0:6]; !equalBytes(got, key[:]) {
		t.Errorf("Key A = % X, want % X", got, key[:])
	}
	if got, want := trailer[6:10], []byte{0xFF, 0x07, 0x80, 0x69}; !equalBytes(got, want) {
		t.Errorf("Access bytes = % X, want % X", got, want)
	}
	if got, want := trailer[10:16], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}; !equalBytes(got, want) {
		t.Errorf("Key B = % X, want % X", got, want)
	}
}

func TestDictionaryStartsWithFactoryDefault(t *testing.T) {
	if len(Dictionary) != 25 {
		t.Fatalf("len(Dictionary) = %d, want 25", len(Dictionary))
	}
	want := Key{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if Dictionary[0] != want {
		t.Errorf("Dictionary[0] = % X, want % X", Dictionary[0], want)
	}
	zero := Key{0, 0, 0, 0, 0, 0}
	found := false
	for _, k := range Dictionary {
		if k == zero {
			found = true
		}
	}
	if !found {
		t.Error("Dictionary does not contain the all-zero key")
	}
}

func TestSectorOf(t *testing.T) {
	tests := []struct {
		block, want int
	}{
		{0, 0}, {3, 0}, {4, 1}, {63, 15},
	}
	for _, tt := range tests {
		if got := SectorOf(tt.block); got != tt.want {
			t.Errorf("SectorOf(%d) = %d, want %d", tt.block, got, tt.want)
		}
	}
}

func TestImageBlock(t *testing.T) {
	var img Image
	copy(img.Block(3), []byte{1, 2, 3})
	if img[48] != 1 || img[49] != 2 || img[50] != 3 {
		t.Errorf("Block(3) did not alias bytes 48..51 of the image")
	}
}

func TestClassifyTarget(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want CardFamily
	}{
		{"classic 1K", []byte{0x4B, 0x01, 0x01, 0x00, 0x04, 0x08, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}, FamilyMIFAREClassic},
		{"ultralight", []byte{0x4B, 0x01, 0x01, 0x00, 0x44, 0x00, 0x07, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}, FamilyMIFAREUltralight},
		{"too short", []byte{0x4B, 0x01}, FamilyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTarget(tt.resp); got != tt.want {
				t.Errorf("ClassifyTarget(%v) = %v, want %v", tt.resp, got, tt.want)
			}
		})
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
