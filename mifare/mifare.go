// Package mifare holds the MIFARE Classic constants, key dictionary, and
// pure helper functions the clone engine builds its per-block algorithm
// on: trailer fabrication, sector/block addressing, and card-image
// layout.
package mifare

// Blocks is the number of 16-byte blocks in a MIFARE Classic 1K image.
const Blocks = 64

// BlockSize is the size in bytes of one block.
const BlockSize = 16

// ImageSize is the full card image size: 64 blocks of 16 bytes.
const ImageSize = Blocks * BlockSize

// Image is the mutable 1 KiB card image the clone engine reads into and
// writes from.
type Image [ImageSize]byte

// Block returns the 16-byte slice for block b (0-63). Panics if b is out
// of range, matching the engine's own invariant that it never calls this
// with an out-of-bounds block.
func (img *Image) Block(b int) []byte {
	return img[b*BlockSize : (b+1)*BlockSize]
}

// IsTrailer reports whether block b is a sector trailer: the fourth
// block of each four-block sector.
func IsTrailer(b int) bool {
	return (b+1)%4 == 0
}

// canonicalAccessBytes is the rewrite-permission access-condition word
// the engine stamps into every captured trailer, so a subsequent write
// pass can freely rewrite every block in the sector.
var canonicalAccessBytes = [4]byte{0xFF, 0x07, 0x80, 0x69}

// canonicalKeyB is the Key B slot stamped into every captured trailer.
var canonicalKeyB = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// FabricateTrailer builds the 16-byte sector-trailer image the engine
// writes after a successful capture: Key A is the key that authenticated
// the sector, Access Bytes are the canonical rewrite word, and Key B is
// all-FF. A real trailer's access condition makes it unreadable once
// locked down; this is what makes the captured image writable again.
func FabricateTrailer(key Key) [16]byte {
	var trailer [16]byte
	copy(trailer[0:6], key[:])
	copy(trailer[6:10], canonicalAccessBytes[:])
	copy(trailer[10:16], canonicalKeyB[:])
	return trailer
}

// Key is a 6-byte MIFARE Classic authentication key.
type Key [6]byte

// Dictionary is the ordered list of candidate keys the engine rotates
// through per sector, starting from FF FF FF FF FF FF (the factory
// default) and ending with 00 00 00 00 00 00 plus a tail of commonly
// deployed defaults.
var Dictionary = []Key{
	{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
	{0x0F, 0x5F, 0xB2, 0x9D, 0xDC, 0x10},
	{0x25, 0xE5, 0xB3, 0x47, 0x75, 0x06},
	{0x63, 0x15, 0xD5, 0x6B, 0x21, 0xF4},
	{0x66, 0x47, 0x0D, 0xE8, 0xAA, 0x11},
	{0x7A, 0x46, 0x38, 0x61, 0xB1, 0xEC},
	{0x7C, 0x56, 0x37, 0xD4, 0x02, 0x40},
	{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5},
	{0xA2, 0x7D, 0x38, 0x04, 0xC2, 0x59},
	{0xBC, 0x0B, 0x0C, 0x6B, 0xB4, 0xEC},
	{0xC8, 0x27, 0x32, 0x52, 0x23, 0xB3},
	{0xC8, 0xB4, 0x70, 0xC4, 0x8F, 0x77},
	{0xCA, 0x0F, 0xB8, 0x30, 0x93, 0xC6},
	{0xFE, 0x39, 0xEF, 0x4D, 0x55, 0xE1},
	{0xD3, 0xF7, 0xD3, 0xF7, 0xD3, 0xF7}, // NFC Forum content key
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // blank key
	{0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5},
	{0x4D, 0x3A, 0x99, 0xC3, 0x51, 0xDD},
	{0x1A, 0x98, 0x2C, 0x7E, 0x45, 0x9A},
	{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
	{0x71, 0x4C, 0x5C, 0x88, 0x6E, 0x97},
	{0x58, 0x7E, 0xE5, 0xF9, 0x35, 0x0F},
	{0xA0, 0x47, 0x8C, 0xC3, 0x90, 0x91},
	{0x53, 0x3C, 0xB6, 0xC7, 0x23, 0xF6},
	{0x8F, 0xD0, 0xA4, 0xF2, 0x56, 0xE9},
}

// SectorOf returns the sector index (0-15) block b belongs to.
func SectorOf(b int) int {
	return b / 4
}

// AuthMode selects the MIFARE authentication command variant.
type AuthMode byte

const AuthA AuthMode = 0x60

// CardFamily classifies a target by its InListPassiveTarget SENS_RES,
// the way the original reader's loop_read_rfid branched on data[3]/
// data[4] to special-case MIFARE Ultralight.
type CardFamily int

const (
	// FamilyUnknown means the response was too short to carry a
	// SENS_RES field.
	FamilyUnknown CardFamily = iota
	FamilyMIFAREClassic
	FamilyMIFAREUltralight
)

func (f CardFamily) String() string {
	switch f {
	case FamilyMIFAREClassic:
		return "MIFARE Classic"
	case FamilyMIFAREUltralight:
		return "MIFARE Ultralight"
	default:
		return "unknown"
	}
}

// sensResUltralightHigh and sensResUltralightLow are the two SENS_RES
// bytes the original reader checked (data[3]==0x00, data[4]==0x44) to
// recognise a MIFARE Ultralight target.
const (
	sensResUltralightHigh = 0x00
	sensResUltralightLow  = 0x44
)

// ClassifyTarget inspects an InListPassiveTarget response (the same
// layout clone.Engine reads a UID from: SENS_RES at resp[3:5]) and
// reports the card family. This is diagnostic only — the clone engine
// remains MIFARE Classic-only; an Ultralight classification is reported
// but never cloned.
func ClassifyTarget(resp []byte) CardFamily {
	if len(resp) < 5 {
		return FamilyUnknown
	}
	if resp[3] == sensResUltralightHigh && resp[4] == sensResUltralightLow {
		return FamilyMIFAREUltralight
	}
	return FamilyMIFAREClassic
}
