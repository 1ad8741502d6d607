// Package tag implements the 12-byte account identifier carried by every
// Mochimo WOTS address.
//
// A tag is generated once per account and stays constant across key
// rotations, so the network can resolve an account's current one-time
// address by tag even though the public key changes after every spend.
package tag

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/sigurn/crc16"
)

const (
	// Size is the length of a tag in bytes.
	Size = 12

	// HexLen is the length of a tag in hex characters.
	HexLen = Size * 2

	// base58Len is the decoded length of a base58 tag: tag || LE16(crc).
	base58Len = Size + 2

	// defaultByte fills the tag of an untagged address.
	defaultByte = 0x42
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Tag is a stable 12-byte account identifier.
type Tag [Size]byte

// Default is the tag carried by addresses that were never bound to an account.
var Default = Tag{
	defaultByte, defaultByte, defaultByte, defaultByte,
	defaultByte, defaultByte, defaultByte, defaultByte,
	defaultByte, defaultByte, defaultByte, defaultByte,
}

// Parse decodes a tag from exactly 24 hex characters. Prefixed forms such as
// "0x..." are rejected.
func Parse(s string) (Tag, error) {
	if len(s) != HexLen {
		return Tag{}, fmt.Errorf("%w: got %d characters", ErrInvalidTagFormat, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Tag{}, fmt.Errorf("%w: %w", ErrInvalidTagFormat, err)
	}
	var t Tag
	copy(t[:], raw)
	return t, nil
}

// FromBytes copies a 12-byte slice into a Tag.
func FromBytes(b []byte) (Tag, error) {
	if len(b) != Size {
		return Tag{}, fmt.Errorf("%w: got %d bytes", ErrInvalidTagFormat, len(b))
	}
	var t Tag
	copy(t[:], b)
	return t, nil
}

// String returns the lower-case hex form without prefix.
func (t Tag) String() string {
	return hex.EncodeToString(t[:])
}

// Bytes returns a copy of the tag bytes.
func (t Tag) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, t[:])
	return out
}

// IsZero reports whether every byte of the tag is zero.
func (t Tag) IsZero() bool {
	return t == Tag{}
}

// IsDefault reports whether t is the untagged marker.
func (t Tag) IsDefault() bool {
	return t == Default
}

// Equal reports whether two tags are byte-identical.
func (t Tag) Equal(other Tag) bool {
	return bytes.Equal(t[:], other[:])
}

// Base58 returns the display form: base58(tag || LE16(CRC16-XMODEM(tag))).
func (t Tag) Base58() string {
	buf := make([]byte, base58Len)
	copy(buf, t[:])
	crc := crc16.Checksum(t[:], crcTable)
	buf[Size] = byte(crc)
	buf[Size+1] = byte(crc >> 8)
	return base58.Encode(buf)
}

// ParseBase58 decodes a tag from its base58 display form and verifies
// the trailing checksum.
func ParseBase58(s string) (Tag, error) {
	decoded := base58.Decode(s)
	if len(decoded) != base58Len {
		return Tag{}, fmt.Errorf("%w: base58 payload is %d bytes", ErrInvalidTagFormat, len(decoded))
	}
	stored := uint16(decoded[Size]) | uint16(decoded[Size+1])<<8
	if crc16.Checksum(decoded[:Size], crcTable) != stored {
		return Tag{}, ErrChecksumMismatch
	}
	var t Tag
	copy(t[:], decoded[:Size])
	return t, nil
}
