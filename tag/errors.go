package tag

import "errors"

var (
	// ErrInvalidTagFormat indicates a tag is not exactly 12 bytes / 24 hex characters.
	ErrInvalidTagFormat = errors.New("tag: invalid tag format (must be 24 hex characters)")

	// ErrChecksumMismatch indicates the CRC16 of a base58 tag does not match its payload.
	ErrChecksumMismatch = errors.New("tag: base58 checksum mismatch")
)
