package wots

import "errors"

var (
	// ErrInvalidLength indicates a seed, signature, key or address has the wrong size.
	ErrInvalidLength = errors.New("wots: invalid length")

	// ErrInvalidParams indicates the engine was constructed with unsupported parameters.
	ErrInvalidParams = errors.New("wots: invalid parameters (only n=32, w=16, len1=64, len2=3 are supported)")
)
