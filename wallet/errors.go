package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidSeed indicates the master seed is not 32 bytes.
	ErrInvalidSeed = errors.New("wallet: invalid seed (must be 32 bytes)")

	// ErrAccountExists indicates an account already exists at the requested index.
	ErrAccountExists = errors.New("wallet: account already exists")

	// ErrAccountNotFound indicates no account exists at the requested index.
	ErrAccountNotFound = errors.New("wallet: account not found")

	// ErrIndexMismatch indicates a spend was committed for an index other than the cursor.
	ErrIndexMismatch = errors.New("wallet: spend index does not match next unused index")

	// ErrIndexExhausted indicates the signing index space of an account is used up.
	ErrIndexExhausted = errors.New("wallet: signing index exhausted")

	// ErrIndexNotFound indicates no derived address matched the consensus address.
	ErrIndexNotFound = errors.New("wallet: consensus address not found within search limit")

	// ErrDerivationFailed indicates WOTS key generation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrInvalidState indicates a persisted wallet state is inconsistent.
	ErrInvalidState = errors.New("wallet: invalid wallet state")
)
