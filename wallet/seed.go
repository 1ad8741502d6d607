// Package wallet implements hierarchical deterministic derivation of Mochimo
// WOTS accounts from a single master seed.
//
// Derivation: masterSeed -> accountSeed(account) -> wotsSeed(index).
// Each account carries a fixed tag and a cursor over its one-time signing
// indices; the cursor advances only when a spend is committed.
package wallet

import (
	"crypto/sha256"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
)

// ValidateMnemonic checks if a mnemonic string is valid BIP39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// MasterSeedFromMnemonic derives a 32-byte master seed from an existing
// BIP39 mnemonic and optional passphrase:
//
//	masterSeed = SHA256(PBKDF2(mnemonic, "mnemonic"+passphrase, 2048, 64, SHA512))
//
// Mnemonic generation is left to the caller.
func MasterSeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive seed: %w", err)
	}

	master := sha256.Sum256(seed)
	return master[:], nil
}

// NewHDWalletFromMnemonic is NewHDWallet(MasterSeedFromMnemonic(mnemonic, passphrase)).
func NewHDWalletFromMnemonic(mnemonic, passphrase string) (*HDWallet, error) {
	seed, err := MasterSeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return NewHDWallet(seed)
}
