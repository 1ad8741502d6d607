package tx

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/bitfsorg/libmcm-go/wots"
)

// MinimumFee is the smallest fee, in nanoMCM, the network accepts.
const MinimumFee = uint64(500)

// SignParams holds the inputs of Sign. Amounts are in nanoMCM.
type SignParams struct {
	Balance      uint64 // Current balance of the source address
	Payment      uint64 // Amount sent to Destination
	Fee          uint64 // Miner fee, at least MinimumFee
	ChangeAmount uint64 // Amount sent to ChangeAddress

	Source        []byte // 2208-byte source address
	SourceSecret  []byte // 32-byte WOTS seed of the source index
	Destination   []byte // 2208-byte destination address
	ChangeAddress []byte // 2208-byte change address

	// MinimumFee raises the fee floor above MinimumFee when set.
	MinimumFee uint64
}

// Sign builds, signs and serializes a transfer datagram.
//
// The source address must be consumed exactly:
//
//	balance == payment + fee + changeAmount
//
// After signing, the public key is reconstructed from the signature and
// compared with the key embedded in the source address; a mismatch aborts
// with ErrSignatureMismatch before anything leaves the process.
func Sign(p SignParams) ([]byte, *Datagram, error) {
	// 1. Validate lengths and amounts.
	if err := validateLengths(p); err != nil {
		return nil, nil, err
	}
	if err := validateAmounts(p); err != nil {
		return nil, nil, err
	}

	var source, destination, change wots.Address
	copy(source[:], p.Source)
	copy(destination[:], p.Destination)
	copy(change[:], p.ChangeAddress)

	// 2. Build the signable digest.
	digest := MessageDigest(source, destination, change, p.Payment, p.ChangeAmount, p.Fee)

	// 3. Sign with the private seed, under the seeds embedded in the source.
	components, err := wots.GenerateComponents(p.SourceSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	pubSeed := source.PublicSeed()
	addrSeed := source.HashAddress()

	engine := wots.Default()
	sig, err := engine.SignDigest(digest, components.PrivateSeed[:], pubSeed[:], addrSeed[:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	// 4. Self-check: the signature must reconstruct the source public key.
	pk, err := engine.PublicKeyFromSignatureDigest(sig[:], digest, pubSeed[:], addrSeed[:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	want := source.PublicKey()
	if !bytes.Equal(pk[:], want[:]) {
		return nil, nil, ErrSignatureMismatch
	}

	// 5. Populate and serialize.
	d := NewDatagram()
	if err := d.SetSourceAddress(p.Source); err != nil {
		return nil, nil, err
	}
	if err := d.SetDestinationAddress(p.Destination); err != nil {
		return nil, nil, err
	}
	if err := d.SetChangeAddress(p.ChangeAddress); err != nil {
		return nil, nil, err
	}
	if err := d.SetAmounts(p.Payment, p.ChangeAmount, p.Fee); err != nil {
		return nil, nil, err
	}
	if err := d.SetSignature(sig[:]); err != nil {
		return nil, nil, err
	}
	if err := d.SetOperation(OpTx); err != nil {
		return nil, nil, err
	}

	raw, err := d.Serialize()
	if err != nil {
		return nil, nil, err
	}
	return raw, d, nil
}

// Verify checks that the datagram's signature was made by the key embedded
// in its source address.
func Verify(d *Datagram) error {
	if !wots.Default().VerifyDigest(d.Signature[:], d.Digest(), d.Source) {
		return ErrSignatureMismatch
	}
	return nil
}

func validateLengths(p SignParams) error {
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"source address", len(p.Source), wots.AddressSize},
		{"destination address", len(p.Destination), wots.AddressSize},
		{"change address", len(p.ChangeAddress), wots.AddressSize},
		{"source secret", len(p.SourceSecret), wots.SeedSize},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidLength, c.name, c.want, c.got)
		}
	}
	return nil
}

func validateAmounts(p SignParams) error {
	if p.Balance == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, ErrZeroBalance)
	}

	minFee := MinimumFee
	if p.MinimumFee > minFee {
		minFee = p.MinimumFee
	}
	if p.Fee < minFee {
		return fmt.Errorf("%w: %w: fee %d < %d", ErrInvalidAmount, ErrFeeTooLow, p.Fee, minFee)
	}

	total, c1 := bits.Add64(p.Payment, p.Fee, 0)
	total, c2 := bits.Add64(total, p.ChangeAmount, 0)
	switch {
	case c1 != 0 || c2 != 0 || total > p.Balance:
		return fmt.Errorf("%w: %w: payment %d + fee %d + change %d exceeds balance %d",
			ErrInvalidAmount, ErrInsufficientFunds, p.Payment, p.Fee, p.ChangeAmount, p.Balance)
	case total < p.Balance:
		return fmt.Errorf("%w: %w: %d left unspent",
			ErrInvalidAmount, ErrSourceNotFullySpent, p.Balance-total)
	}
	return nil
}
