// Package wots implements the WOTS+ one-time signature scheme used by the
// Mochimo network, together with the 2208-byte WOTS address layout.
//
// Every key pair may sign exactly once. A signature reveals an intermediate
// point on each of the 67 hash chains; signing a second message with the same
// key leaks enough chain values to forge further signatures.
//
// Verification is implicit: PublicKeyFromSignature reconstructs the public key
// and the caller compares it against the key embedded in a known address.
package wots

import (
	"crypto/sha256"
	"fmt"
)

// Scheme parameters.
const (
	N    = 32 // hash output bytes
	W    = 16 // Winternitz parameter
	LogW = 4  // log2(W)
	Len1 = 64 // message digits: 8*N/LogW
	Len2 = 3  // checksum digits
	Len  = Len1 + Len2

	// SignatureSize is the size of a signature and of a public key.
	SignatureSize = Len * N // 2144
	PublicKeySize = SignatureSize
	SeedSize      = N
)

// PublicKey is a WOTS public key: the concatenated endpoints of all chains.
type PublicKey [PublicKeySize]byte

// Signature is a WOTS signature: one intermediate chain value per chain.
type Signature [SignatureSize]byte

// Params describes a WOTS parameter set.
type Params struct {
	N    int
	W    int
	LogW int
	Len1 int
	Len2 int
}

// DefaultParams returns the only parameter set the network accepts.
func DefaultParams() Params {
	return Params{N: N, W: W, LogW: LogW, Len1: Len1, Len2: Len2}
}

// Len returns the total number of chains.
func (p Params) Len() int { return p.Len1 + p.Len2 }

// Validate checks p against the fixed network parameters.
func (p Params) Validate() error {
	if p != DefaultParams() {
		return fmt.Errorf("%w: got n=%d w=%d logw=%d len1=%d len2=%d",
			ErrInvalidParams, p.N, p.W, p.LogW, p.Len1, p.Len2)
	}
	return nil
}

// Engine performs key generation, signing and public key reconstruction.
// An Engine is stateless and safe for concurrent use.
type Engine struct {
	params Params
}

// NewEngine returns an engine for p. Any parameter set other than
// DefaultParams is rejected.
func NewEngine(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: p}, nil
}

// Params returns the engine's parameter set.
func (e *Engine) Params() Params { return e.params }

var defaultEngine = &Engine{params: DefaultParams()}

// Default returns the shared engine for the network parameter set.
func Default() *Engine { return defaultEngine }

// KeyGen derives the public key for seed under pubSeed and addrSeed.
// Each chain starts at PRF(pad32(i), seed) and is walked W-1 steps.
func (e *Engine) KeyGen(seed, pubSeed, addrSeed []byte) (PublicKey, error) {
	var pk PublicKey
	s, ps, addr, err := keyInputs(seed, pubSeed, addrSeed)
	if err != nil {
		return pk, err
	}

	starts := expandSeed(s)
	for i := 0; i < Len; i++ {
		addr.SetChain(uint32(i))
		end := genChain(starts[i], 0, W-1, ps, addr)
		copy(pk[i*N:], end[:])
	}
	return pk, nil
}

// Sign signs SHA256(message).
func (e *Engine) Sign(message, seed, pubSeed, addrSeed []byte) (Signature, error) {
	return e.SignDigest(sha256.Sum256(message), seed, pubSeed, addrSeed)
}

// SignDigest signs a 32-byte digest directly. Chain i is walked lengths[i]
// steps from its private start, never to the end.
func (e *Engine) SignDigest(digest [N]byte, seed, pubSeed, addrSeed []byte) (Signature, error) {
	var sig Signature
	s, ps, addr, err := keyInputs(seed, pubSeed, addrSeed)
	if err != nil {
		return sig, err
	}

	lengths := ChainLengths(digest)
	starts := expandSeed(s)
	for i := 0; i < Len; i++ {
		addr.SetChain(uint32(i))
		v := genChain(starts[i], 0, lengths[i], ps, addr)
		copy(sig[i*N:], v[:])
	}
	return sig, nil
}

// PublicKeyFromSignature reconstructs the public key for a signature over
// SHA256(message). The result equals KeyGen's output only when the signature
// is valid for that message and key.
func (e *Engine) PublicKeyFromSignature(sig, message, pubSeed, addrSeed []byte) (PublicKey, error) {
	return e.PublicKeyFromSignatureDigest(sig, sha256.Sum256(message), pubSeed, addrSeed)
}

// PublicKeyFromSignatureDigest is PublicKeyFromSignature for a precomputed digest.
func (e *Engine) PublicKeyFromSignatureDigest(sig []byte, digest [N]byte, pubSeed, addrSeed []byte) (PublicKey, error) {
	var pk PublicKey
	if len(sig) != SignatureSize {
		return pk, lengthError("signature", SignatureSize, len(sig))
	}
	ps, addr, err := publicInputs(pubSeed, addrSeed)
	if err != nil {
		return pk, err
	}

	lengths := ChainLengths(digest)
	for i := 0; i < Len; i++ {
		addr.SetChain(uint32(i))
		var v [N]byte
		copy(v[:], sig[i*N:(i+1)*N])
		end := genChain(v, lengths[i], W-1-lengths[i], ps, addr)
		copy(pk[i*N:], end[:])
	}
	return pk, nil
}

// ChainLengths converts a digest into Len1 base-W digits followed by Len2
// checksum digits. The checksum sum(W-1-d) is shifted left so its Len2*LogW
// bits are byte aligned before being re-encoded.
func ChainLengths(digest [N]byte) [Len]int {
	var lengths [Len]int
	baseW(lengths[:Len1], digest[:])

	csum := 0
	for _, d := range lengths[:Len1] {
		csum += W - 1 - d
	}

	const csumBits = Len2 * LogW
	const csumBytes = (csumBits + 7) / 8
	csum <<= (8 - csumBits%8) % 8

	var buf [csumBytes]byte
	for i := csumBytes - 1; i >= 0; i-- {
		buf[i] = byte(csum)
		csum >>= 8
	}
	baseW(lengths[Len1:], buf[:])
	return lengths
}

// baseW fills out with successive LogW-bit digits of in, most significant first.
func baseW(out []int, in []byte) {
	var total byte
	bits, pos := 0, 0
	for i := range out {
		if bits == 0 {
			total = in[pos]
			pos++
			bits = 8
		}
		bits -= LogW
		out[i] = int(total>>bits) & (W - 1)
	}
}

func keyInputs(seed, pubSeed, addrSeed []byte) ([N]byte, [N]byte, HashAddress, error) {
	var s [N]byte
	if len(seed) != SeedSize {
		return s, [N]byte{}, HashAddress{}, lengthError("seed", SeedSize, len(seed))
	}
	copy(s[:], seed)
	ps, addr, err := publicInputs(pubSeed, addrSeed)
	return s, ps, addr, err
}

func publicInputs(pubSeed, addrSeed []byte) ([N]byte, HashAddress, error) {
	var ps [N]byte
	if len(pubSeed) != N {
		return ps, HashAddress{}, lengthError("public seed", N, len(pubSeed))
	}
	copy(ps[:], pubSeed)
	addr, err := NewHashAddress(addrSeed)
	return ps, addr, err
}

func lengthError(what string, want, got int) error {
	return fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidLength, what, want, got)
}
