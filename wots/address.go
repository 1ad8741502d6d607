package wots

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bitfsorg/libmcm-go/tag"
)

// Address layout:
//
//	[0, 2144)     public key
//	[2144, 2176)  public seed
//	[2176, 2196)  address seed prefix (first 20 bytes)
//	[2196, 2208)  tag
//
// The last 32 bytes form the hash address used when reconstructing the key;
// its words 5..7 overlap the tag and are overwritten while hashing.
const (
	AddressSize = PublicKeySize + 2*N // 2208

	PublicSeedOffset = PublicKeySize
	AddrSeedOffset   = PublicSeedOffset + N
	TagOffset        = AddressSize - tag.Size // 2196

	AddrSeedPrefixSize = TagOffset - AddrSeedOffset // 20
)

// Domain suffixes for seed components.
const (
	suffixPrivate = "seed"
	suffixPublic  = "publ"
	suffixAddr    = "addr"
)

// Address is a 2208-byte WOTS address.
type Address [AddressSize]byte

// Components are the three seeds derived from one per-index WOTS seed.
type Components struct {
	PrivateSeed [N]byte
	PublicSeed  [N]byte
	AddrSeed    [N]byte
}

// GenerateComponents derives the private, public and address seeds as
// SHA256(seed || "seed"), SHA256(seed || "publ") and SHA256(seed || "addr").
func GenerateComponents(seed []byte) (Components, error) {
	if len(seed) != SeedSize {
		return Components{}, lengthError("seed", SeedSize, len(seed))
	}
	return Components{
		PrivateSeed: suffixHash(seed, suffixPrivate),
		PublicSeed:  suffixHash(seed, suffixPublic),
		AddrSeed:    suffixHash(seed, suffixAddr),
	}, nil
}

func suffixHash(seed []byte, suffix string) [N]byte {
	buf := make([]byte, 0, len(seed)+len(suffix))
	buf = append(buf, seed...)
	buf = append(buf, suffix...)
	return sha256.Sum256(buf)
}

// NewAddress assembles an address from its public key, seeds and tag.
// Only the first 20 bytes of addrSeed are stored.
func NewAddress(pk PublicKey, pubSeed, addrSeed []byte, t tag.Tag) (Address, error) {
	var a Address
	if len(pubSeed) != N {
		return a, lengthError("public seed", N, len(pubSeed))
	}
	if len(addrSeed) != N {
		return a, lengthError("address seed", N, len(addrSeed))
	}
	copy(a[:PublicSeedOffset], pk[:])
	copy(a[PublicSeedOffset:AddrSeedOffset], pubSeed)
	copy(a[AddrSeedOffset:TagOffset], addrSeed[:AddrSeedPrefixSize])
	copy(a[TagOffset:], t[:])
	return a, nil
}

// AddressFromBytes copies a 2208-byte slice into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, lengthError("address", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes a hex address, with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("%w: address hex: %w", ErrInvalidLength, err)
	}
	return AddressFromBytes(raw)
}

// GenerateAddress runs KeyGen on the components of seed and embeds t.
func (e *Engine) GenerateAddress(seed []byte, t tag.Tag) (Address, Components, error) {
	c, err := GenerateComponents(seed)
	if err != nil {
		return Address{}, Components{}, err
	}
	pk, err := e.KeyGen(c.PrivateSeed[:], c.PublicSeed[:], c.AddrSeed[:])
	if err != nil {
		return Address{}, Components{}, err
	}
	a, err := NewAddress(pk, c.PublicSeed[:], c.AddrSeed[:], t)
	if err != nil {
		return Address{}, Components{}, err
	}
	return a, c, nil
}

// Verify reports whether sig is a valid signature over SHA256(message) by
// the key embedded in addr.
func (e *Engine) Verify(sig, message []byte, addr Address) bool {
	return e.VerifyDigest(sig, sha256.Sum256(message), addr)
}

// VerifyDigest is Verify for a precomputed digest.
func (e *Engine) VerifyDigest(sig []byte, digest [N]byte, addr Address) bool {
	ps := addr.PublicSeed()
	hs := addr.HashAddress()
	pk, err := e.PublicKeyFromSignatureDigest(sig, digest, ps[:], hs[:])
	if err != nil {
		return false
	}
	want := addr.PublicKey()
	return bytes.Equal(pk[:], want[:])
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

// Hex returns the lower-case hex encoding of the full address.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// PublicKey returns the embedded one-time public key.
func (a Address) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], a[:PublicSeedOffset])
	return pk
}

// PublicSeed returns the embedded public seed.
func (a Address) PublicSeed() [N]byte {
	var s [N]byte
	copy(s[:], a[PublicSeedOffset:AddrSeedOffset])
	return s
}

// AddrSeedPrefix returns the 20 stored bytes of the address seed.
func (a Address) AddrSeedPrefix() [AddrSeedPrefixSize]byte {
	var s [AddrSeedPrefixSize]byte
	copy(s[:], a[AddrSeedOffset:TagOffset])
	return s
}

// HashAddress returns the trailing 32 bytes, usable as the address seed
// for signing and key reconstruction.
func (a Address) HashAddress() [N]byte {
	var s [N]byte
	copy(s[:], a[AddrSeedOffset:])
	return s
}

// Tag returns the 12-byte account tag at offset 2196.
func (a Address) Tag() tag.Tag {
	var t tag.Tag
	copy(t[:], a[TagOffset:])
	return t
}

// WithTag returns a copy of a carrying t.
func (a Address) WithTag(t tag.Tag) Address {
	copy(a[TagOffset:], t[:])
	return a
}

// AreEqual compares two addresses. With ignoreTag set, the tag region is
// excluded so addresses of the same key under different tags compare equal.
func AreEqual(a, b Address, ignoreTag bool) bool {
	if ignoreTag {
		return bytes.Equal(a[:TagOffset], b[:TagOffset])
	}
	return a == b
}

// SameAccount reports whether two addresses carry the same tag, i.e. belong
// to one logical account at possibly different points of its spend history.
func SameAccount(a, b Address) bool {
	return a.Tag() == b.Tag()
}
