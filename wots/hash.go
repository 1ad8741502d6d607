package wots

import (
	"crypto/sha256"
	"encoding/binary"
)

// Domain separation values written as a 32-byte big-endian prefix.
const (
	paddingF   = 0
	paddingPRF = 3
)

// Word offsets inside a HashAddress.
const (
	chainWord      = 5
	hashWord       = 6
	keyAndMaskWord = 7
)

// HashAddress is the 32-byte structured address fed to ThashF. It holds
// eight 4-byte words, each little-endian. Words 5, 6 and 7 select the chain,
// the step within the chain and the key/mask role.
type HashAddress [N]byte

// NewHashAddress builds a hash address from a 32-byte address seed.
func NewHashAddress(addrSeed []byte) (HashAddress, error) {
	var a HashAddress
	if len(addrSeed) != N {
		return a, lengthError("address seed", N, len(addrSeed))
	}
	copy(a[:], addrSeed)
	return a, nil
}

// Word returns word i of the address.
func (a *HashAddress) Word(i int) uint32 {
	return binary.LittleEndian.Uint32(a[i*4:])
}

func (a *HashAddress) setWord(i int, v uint32) {
	binary.LittleEndian.PutUint32(a[i*4:], v)
}

// SetChain sets the chain index (word 5).
func (a *HashAddress) SetChain(chain uint32) { a.setWord(chainWord, chain) }

// SetHash sets the hash step index (word 6).
func (a *HashAddress) SetHash(step uint32) { a.setWord(hashWord, step) }

// SetKeyAndMask sets the key/mask selector (word 7).
func (a *HashAddress) SetKeyAndMask(v uint32) { a.setWord(keyAndMaskWord, v) }

// padding returns v as a 32-byte big-endian integer.
func padding(v uint64) [N]byte {
	var out [N]byte
	binary.BigEndian.PutUint64(out[N-8:], v)
	return out
}

// PRF computes SHA256(pad32(3) || key || in).
func PRF(in, key [N]byte) [N]byte {
	pad := padding(paddingPRF)
	var buf [3 * N]byte
	copy(buf[:N], pad[:])
	copy(buf[N:2*N], key[:])
	copy(buf[2*N:], in[:])
	return sha256.Sum256(buf[:])
}

// ThashF is the keyed, masked chaining function:
//
//	key  = PRF(addr with keyAndMask=0, pubSeed)
//	mask = PRF(addr with keyAndMask=1, pubSeed)
//	out  = SHA256(pad32(0) || key || (in XOR mask))
//
// addr is not modified.
func ThashF(in, pubSeed [N]byte, addr HashAddress) [N]byte {
	addr.SetKeyAndMask(0)
	key := PRF(addr, pubSeed)
	addr.SetKeyAndMask(1)
	mask := PRF(addr, pubSeed)

	pad := padding(paddingF)
	var buf [3 * N]byte
	copy(buf[:N], pad[:])
	copy(buf[N:2*N], key[:])
	for i := 0; i < N; i++ {
		buf[2*N+i] = in[i] ^ mask[i]
	}
	return sha256.Sum256(buf[:])
}

// genChain walks steps applications of ThashF starting at position start.
// The walk never goes past position w-1.
func genChain(in [N]byte, start, steps int, pubSeed [N]byte, addr HashAddress) [N]byte {
	out := in
	for i := start; i < start+steps && i < W; i++ {
		addr.SetHash(uint32(i))
		out = ThashF(out, pubSeed, addr)
	}
	return out
}

// expandSeed derives the Len private chain starts: PRF(pad32(i), seed).
func expandSeed(seed [N]byte) [Len][N]byte {
	var out [Len][N]byte
	for i := 0; i < Len; i++ {
		out[i] = PRF(padding(uint64(i)), seed)
	}
	return out
}
