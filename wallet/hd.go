package wallet

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/bitfsorg/libmcm-go/tag"
	"github.com/bitfsorg/libmcm-go/wots"
)

const (
	// MasterSeedSize is the required length of a master seed.
	MasterSeedSize = 32

	// tagSuffix is appended to an account seed before hashing to derive its tag.
	tagSuffix = "tag"
)

// HDWallet derives accounts from a single master seed.
//
//	accountSeed = SHA256(masterSeed || BE32(accountIndex))
//	tag         = SHA256(accountSeed || "tag")[0:12]
//	wotsSeed(i) = SHA256(accountSeed || BE32(i))
//
// Accounts are created on demand and never removed; their tags may already
// be bound on-chain.
type HDWallet struct {
	masterSeed [MasterSeedSize]byte
	engine     *wots.Engine

	mu       sync.RWMutex
	accounts map[uint32]*Account
}

// NewHDWallet creates a wallet from a 32-byte master seed.
func NewHDWallet(masterSeed []byte) (*HDWallet, error) {
	if len(masterSeed) != MasterSeedSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidSeed, len(masterSeed))
	}
	w := &HDWallet{
		engine:   wots.Default(),
		accounts: make(map[uint32]*Account),
	}
	copy(w.masterSeed[:], masterSeed)
	return w, nil
}

// CreateAccount derives and registers the account at index. It fails with
// ErrAccountExists when index is already taken.
func (w *HDWallet) CreateAccount(index uint32) (*Account, error) {
	return w.addAccount(index, 0)
}

// RestoreAccount registers the account at index with a previously persisted
// cursor. Used when reloading rotation state.
func (w *HDWallet) RestoreAccount(index, nextIndex uint32) (*Account, error) {
	return w.addAccount(index, nextIndex)
}

func (w *HDWallet) addAccount(index, next uint32) (*Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.accounts[index]; ok {
		return nil, fmt.Errorf("%w: index %d", ErrAccountExists, index)
	}
	acct := newAccount(w.engine, w.deriveAccountSeed(index), index, next)
	w.accounts[index] = acct
	return acct, nil
}

// RestoreAccounts registers every account in cursors (index to next unused
// index) or none of them. It fails with ErrAccountExists when any index is
// already taken.
func (w *HDWallet) RestoreAccounts(cursors map[uint32]uint32) ([]*Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	indices := make([]uint32, 0, len(cursors))
	for index := range cursors {
		if _, ok := w.accounts[index]; ok {
			return nil, fmt.Errorf("%w: index %d", ErrAccountExists, index)
		}
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	out := make([]*Account, 0, len(indices))
	for _, index := range indices {
		acct := newAccount(w.engine, w.deriveAccountSeed(index), index, cursors[index])
		w.accounts[index] = acct
		out = append(out, acct)
	}
	return out, nil
}

// Account returns the registered account at index.
func (w *HDWallet) Account(index uint32) (*Account, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	acct, ok := w.accounts[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrAccountNotFound, index)
	}
	return acct, nil
}

// AccountTag returns the tag of the account at index without registering it.
func (w *HDWallet) AccountTag(index uint32) tag.Tag {
	return deriveTag(w.deriveAccountSeed(index))
}

// Accounts returns all registered accounts ordered by index.
func (w *HDWallet) Accounts() []*Account {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*Account, 0, len(w.accounts))
	for _, a := range w.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// deriveAccountSeed computes SHA256(masterSeed || BE32(index)).
func (w *HDWallet) deriveAccountSeed(index uint32) [32]byte {
	return indexedHash(w.masterSeed[:], index)
}

// indexedHash computes SHA256(seed || BE32(index)).
func indexedHash(seed []byte, index uint32) [32]byte {
	buf := make([]byte, len(seed)+4)
	copy(buf, seed)
	binary.BigEndian.PutUint32(buf[len(seed):], index)
	return sha256.Sum256(buf)
}

// deriveTag computes SHA256(accountSeed || "tag")[0:12].
func deriveTag(accountSeed [32]byte) tag.Tag {
	buf := make([]byte, 0, len(accountSeed)+len(tagSuffix))
	buf = append(buf, accountSeed[:]...)
	buf = append(buf, tagSuffix...)
	sum := sha256.Sum256(buf)

	var t tag.Tag
	copy(t[:], sum[:tag.Size])
	return t
}
