package wallet

import (
	"fmt"
	"math"
	"sync"

	"github.com/bitfsorg/libmcm-go/tag"
	"github.com/bitfsorg/libmcm-go/wots"
)

// Account is one logical wallet account: a fixed tag and a rotating
// one-time address. The cursor names the next unused signing index and only
// moves forward through CommitSpend.
type Account struct {
	engine *wots.Engine
	seed   [32]byte
	tag    tag.Tag
	index  uint32

	mu   sync.Mutex
	next uint32
}

func newAccount(engine *wots.Engine, seed [32]byte, index, next uint32) *Account {
	return &Account{
		engine: engine,
		seed:   seed,
		tag:    deriveTag(seed),
		index:  index,
		next:   next,
	}
}

// Index returns the account's position in the HD wallet.
func (a *Account) Index() uint32 { return a.index }

// Tag returns the account tag embedded in every address it produces.
func (a *Account) Tag() tag.Tag { return a.tag }

// WOTSSeed returns SHA256(accountSeed || BE32(i)), the secret for signing index i.
func (a *Account) WOTSSeed(i uint32) [32]byte {
	return indexedHash(a.seed[:], i)
}

// Components returns the private, public and address seeds for index i.
func (a *Account) Components(i uint32) (wots.Components, error) {
	seed := a.WOTSSeed(i)
	return wots.GenerateComponents(seed[:])
}

// Address returns the one-time address for index i. The account tag is
// embedded regardless of i.
func (a *Account) Address(i uint32) (wots.Address, error) {
	seed := a.WOTSSeed(i)
	addr, _, err := a.engine.GenerateAddress(seed[:], a.tag)
	if err != nil {
		return wots.Address{}, fmt.Errorf("%w: index %d: %w", ErrDerivationFailed, i, err)
	}
	return addr, nil
}

// NextUnusedIndex returns the signing index the next spend must use.
func (a *Account) NextUnusedIndex() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// CurrentAddress returns Address(NextUnusedIndex()).
func (a *Account) CurrentAddress() (wots.Address, uint32, error) {
	i := a.NextUnusedIndex()
	addr, err := a.Address(i)
	return addr, i, err
}

// CommitSpend records that index spent has signed an accepted transaction
// and advances the cursor past it. spent must equal the current cursor, so
// a stale or repeated commit cannot skip or reuse an index.
func (a *Account) CommitSpend(spent uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if spent != a.next {
		return fmt.Errorf("%w: committed %d, next unused is %d", ErrIndexMismatch, spent, a.next)
	}
	// The change of a spend goes to index+1, so the last index is never signable.
	if a.next >= math.MaxUint32-1 {
		return ErrIndexExhausted
	}
	a.next++
	return nil
}

// FindIndex scans indices [from, from+limit) for the one whose address equals
// the consensus address. Used after restoring a wallet whose cursor is unknown.
func (a *Account) FindIndex(consensus wots.Address, from, limit uint32) (uint32, error) {
	for n := uint32(0); n < limit; n++ {
		i := from + n
		if i < from {
			break
		}
		addr, err := a.Address(i)
		if err != nil {
			return 0, err
		}
		if wots.AreEqual(addr, consensus, false) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: searched %d indices from %d", ErrIndexNotFound, limit, from)
}
