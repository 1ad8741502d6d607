package wallet

import (
	"fmt"

	"github.com/bitfsorg/libmcm-go/wots"
)

// DefaultSearchLimit bounds the index scan of RecoverAccount.
const DefaultSearchLimit = 1000

// RecoverAccount registers the account at index with its cursor set to the
// index whose address matches the network's consensus address. A zero limit
// uses DefaultSearchLimit.
func (w *HDWallet) RecoverAccount(index uint32, consensus wots.Address, limit uint32) (*Account, error) {
	if limit == 0 {
		limit = DefaultSearchLimit
	}

	scan := newAccount(w.engine, w.deriveAccountSeed(index), index, 0)
	if consensus.Tag() != scan.Tag() {
		return nil, fmt.Errorf("%w: consensus tag %s does not belong to account %d",
			ErrIndexNotFound, consensus.Tag(), index)
	}

	next, err := scan.FindIndex(consensus, 0, limit)
	if err != nil {
		return nil, err
	}
	return w.addAccount(index, next)
}
