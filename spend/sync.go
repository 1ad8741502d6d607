package spend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/libmcm-go/store"
	"github.com/bitfsorg/libmcm-go/wallet"
)

// SyncResult reports the state of an account after Sync.
type SyncResult struct {
	Account   uint32
	NextIndex uint32
	Advanced  uint32 // Indices the cursor moved forward
	Balance   uint64
	Recovered bool // Account was registered from the network view
}

// Sync aligns the account cursor with the network. Unknown accounts are
// recovered by scanning limit indices from 0; known accounts scan limit
// indices from their cursor and advance it to the consensus index. A zero
// limit uses wallet.DefaultSearchLimit.
//
// A pending spend is settled when the network has moved past its index.
func (s *Spender) Sync(ctx context.Context, account uint32, limit uint32) (*SyncResult, error) {
	if limit == 0 {
		limit = wallet.DefaultSearchLimit
	}

	sl := s.lock(account)
	defer sl.mu.Unlock()

	acct, err := s.wallet.Account(account)
	if errors.Is(err, wallet.ErrAccountNotFound) {
		return s.recoverAccount(ctx, account, limit)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.ResolveTag(ctx, acct.Tag())
	if err != nil {
		return nil, fmt.Errorf("spend: resolve tag %s: %w", acct.Tag(), err)
	}

	from := acct.NextUnusedIndex()
	target, err := acct.FindIndex(res.Address, from, limit)
	if err != nil {
		if from > 0 {
			if _, behind := acct.FindIndex(res.Address, 0, from); behind == nil {
				return nil, fmt.Errorf("%w: account %d cursor %d", ErrCursorAhead, account, from)
			}
		}
		return nil, err
	}

	for i := from; i < target; i++ {
		if err := acct.CommitSpend(i); err != nil {
			return nil, err
		}
	}
	if sl.pending != nil && sl.pending.index < target {
		sl.pending = nil
	}

	return s.synced(acct, &SyncResult{
		Account:   account,
		NextIndex: target,
		Advanced:  target - from,
		Balance:   res.Balance,
	})
}

// recoverAccount registers an account the wallet does not know yet at the index
// the network reports. Callers hold the account lock.
func (s *Spender) recoverAccount(ctx context.Context, account, limit uint32) (*SyncResult, error) {
	t := s.wallet.AccountTag(account)
	res, err := s.resolver.ResolveTag(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("spend: resolve tag %s: %w", t, err)
	}
	acct, err := s.wallet.RecoverAccount(account, res.Address, limit)
	if err != nil {
		return nil, err
	}
	return s.synced(acct, &SyncResult{
		Account:   account,
		NextIndex: acct.NextUnusedIndex(),
		Advanced:  acct.NextUnusedIndex(),
		Balance:   res.Balance,
		Recovered: true,
	})
}

func (s *Spender) synced(acct *wallet.Account, result *SyncResult) (*SyncResult, error) {
	s.logger.Info("account synced",
		zap.Uint32("account", result.Account),
		zap.Uint32("next_index", result.NextIndex),
		zap.Uint32("advanced", result.Advanced),
		zap.Bool("recovered", result.Recovered))

	if s.accounts == nil || (result.Advanced == 0 && !result.Recovered) {
		return result, nil
	}
	err := s.accounts.PutAccount(&store.AccountRecord{
		Index:     result.Account,
		Tag:       acct.Tag(),
		NextIndex: result.NextIndex,
		UpdatedAt: s.now().Unix(),
	})
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return result, nil
}

// LoadAccounts registers every stored account with the wallet at its stored
// cursor. Accounts already present in the wallet are left untouched. Every
// stored tag is checked before any account is registered.
func (s *Spender) LoadAccounts() (int, error) {
	if s.accounts == nil {
		return 0, nil
	}
	records, err := s.accounts.ListAccounts()
	if err != nil {
		return 0, err
	}

	cursors := make(map[uint32]uint32, len(records))
	for _, rec := range records {
		if _, err := s.wallet.Account(rec.Index); err == nil {
			continue
		}
		if derived := s.wallet.AccountTag(rec.Index); derived != rec.Tag {
			return 0, fmt.Errorf("%w: account %d stored tag %s, derived %s",
				store.ErrTagMismatch, rec.Index, rec.Tag, derived)
		}
		cursors[rec.Index] = rec.NextIndex
	}
	loaded, err := s.wallet.RestoreAccounts(cursors)
	if err != nil {
		return 0, err
	}
	return len(loaded), nil
}
