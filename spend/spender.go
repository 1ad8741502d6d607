// Package spend sends payments from rotating WOTS accounts. It serializes
// spends per account, checks the local cursor against the network before
// signing, and advances the cursor only once the network accepts the
// transaction.
package spend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/libmcm-go/network"
	"github.com/bitfsorg/libmcm-go/store"
	"github.com/bitfsorg/libmcm-go/tx"
	"github.com/bitfsorg/libmcm-go/wallet"
	"github.com/bitfsorg/libmcm-go/wots"
)

// Request describes one payment. Amounts are in nanoMCM.
type Request struct {
	Account     uint32
	Destination wots.Address
	Amount      uint64
	Fee         uint64 // Zero selects the spender's minimum fee
}

// Receipt describes an accepted spend.
type Receipt struct {
	TxID        string // Local id: hex SHA-256 of the transaction buffer
	NetworkTxID string
	SpendIndex  uint32 // Index whose key signed the transaction
	Change      uint64 // Amount moved to the address at SpendIndex+1
	Fee         uint64
	Raw         []byte
}

// pending is a signed datagram whose submission outcome is unknown.
type pending struct {
	index  uint32
	raw    []byte
	change uint64
	fee    uint64
}

// slot serializes the spends of one account and holds its pending datagram.
type slot struct {
	mu      sync.Mutex
	pending *pending
}

// Spender runs the resolve, sign, submit and commit sequence.
type Spender struct {
	wallet   *wallet.HDWallet
	resolver network.Resolver
	accounts store.AccountStore
	txs      store.TxStore
	logger   *zap.Logger
	minFee   uint64
	now      func() time.Time

	mu    sync.Mutex
	slots map[uint32]*slot
}

// Option configures a Spender.
type Option func(*Spender)

// WithLogger sets the spender logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Spender) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAccountStore persists account cursors after every accepted spend.
func WithAccountStore(as store.AccountStore) Option {
	return func(s *Spender) { s.accounts = as }
}

// WithTxStore records every accepted datagram.
func WithTxStore(ts store.TxStore) Option {
	return func(s *Spender) { s.txs = ts }
}

// WithMinimumFee raises the fee floor. Values below tx.MinimumFee are ignored.
func WithMinimumFee(fee uint64) Option {
	return func(s *Spender) {
		if fee > s.minFee {
			s.minFee = fee
		}
	}
}

// New creates a Spender over w that talks to the network through r.
func New(w *wallet.HDWallet, r network.Resolver, opts ...Option) (*Spender, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: wallet", ErrNilParam)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: resolver", ErrNilParam)
	}
	s := &Spender{
		wallet:   w,
		resolver: r,
		logger:   zap.NewNop(),
		minFee:   tx.MinimumFee,
		now:      time.Now,
		slots:    make(map[uint32]*slot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MinimumFee returns the effective fee floor.
func (s *Spender) MinimumFee() uint64 { return s.minFee }

// lock acquires the slot of account. The caller unlocks its mu.
func (s *Spender) lock(account uint32) *slot {
	s.mu.Lock()
	sl, ok := s.slots[account]
	if !ok {
		sl = &slot{}
		s.slots[account] = sl
	}
	s.mu.Unlock()

	sl.mu.Lock()
	return sl
}

// Send pays req.Amount to req.Destination from the account's current
// address, sending the remainder to the next address of the same account.
func (s *Spender) Send(ctx context.Context, req Request) (*Receipt, error) {
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	fee := req.Fee
	if fee == 0 {
		fee = s.minFee
	}

	sl := s.lock(req.Account)
	defer sl.mu.Unlock()

	if sl.pending != nil {
		return nil, fmt.Errorf("%w: account %d", ErrSpendPending, req.Account)
	}

	acct, err := s.wallet.Account(req.Account)
	if err != nil {
		return nil, err
	}

	// 1. Local cursor and the two addresses it implies.
	i := acct.NextUnusedIndex()
	if i >= math.MaxUint32-1 {
		return nil, wallet.ErrIndexExhausted
	}
	source, err := acct.Address(i)
	if err != nil {
		return nil, err
	}
	changeAddr, err := acct.Address(i + 1)
	if err != nil {
		return nil, err
	}

	// 2. The network must agree that the cursor address holds the tag.
	res, err := s.resolver.ResolveTag(ctx, acct.Tag())
	if err != nil {
		return nil, fmt.Errorf("spend: resolve tag %s: %w", acct.Tag(), err)
	}
	if !wots.AreEqual(res.Address, source, false) {
		return nil, fmt.Errorf("%w: account %d index %d", ErrAddressDrift, req.Account, i)
	}

	// 3. Everything not paid or burned as fee moves to the change address.
	total, carry := bits.Add64(req.Amount, fee, 0)
	if carry != 0 || total > res.Balance {
		return nil, fmt.Errorf("%w: balance %s, need %s + fee %s", ErrInsufficientBalance,
			tx.FormatAmount(res.Balance), tx.FormatAmount(req.Amount), tx.FormatAmount(fee))
	}
	change := res.Balance - total

	// 4. Sign. Nothing has left the process yet, so cancellation is safe.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := acct.WOTSSeed(i)
	raw, d, err := tx.Sign(tx.SignParams{
		Balance:       res.Balance,
		Payment:       req.Amount,
		Fee:           fee,
		ChangeAmount:  change,
		Source:        source.Bytes(),
		SourceSecret:  seed[:],
		Destination:   req.Destination.Bytes(),
		ChangeAddress: changeAddr.Bytes(),
		MinimumFee:    s.minFee,
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.Uint32("account", req.Account),
		zap.Uint32("index", i),
		zap.String("txid", d.TxID()))
	log.Info("submitting spend",
		zap.String("amount", tx.FormatAmount(req.Amount)),
		zap.String("change", tx.FormatAmount(change)),
		zap.Uint64("fee", fee))

	p := &pending{index: i, raw: raw, change: change, fee: fee}
	return s.submit(ctx, sl, acct, p, log)
}

// submit hands p to the network and commits it on acceptance. A transport
// failure leaves p pending, since the key at p.index may already be public.
// Callers hold sl.mu.
func (s *Spender) submit(ctx context.Context, sl *slot, acct *wallet.Account, p *pending, log *zap.Logger) (*Receipt, error) {
	result, err := s.resolver.SubmitTransaction(ctx, p.raw)
	if err != nil {
		sl.pending = p
		log.Warn("submission outcome unknown", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSpendPending, err)
	}
	if !result.Accepted {
		sl.pending = nil
		log.Warn("spend rejected", zap.String("reason", result.Reason))
		return nil, fmt.Errorf("%w: %s", ErrRejected, result.Reason)
	}

	if err := acct.CommitSpend(p.index); err != nil {
		return nil, err
	}
	sl.pending = nil

	d, err := tx.Of(p.raw)
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{
		TxID:        d.TxID(),
		NetworkTxID: result.TxID,
		SpendIndex:  p.index,
		Change:      p.change,
		Fee:         p.fee,
		Raw:         p.raw,
	}
	log.Info("spend accepted", zap.String("network_txid", result.TxID))

	if err := s.persist(acct, receipt); err != nil {
		log.Error("failed to persist accepted spend", zap.Error(err))
		return receipt, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return receipt, nil
}

// Resubmit sends the pending datagram of account again. The datagram bytes
// are identical, so no new signature is produced.
func (s *Spender) Resubmit(ctx context.Context, account uint32) (*Receipt, error) {
	sl := s.lock(account)
	defer sl.mu.Unlock()

	p := sl.pending
	if p == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNoPendingSpend, account)
	}
	acct, err := s.wallet.Account(account)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.Uint32("account", account), zap.Uint32("index", p.index))
	log.Info("resubmitting pending spend")
	return s.submit(ctx, sl, acct, p, log)
}

// Pending reports whether account has a submission with an unknown outcome.
func (s *Spender) Pending(account uint32) bool {
	sl := s.lock(account)
	defer sl.mu.Unlock()
	return sl.pending != nil
}

func (s *Spender) persist(acct *wallet.Account, r *Receipt) error {
	now := s.now().Unix()
	if s.accounts != nil {
		err := s.accounts.PutAccount(&store.AccountRecord{
			Index:     acct.Index(),
			Tag:       acct.Tag(),
			NextIndex: acct.NextUnusedIndex(),
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
	}
	if s.txs != nil {
		id, err := store.ParseTxID(r.TxID)
		if err != nil {
			return err
		}
		err = s.txs.PutTx(&store.SubmittedTx{
			TxID:        id,
			Account:     acct.Index(),
			SpendIndex:  r.SpendIndex,
			Raw:         r.Raw,
			NetworkTxID: r.NetworkTxID,
			SubmittedAt: now,
		})
		if err != nil && !errors.Is(err, store.ErrDuplicateTx) {
			return err
		}
	}
	return nil
}
