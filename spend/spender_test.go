package spend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bitfsorg/libmcm-go/network"
	"github.com/bitfsorg/libmcm-go/store"
	"github.com/bitfsorg/libmcm-go/tag"
	"github.com/bitfsorg/libmcm-go/tx"
	"github.com/bitfsorg/libmcm-go/wallet"
	"github.com/bitfsorg/libmcm-go/wots"
)

// ledger is an in-memory network: it verifies submitted datagrams and moves
// the source tag to the change address.
type ledger struct {
	mu        sync.Mutex
	entries   map[tag.Tag]network.TagResolution
	submitted [][]byte

	submitErr error             // returned once by the next SubmitTransaction
	failFor   map[tag.Tag]error // returned for every datagram spending from the tag
}

var _ network.Resolver = (*ledger)(nil)

func newLedger() *ledger {
	return &ledger{
		entries: make(map[tag.Tag]network.TagResolution),
		failFor: make(map[tag.Tag]error),
	}
}

func (l *ledger) fund(addr wots.Address, balance uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[addr.Tag()] = network.TagResolution{Address: addr, Balance: balance}
}

func (l *ledger) ResolveTag(_ context.Context, t tag.Tag) (*network.TagResolution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[t]
	if !ok {
		return nil, network.ErrTagNotFound
	}
	return &e, nil
}

func (l *ledger) SubmitTransaction(_ context.Context, raw []byte) (*network.SubmitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.submitErr; err != nil {
		l.submitErr = nil
		return nil, err
	}
	d, err := tx.Of(raw)
	if err != nil {
		return nil, err
	}
	if err := l.failFor[d.Source.Tag()]; err != nil {
		return nil, err
	}
	if err := tx.Verify(d); err != nil {
		return &network.SubmitResult{Reason: err.Error()}, nil
	}
	e, ok := l.entries[d.Source.Tag()]
	if !ok || !wots.AreEqual(e.Address, d.Source, false) {
		return &network.SubmitResult{Reason: "source is not the current address"}, nil
	}
	l.entries[d.Source.Tag()] = network.TagResolution{Address: d.Change, Balance: d.ChangeAmount}
	l.submitted = append(l.submitted, raw)
	return &network.SubmitResult{Accepted: true, TxID: "net-" + d.TxID()[:8]}, nil
}

type fixture struct {
	wallet  *wallet.HDWallet
	account *wallet.Account
	ledger  *ledger
	store   *store.MemStore
	spender *Spender
	dest    wots.Address
}

func newFixture(t *testing.T, balance uint64) *fixture {
	t.Helper()
	w, err := wallet.NewHDWallet(bytes.Repeat([]byte{0x07}, wallet.MasterSeedSize))
	require.NoError(t, err)
	acct, err := w.CreateAccount(0)
	require.NoError(t, err)

	l := newLedger()
	addr, err := acct.Address(0)
	require.NoError(t, err)
	l.fund(addr, balance)

	ms := store.NewMemStore()
	s, err := New(w, l,
		WithLogger(zaptest.NewLogger(t)),
		WithAccountStore(ms),
		WithTxStore(ms))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	other, err := wallet.NewHDWallet(bytes.Repeat([]byte{0x09}, wallet.MasterSeedSize))
	require.NoError(t, err)
	destAcct, err := other.CreateAccount(0)
	require.NoError(t, err)
	dest, err := destAcct.Address(0)
	require.NoError(t, err)

	return &fixture{wallet: w, account: acct, ledger: l, store: ms, spender: s, dest: dest}
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewRequiresWalletAndResolver(t *testing.T) {
	w, err := wallet.NewHDWallet(make([]byte, wallet.MasterSeedSize))
	require.NoError(t, err)

	_, err = New(nil, newLedger())
	assert.ErrorIs(t, err, ErrNilParam)
	_, err = New(w, nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestWithMinimumFeeOnlyRaises(t *testing.T) {
	w, err := wallet.NewHDWallet(make([]byte, wallet.MasterSeedSize))
	require.NoError(t, err)

	s, err := New(w, newLedger(), WithMinimumFee(100))
	require.NoError(t, err)
	assert.Equal(t, tx.MinimumFee, s.MinimumFee())

	s, err = New(w, newLedger(), WithMinimumFee(2000))
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), s.MinimumFee())
}

// ---------------------------------------------------------------------------
// Send
// ---------------------------------------------------------------------------

func TestSendCommitsOnAcceptance(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	r, err := f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 3000})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), r.SpendIndex)
	assert.Equal(t, uint64(500), r.Fee)
	assert.Equal(t, uint64(6500), r.Change)
	assert.Len(t, r.Raw, tx.DatagramSize)
	assert.Equal(t, "net-"+r.TxID[:8], r.NetworkTxID)
	assert.Equal(t, uint32(1), f.account.NextUnusedIndex())

	// The datagram pays the destination and moves change to index 1.
	d, err := tx.Of(r.Raw)
	require.NoError(t, err)
	assert.Equal(t, f.dest, d.Destination)
	next, err := f.account.Address(1)
	require.NoError(t, err)
	assert.Equal(t, next, d.Change)
	assert.Equal(t, uint64(3000), d.Payment)

	// A second spend uses the next key against the updated ledger.
	r2, err := f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 1000, Fee: 700})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), r2.SpendIndex)
	assert.Equal(t, uint64(4800), r2.Change)
	assert.Equal(t, uint32(2), f.account.NextUnusedIndex())

	rec, err := f.store.GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rec.NextIndex)
	assert.Equal(t, f.account.Tag(), rec.Tag)
	assert.Equal(t, int64(1700000000), rec.UpdatedAt)

	txs, err := f.store.GetTxsByAccount(0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, r.Raw, txs[0].Raw)
	assert.Equal(t, r2.NetworkTxID, txs[1].NetworkTxID)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	_, err := f.spender.Send(ctx, Request{Account: 0, Destination: f.dest})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.spender.Send(ctx, Request{Account: 5, Destination: f.dest, Amount: 1})
	assert.ErrorIs(t, err, wallet.ErrAccountNotFound)

	_, err = f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 9600})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: ^uint64(0)})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 100, Fee: 499})
	assert.ErrorIs(t, err, tx.ErrFeeTooLow)

	assert.Equal(t, uint32(0), f.account.NextUnusedIndex())
	assert.Empty(t, f.ledger.submitted)
}

func TestSendSpendsWholeBalance(t *testing.T) {
	f := newFixture(t, 1500)

	r, err := f.spender.Send(context.Background(), Request{Account: 0, Destination: f.dest, Amount: 1000})
	require.NoError(t, err)
	assert.Zero(t, r.Change)
}

func TestSendRefusesAddressDrift(t *testing.T) {
	f := newFixture(t, 10_000)
	moved, err := f.account.Address(3)
	require.NoError(t, err)
	f.ledger.fund(moved, 10_000)

	_, err = f.spender.Send(context.Background(), Request{Account: 0, Destination: f.dest, Amount: 100})
	assert.ErrorIs(t, err, ErrAddressDrift)
	assert.Equal(t, uint32(0), f.account.NextUnusedIndex())
	assert.Empty(t, f.ledger.submitted)
}

func TestSendResolveFailure(t *testing.T) {
	f := newFixture(t, 10_000)
	f.spender.resolver = &network.MockResolver{
		ResolveTagFn: func(context.Context, tag.Tag) (*network.TagResolution, error) {
			return nil, network.ErrTagNotFound
		},
	}
	_, err := f.spender.Send(context.Background(), Request{Account: 0, Destination: f.dest, Amount: 100})
	assert.ErrorIs(t, err, network.ErrTagNotFound)
}

func TestSendRejectedLeavesCursor(t *testing.T) {
	f := newFixture(t, 10_000)
	f.spender.resolver = &network.MockResolver{
		ResolveTagFn: f.ledger.ResolveTag,
		SubmitTransactionFn: func(context.Context, []byte) (*network.SubmitResult, error) {
			return &network.SubmitResult{Accepted: false, Reason: "mempool full"}, nil
		},
	}

	_, err := f.spender.Send(context.Background(), Request{Account: 0, Destination: f.dest, Amount: 100})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "mempool full")
	assert.Equal(t, uint32(0), f.account.NextUnusedIndex())
	assert.False(t, f.spender.Pending(0))

	_, err = f.store.GetAccount(0)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestSendCanceledContextSubmitsNothing(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 100})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.ledger.submitted)
	assert.False(t, f.spender.Pending(0))
}

func TestSendUnknownOutcomeBlocksUntilResubmit(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()
	f.ledger.submitErr = errors.New("connection reset")

	_, err := f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 100})
	require.ErrorIs(t, err, ErrSpendPending)
	assert.True(t, f.spender.Pending(0))
	assert.Equal(t, uint32(0), f.account.NextUnusedIndex())

	// No second signature while the first may be in flight.
	_, err = f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 200})
	assert.ErrorIs(t, err, ErrSpendPending)

	r, err := f.spender.Resubmit(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), r.SpendIndex)
	assert.Equal(t, uint64(9400), r.Change)
	assert.False(t, f.spender.Pending(0))
	assert.Equal(t, uint32(1), f.account.NextUnusedIndex())

	_, err = f.spender.Resubmit(ctx, 0)
	assert.ErrorIs(t, err, ErrNoPendingSpend)
}

func TestSendGatewayTimeoutKeepsSpendPending(t *testing.T) {
	f := newFixture(t, 10_000)
	source, err := f.account.Address(0)
	require.NoError(t, err)

	var submits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/call":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"address": "0x" + source.Hex(), "amount": 10_000},
			})
		case "/construction/submit":
			submits.Add(1)
			w.WriteHeader(http.StatusRequestTimeout)
		}
	}))
	defer server.Close()

	mesh, err := network.NewMeshClient(network.MeshConfig{URL: server.URL})
	require.NoError(t, err)
	s, err := New(f.wallet, mesh)
	require.NoError(t, err)

	_, err = s.Send(context.Background(), Request{Account: 0, Destination: f.dest, Amount: 1000})
	assert.ErrorIs(t, err, ErrSpendPending)
	assert.True(t, s.Pending(0))
	assert.Equal(t, uint32(0), f.account.NextUnusedIndex())

	// The key at index 0 may be public, so no second message is signed.
	_, err = s.Send(context.Background(), Request{Account: 0, Destination: f.dest, Amount: 2000})
	assert.ErrorIs(t, err, ErrSpendPending)
	assert.Equal(t, int32(1), submits.Load())
}

func TestSendConcurrentSpendsAreSerialized(t *testing.T) {
	f := newFixture(t, 100_000)
	const n = 4

	var wg sync.WaitGroup
	indices := make(chan uint32, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.spender.Send(context.Background(), Request{Account: 0, Destination: f.dest, Amount: 1000})
			if err != nil {
				errs <- err
				return
			}
			indices <- r.SpendIndex
		}()
	}
	wg.Wait()
	close(indices)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[uint32]bool)
	for i := range indices {
		assert.False(t, seen[i], "index %d signed twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, uint32(n), f.account.NextUnusedIndex())
}

func TestSendAcrossAccountsInParallel(t *testing.T) {
	f := newFixture(t, 100_000)
	const n = 6

	accts := []*wallet.Account{f.account}
	for i := uint32(1); i < n; i++ {
		acct, err := f.wallet.CreateAccount(i)
		require.NoError(t, err)
		addr, err := acct.Address(0)
		require.NoError(t, err)
		f.ledger.fund(addr, 100_000)
		accts = append(accts, acct)
	}
	// Odd accounts lose their submissions, so pending entries are written
	// while even accounts clear theirs.
	for i := 1; i < n; i += 2 {
		f.ledger.failFor[accts[i].Tag()] = network.ErrConnectionFailed
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for k := 0; k < 3 && errs[i] == nil; k++ {
				_, errs[i] = f.spender.Send(context.Background(),
					Request{Account: uint32(i), Destination: f.dest, Amount: 1000})
			}
		}(i)
	}
	wg.Wait()

	for i, acct := range accts {
		if i%2 == 1 {
			assert.ErrorIs(t, errs[i], ErrSpendPending, "account %d", i)
			assert.True(t, f.spender.Pending(uint32(i)))
			assert.Equal(t, uint32(0), acct.NextUnusedIndex())
			continue
		}
		assert.NoError(t, errs[i], "account %d", i)
		assert.False(t, f.spender.Pending(uint32(i)))
		assert.Equal(t, uint32(3), acct.NextUnusedIndex())
	}
}

// ---------------------------------------------------------------------------
// Sync
// ---------------------------------------------------------------------------

func TestSyncAdvancesCursor(t *testing.T) {
	f := newFixture(t, 10_000)
	ahead, err := f.account.Address(2)
	require.NoError(t, err)
	f.ledger.fund(ahead, 7000)

	res, err := f.spender.Sync(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.NextIndex)
	assert.Equal(t, uint32(2), res.Advanced)
	assert.Equal(t, uint64(7000), res.Balance)
	assert.False(t, res.Recovered)
	assert.Equal(t, uint32(2), f.account.NextUnusedIndex())

	rec, err := f.store.GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rec.NextIndex)

	// In sync: nothing moves, nothing is written.
	res, err = f.spender.Sync(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Advanced)
}

func TestSyncSettlesPendingSpend(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	// The gateway accepts the datagram but the answer is lost.
	f.spender.resolver = &network.MockResolver{
		ResolveTagFn: f.ledger.ResolveTag,
		SubmitTransactionFn: func(ctx context.Context, raw []byte) (*network.SubmitResult, error) {
			_, _ = f.ledger.SubmitTransaction(ctx, raw)
			return nil, network.ErrConnectionFailed
		},
	}
	_, err := f.spender.Send(ctx, Request{Account: 0, Destination: f.dest, Amount: 100})
	require.ErrorIs(t, err, ErrSpendPending)
	require.True(t, f.spender.Pending(0))

	res, err := f.spender.Sync(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), res.NextIndex)
	assert.False(t, f.spender.Pending(0))
}

func TestSyncCursorAhead(t *testing.T) {
	f := newFixture(t, 10_000)
	w, err := wallet.NewHDWallet(bytes.Repeat([]byte{0x07}, wallet.MasterSeedSize))
	require.NoError(t, err)
	_, err = w.RestoreAccount(0, 5)
	require.NoError(t, err)
	s, err := New(w, f.ledger)
	require.NoError(t, err)

	_, err = s.Sync(context.Background(), 0, 10)
	assert.ErrorIs(t, err, ErrCursorAhead)
}

func TestSyncRecoversUnknownAccount(t *testing.T) {
	f := newFixture(t, 10_000)
	ahead, err := f.account.Address(4)
	require.NoError(t, err)
	f.ledger.fund(ahead, 5000)

	// A second wallet from the same master seed that has never seen account 0.
	w, err := wallet.NewHDWallet(bytes.Repeat([]byte{0x07}, wallet.MasterSeedSize))
	require.NoError(t, err)
	ms := store.NewMemStore()
	s, err := New(w, f.ledger, WithAccountStore(ms))
	require.NoError(t, err)

	res, err := s.Sync(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.True(t, res.Recovered)
	assert.Equal(t, uint32(4), res.NextIndex)

	acct, err := w.Account(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), acct.NextUnusedIndex())

	rec, err := ms.GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), rec.NextIndex)
}

func TestSyncNotFoundWithinLimit(t *testing.T) {
	f := newFixture(t, 10_000)
	far, err := f.account.Address(50)
	require.NoError(t, err)
	f.ledger.fund(far, 1)

	_, err = f.spender.Sync(context.Background(), 0, 5)
	assert.ErrorIs(t, err, wallet.ErrIndexNotFound)
	assert.Equal(t, uint32(0), f.account.NextUnusedIndex())
}

// ---------------------------------------------------------------------------
// LoadAccounts
// ---------------------------------------------------------------------------

func TestLoadAccounts(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, wallet.MasterSeedSize)
	w, err := wallet.NewHDWallet(seed)
	require.NoError(t, err)

	ms := store.NewMemStore()
	require.NoError(t, ms.PutAccount(&store.AccountRecord{Index: 0, Tag: w.AccountTag(0), NextIndex: 3}))
	require.NoError(t, ms.PutAccount(&store.AccountRecord{Index: 2, Tag: w.AccountTag(2), NextIndex: 1}))

	s, err := New(w, newLedger(), WithAccountStore(ms))
	require.NoError(t, err)
	n, err := s.LoadAccounts()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	acct, err := w.Account(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), acct.NextUnusedIndex())

	// Already loaded accounts are skipped.
	n, err = s.LoadAccounts()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadAccountsRejectsForeignTag(t *testing.T) {
	w, err := wallet.NewHDWallet(bytes.Repeat([]byte{0x07}, wallet.MasterSeedSize))
	require.NoError(t, err)
	ms := store.NewMemStore()
	require.NoError(t, ms.PutAccount(&store.AccountRecord{Index: 0, Tag: w.AccountTag(0), NextIndex: 2}))
	require.NoError(t, ms.PutAccount(&store.AccountRecord{Index: 1, Tag: tag.Tag{0xde, 0xad}}))

	s, err := New(w, newLedger(), WithAccountStore(ms))
	require.NoError(t, err)
	n, err := s.LoadAccounts()
	assert.ErrorIs(t, err, store.ErrTagMismatch)
	assert.Zero(t, n)

	// Nothing was registered, so account 0 is still free.
	assert.Empty(t, w.Accounts())
	_, err = w.RestoreAccount(0, 2)
	assert.NoError(t, err)
}
