// Package store persists wallet rotation state and the datagrams submitted
// for each spend. Seeds are never stored.
package store

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/bitfsorg/libmcm-go/tag"
)

// TxIDSize is the size of a transaction ID.
const TxIDSize = 32

// AccountRecord is the persisted rotation state of one account.
type AccountRecord struct {
	Index     uint32
	Tag       tag.Tag
	NextIndex uint32 // Next unused signing index
	UpdatedAt int64  // Unix seconds
}

// SubmittedTx records a datagram handed to the network.
type SubmittedTx struct {
	TxID        []byte // 32 bytes
	Account     uint32
	SpendIndex  uint32 // Signing index consumed by this transaction
	Raw         []byte // 8920-byte datagram
	NetworkTxID string // Identifier reported by the network, if any
	SubmittedAt int64  // Unix seconds
}

// AccountStore persists account rotation state.
type AccountStore interface {
	// PutAccount creates or updates an account record. NextIndex must not
	// decrease and the tag of an existing record must not change.
	PutAccount(rec *AccountRecord) error

	// GetAccount returns the record for an account index.
	GetAccount(index uint32) (*AccountRecord, error)

	// ListAccounts returns all records ordered by index.
	ListAccounts() ([]*AccountRecord, error)
}

// TxStore persists submitted transactions. Records are write-once.
type TxStore interface {
	// PutTx stores a submitted transaction.
	PutTx(tx *SubmittedTx) error

	// GetTx retrieves a transaction by TxID.
	GetTx(txID []byte) (*SubmittedTx, error)

	// GetTxsByAccount returns the transactions of an account ordered by spend index.
	GetTxsByAccount(account uint32) ([]*SubmittedTx, error)

	// ListTxs returns all stored transactions (for backup/export).
	ListTxs() ([]*SubmittedTx, error)
}

// checkAccountUpdate validates rec against the previously stored record.
func checkAccountUpdate(prev, rec *AccountRecord) error {
	if prev == nil {
		return nil
	}
	if prev.Tag != rec.Tag {
		return fmt.Errorf("%w: account %d", ErrTagMismatch, rec.Index)
	}
	if rec.NextIndex < prev.NextIndex {
		return fmt.Errorf("%w: account %d: %d < %d", ErrStaleIndex, rec.Index, rec.NextIndex, prev.NextIndex)
	}
	return nil
}

func validateTx(tx *SubmittedTx) error {
	if tx == nil {
		return fmt.Errorf("%w: submitted transaction", ErrNilParam)
	}
	return validateTxID(tx.TxID)
}

func validateTxID(txID []byte) error {
	if len(txID) != TxIDSize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidTxID, len(txID))
	}
	return nil
}

// ParseTxID decodes a hex transaction ID.
func ParseTxID(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTxID, err)
	}
	if err := validateTxID(b); err != nil {
		return nil, err
	}
	return b, nil
}

// hashKey converts a byte slice to a string for use as a map key.
func hashKey(h []byte) string {
	return string(h)
}

// ---------------------------------------------------------------------------
// MemStore is an in-memory implementation of AccountStore and TxStore.
// ---------------------------------------------------------------------------

// MemStore keeps records in memory. Useful for tests and ephemeral wallets.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[uint32]*AccountRecord
	byTxID   map[string]*SubmittedTx
}

// Compile-time interface checks.
var (
	_ AccountStore = (*MemStore)(nil)
	_ TxStore      = (*MemStore)(nil)
)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[uint32]*AccountRecord),
		byTxID:   make(map[string]*SubmittedTx),
	}
}

// PutAccount creates or updates an account record.
func (s *MemStore) PutAccount(rec *AccountRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: account record", ErrNilParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkAccountUpdate(s.accounts[rec.Index], rec); err != nil {
		return err
	}
	cp := *rec
	s.accounts[rec.Index] = &cp
	return nil
}

// GetAccount returns the record for an account index.
func (s *MemStore) GetAccount(index uint32) (*AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.accounts[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrAccountNotFound, index)
	}
	cp := *rec
	return &cp, nil
}

// ListAccounts returns all records ordered by index.
func (s *MemStore) ListAccounts() ([]*AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*AccountRecord, 0, len(s.accounts))
	for _, rec := range s.accounts {
		cp := *rec
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

// PutTx stores a submitted transaction.
func (s *MemStore) PutTx(tx *SubmittedTx) error {
	if err := validateTx(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashKey(tx.TxID)
	if _, exists := s.byTxID[key]; exists {
		return ErrDuplicateTx
	}
	s.byTxID[key] = tx
	return nil
}

// GetTx retrieves a transaction by TxID.
func (s *MemStore) GetTx(txID []byte) (*SubmittedTx, error) {
	if err := validateTxID(txID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byTxID[hashKey(txID)]
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

// GetTxsByAccount returns the transactions of an account ordered by spend index.
func (s *MemStore) GetTxsByAccount(account uint32) ([]*SubmittedTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*SubmittedTx
	for _, tx := range s.byTxID {
		if tx.Account == account {
			result = append(result, tx)
		}
	}
	sortTxs(result)
	return result, nil
}

// ListTxs returns all stored transactions.
func (s *MemStore) ListTxs() ([]*SubmittedTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SubmittedTx, 0, len(s.byTxID))
	for _, tx := range s.byTxID {
		result = append(result, tx)
	}
	sortTxs(result)
	return result, nil
}

func sortTxs(txs []*SubmittedTx) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Account != txs[j].Account {
			return txs[i].Account < txs[j].Account
		}
		if txs[i].SpendIndex != txs[j].SpendIndex {
			return txs[i].SpendIndex < txs[j].SpendIndex
		}
		return bytes.Compare(txs[i].TxID, txs[j].TxID) < 0
	})
}
