package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// lockTimeout bounds the wait for the database file lock held by another process.
const lockTimeout = time.Second

var (
	bucketAccounts  = []byte("accounts")
	bucketTxs       = []byte("txs")
	bucketTxAccount = []byte("tx_account")
)

// BoltStore wraps a bbolt database for account and transaction storage.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface checks.
var (
	_ AccountStore = (*BoltStore)(nil)
	_ TxStore      = (*BoltStore)(nil)
)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketTxs, bucketTxAccount} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// indexKey encodes an index as a 4-byte big-endian key for sorted storage.
func indexKey(i uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, i)
	return k
}

// txAccountKey is account || spendIndex || txID, so a prefix scan over the
// account yields its transactions in spend order.
func txAccountKey(tx *SubmittedTx) []byte {
	k := make([]byte, 0, 8+TxIDSize)
	k = binary.BigEndian.AppendUint32(k, tx.Account)
	k = binary.BigEndian.AppendUint32(k, tx.SpendIndex)
	return append(k, tx.TxID...)
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// ---------------------------------------------------------------------------
// AccountStore
// ---------------------------------------------------------------------------

// PutAccount creates or updates an account record.
func (s *BoltStore) PutAccount(rec *AccountRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: account record", ErrNilParam)
	}

	return s.db.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketAccounts)
		key := indexKey(rec.Index)

		if data := b.Get(key); data != nil {
			var prev AccountRecord
			if err := decodeGob(data, &prev); err != nil {
				return fmt.Errorf("decode account: %w", err)
			}
			if err := checkAccountUpdate(&prev, rec); err != nil {
				return err
			}
		}

		data, err := encodeGob(rec)
		if err != nil {
			return fmt.Errorf("encode account: %w", err)
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("boltstore: put account: %w", err)
		}
		return nil
	})
}

// GetAccount returns the record for an account index.
func (s *BoltStore) GetAccount(index uint32) (*AccountRecord, error) {
	var rec AccountRecord
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketAccounts).Get(indexKey(index))
		if data == nil {
			return fmt.Errorf("%w: index %d", ErrAccountNotFound, index)
		}
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("decode account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAccounts returns all records ordered by index.
func (s *BoltStore) ListAccounts() ([]*AccountRecord, error) {
	var result []*AccountRecord
	err := s.db.View(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketAccounts).ForEach(func(_, v []byte) error {
			var rec AccountRecord
			if err := decodeGob(v, &rec); err != nil {
				return fmt.Errorf("decode account: %w", err)
			}
			result = append(result, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// TxStore
// ---------------------------------------------------------------------------

// PutTx stores a transaction. Returns ErrDuplicateTx if the txid already exists.
func (s *BoltStore) PutTx(tx *SubmittedTx) error {
	if err := validateTx(tx); err != nil {
		return err
	}

	return s.db.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketTxs)
		if b.Get(tx.TxID) != nil {
			return ErrDuplicateTx
		}
		data, err := encodeGob(tx)
		if err != nil {
			return fmt.Errorf("encode tx: %w", err)
		}
		if err := b.Put(tx.TxID, data); err != nil {
			return fmt.Errorf("boltstore: put tx: %w", err)
		}
		if err := btx.Bucket(bucketTxAccount).Put(txAccountKey(tx), []byte{}); err != nil {
			return fmt.Errorf("boltstore: put tx account index: %w", err)
		}
		return nil
	})
}

// GetTx retrieves a transaction by TxID.
func (s *BoltStore) GetTx(txID []byte) (*SubmittedTx, error) {
	if err := validateTxID(txID); err != nil {
		return nil, err
	}

	var tx SubmittedTx
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketTxs).Get(txID)
		if data == nil {
			return ErrTxNotFound
		}
		if err := decodeGob(data, &tx); err != nil {
			return fmt.Errorf("decode tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTxsByAccount returns the transactions of an account ordered by spend index.
func (s *BoltStore) GetTxsByAccount(account uint32) ([]*SubmittedTx, error) {
	prefix := indexKey(account)

	var result []*SubmittedTx
	err := s.db.View(func(btx *bbolt.Tx) error {
		txs := btx.Bucket(bucketTxs)
		c := btx.Bucket(bucketTxAccount).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			txID := k[len(k)-TxIDSize:]
			data := txs.Get(txID)
			if data == nil {
				continue // index entry without record
			}
			var tx SubmittedTx
			if err := decodeGob(data, &tx); err != nil {
				return fmt.Errorf("decode tx: %w", err)
			}
			result = append(result, &tx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListTxs returns all stored transactions ordered by account and spend index.
func (s *BoltStore) ListTxs() ([]*SubmittedTx, error) {
	var result []*SubmittedTx
	err := s.db.View(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketTxs).ForEach(func(_, v []byte) error {
			var tx SubmittedTx
			if err := decodeGob(v, &tx); err != nil {
				return fmt.Errorf("decode tx: %w", err)
			}
			result = append(result, &tx)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortTxs(result)
	return result, nil
}
