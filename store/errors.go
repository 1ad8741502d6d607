package store

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrAccountNotFound indicates no record exists for the account index.
	ErrAccountNotFound = errors.New("store: account not found")

	// ErrStaleIndex indicates an update would move an account cursor backwards.
	ErrStaleIndex = errors.New("store: next index must not decrease")

	// ErrTagMismatch indicates an update changes the tag of a stored account.
	ErrTagMismatch = errors.New("store: account tag changed")

	// ErrTxNotFound indicates the transaction is not in the store.
	ErrTxNotFound = errors.New("store: transaction not found")

	// ErrDuplicateTx indicates the transaction is already stored.
	ErrDuplicateTx = errors.New("store: duplicate transaction")

	// ErrInvalidTxID indicates a transaction ID is not 32 bytes.
	ErrInvalidTxID = errors.New("store: TxID must be 32 bytes")
)
