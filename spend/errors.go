package spend

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("spend: required parameter is nil")

	// ErrAddressDrift indicates the network's address for the account tag is
	// not the address at the local cursor.
	ErrAddressDrift = errors.New("spend: consensus address does not match local cursor")

	// ErrCursorAhead indicates the local cursor is past the network's address,
	// usually because an earlier spend has not been mined yet.
	ErrCursorAhead = errors.New("spend: local cursor is ahead of the network")

	// ErrInsufficientBalance indicates amount plus fee exceeds the balance.
	ErrInsufficientBalance = errors.New("spend: insufficient balance")

	// ErrInvalidAmount indicates a zero amount was requested.
	ErrInvalidAmount = errors.New("spend: amount must be positive")

	// ErrRejected indicates the network refused the transaction.
	ErrRejected = errors.New("spend: transaction rejected")

	// ErrSpendPending indicates the account has a submission with an unknown
	// outcome; Resubmit or Sync must settle it first.
	ErrSpendPending = errors.New("spend: previous spend outcome unknown")

	// ErrNoPendingSpend indicates Resubmit was called with nothing pending.
	ErrNoPendingSpend = errors.New("spend: no pending spend")

	// ErrPersistFailed indicates an accepted spend could not be recorded.
	ErrPersistFailed = errors.New("spend: persist state")
)
