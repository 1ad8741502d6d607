package tx

import "errors"

var (
	// ErrInvalidLength indicates an address, signature or secret has the wrong size.
	ErrInvalidLength = errors.New("tx: invalid length")

	// ErrInvalidAmount indicates the amounts fail validation. It wraps one of
	// the more specific amount errors below.
	ErrInvalidAmount = errors.New("tx: invalid amount")

	// ErrZeroBalance indicates the source balance is zero.
	ErrZeroBalance = errors.New("tx: source balance must be positive")

	// ErrFeeTooLow indicates the fee is below the minimum fee.
	ErrFeeTooLow = errors.New("tx: fee below minimum")

	// ErrSourceNotFullySpent indicates payment+fee+change leaves part of the balance unspent.
	ErrSourceNotFullySpent = errors.New("tx: source address not fully spent")

	// ErrInsufficientFunds indicates payment+fee+change exceeds the balance.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrSignatureMismatch indicates the reconstructed public key differs from the source key.
	ErrSignatureMismatch = errors.New("tx: signature does not match source address")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("tx: signing failed")

	// ErrOperationNotSet indicates Serialize was called before an operation was set.
	ErrOperationNotSet = errors.New("tx: operation not set")

	// ErrImmutable indicates a setter was called on a serialized datagram.
	ErrImmutable = errors.New("tx: datagram already serialized")

	// ErrDeserialization indicates a wire buffer could not be parsed. It wraps
	// one of the more specific decode errors below.
	ErrDeserialization = errors.New("tx: deserialization failed")

	// ErrShortBuffer indicates a wire buffer shorter than a datagram.
	ErrShortBuffer = errors.New("tx: buffer shorter than datagram")

	// ErrInvalidOperation indicates operation code 0 in a wire buffer.
	ErrInvalidOperation = errors.New("tx: invalid operation code")

	// ErrChecksumMismatch indicates the CRC16 does not match the datagram bytes.
	ErrChecksumMismatch = errors.New("tx: CRC16 mismatch")

	// ErrInvalidTrailer indicates the trailer is not the protocol magic.
	ErrInvalidTrailer = errors.New("tx: invalid trailer")

	// ErrInvalidAmountFormat indicates an MCM amount string could not be parsed.
	ErrInvalidAmountFormat = errors.New("tx: invalid amount format")
)
