package tx

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/bitfsorg/libmcm-go/wots"
)

// MessageSize is the size of the signable transaction payload.
const MessageSize = 3*wots.AddressSize + 3*8

// MessageToSign returns the signable payload:
//
//	source || destination || change || LE64(payment) || LE64(change) || LE64(fee)
//
// It is the transaction buffer up to the signature.
func MessageToSign(source, destination, change wots.Address, payment, changeAmount, fee uint64) []byte {
	buf := make([]byte, 0, MessageSize)
	buf = append(buf, source[:]...)
	buf = append(buf, destination[:]...)
	buf = append(buf, change[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, payment)
	buf = binary.LittleEndian.AppendUint64(buf, changeAmount)
	buf = binary.LittleEndian.AppendUint64(buf, fee)
	return buf
}

// MessageDigest returns SHA256(MessageToSign(...)), the value whose base-16
// digits select the WOTS chain lengths.
func MessageDigest(source, destination, change wots.Address, payment, changeAmount, fee uint64) [32]byte {
	return sha256.Sum256(MessageToSign(source, destination, change, payment, changeAmount, fee))
}

// Digest returns the signed digest of a datagram.
func (d *Datagram) Digest() [32]byte {
	return MessageDigest(d.Source, d.Destination, d.Change, d.Payment, d.ChangeAmount, d.Fee)
}
