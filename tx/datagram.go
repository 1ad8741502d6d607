// Package tx implements the Mochimo transaction datagram: its fixed 8920-byte
// wire format, the signable transaction payload, and WOTS signing with
// balance conservation and a self-check against the source address.
package tx

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/sigurn/crc16"

	"github.com/bitfsorg/libmcm-go/wots"
)

// Protocol constants.
const (
	// ProtocolVersion is the peer protocol version written to new datagrams.
	ProtocolVersion = 4

	// NetworkID identifies the Mochimo network.
	NetworkID = 1337

	// Trailer is the magic value closing every datagram.
	Trailer = 0xabcd // 43981

	// HashLen is the size of block hashes and the weight field.
	HashLen = 32
)

// Wire layout. All integers are little-endian.
//
//	offset  size  field
//	     0     1  version
//	     1     1  capability flags
//	     2     2  network id
//	     4     2  id1
//	     6     2  id2
//	     8     2  operation
//	    10     8  current block
//	    18     8  block number
//	    26    32  current block hash
//	    58    32  previous block hash
//	    90    32  weight
//	   122     2  transaction buffer length flag
//	   124  2208  source address
//	  2332  2208  destination address
//	  4540  2208  change address
//	  6748     8  payment
//	  6756     8  change amount
//	  6764     8  fee
//	  6772  2144  signature
//	  8916     2  CRC16 over [0, 8916)
//	  8918     2  trailer
const (
	offVersion      = 0
	offCapabilities = 1
	offNetwork      = 2
	offID1          = 4
	offID2          = 6
	offOperation    = 8
	offCurrentBlock = 10
	offBlockNumber  = 18
	offCBlockHash   = 26
	offPBlockHash   = 58
	offWeight       = 90
	offTxLen        = 122
	offTxBuffer     = 124
	offSource       = offTxBuffer
	offDestination  = offSource + wots.AddressSize
	offChange       = offDestination + wots.AddressSize
	offPayment      = offChange + wots.AddressSize
	offChangeAmount = offPayment + 8
	offFee          = offChangeAmount + 8
	offSignature    = offFee + 8
	offCRC          = offSignature + wots.SignatureSize
	offTrailer      = offCRC + 2

	// HeaderSize is the size of the header preceding the transaction buffer.
	HeaderSize = offTxBuffer

	// TxBufferSize is the size of the transaction buffer.
	TxBufferSize = offCRC - offTxBuffer // 8792

	// DatagramSize is the total wire size.
	DatagramSize = offTrailer + 2 // 8920
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// State is the builder state of a Datagram.
type State int

// Builder states, in order of progress.
const (
	StateEmpty State = iota
	StateAddressesSet
	StateAmountsSet
	StateSigned
	StateSerialized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAddressesSet:
		return "addresses_set"
	case StateAmountsSet:
		return "amounts_set"
	case StateSigned:
		return "signed"
	case StateSerialized:
		return "serialized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Datagram is one network message carrying a transaction. Header block
// fields are zero for a plain transfer.
type Datagram struct {
	Version      uint8
	Capabilities Capability
	Network      uint16
	ID1          uint16
	ID2          uint16
	Operation    Operation

	CurrentBlock      uint64
	BlockNumber       uint64
	CurrentBlockHash  [HashLen]byte
	PreviousBlockHash [HashLen]byte
	Weight            [HashLen]byte
	TxLength          uint16

	Source       wots.Address
	Destination  wots.Address
	Change       wots.Address
	Payment      uint64
	ChangeAmount uint64
	Fee          uint64
	Signature    wots.Signature

	CRC     uint16
	Trailer uint16

	addrMask uint8 // bit per address set
	amounts  bool
	signed   bool
	frozen   bool
}

const (
	maskSource uint8 = 1 << iota
	maskDestination
	maskChange
	maskAll = maskSource | maskDestination | maskChange
)

// NewDatagram returns an empty datagram with protocol version, network id
// and trailer filled in.
func NewDatagram() *Datagram {
	return &Datagram{
		Version: ProtocolVersion,
		Network: NetworkID,
		Trailer: Trailer,
	}
}

// State reports how far the datagram has been built.
func (d *Datagram) State() State {
	switch {
	case d.frozen:
		return StateSerialized
	case d.signed:
		return StateSigned
	case d.amounts:
		return StateAmountsSet
	case d.addrMask == maskAll:
		return StateAddressesSet
	}
	return StateEmpty
}

func (d *Datagram) setAddress(dst *wots.Address, b []byte, what string, bit uint8) error {
	if d.frozen {
		return ErrImmutable
	}
	if len(b) != wots.AddressSize {
		return fmt.Errorf("%w: %s address must be %d bytes, got %d",
			ErrInvalidLength, what, wots.AddressSize, len(b))
	}
	copy(dst[:], b)
	d.addrMask |= bit
	return nil
}

// SetSourceAddress sets the source address (2208 bytes).
func (d *Datagram) SetSourceAddress(b []byte) error {
	return d.setAddress(&d.Source, b, "source", maskSource)
}

// SetDestinationAddress sets the destination address (2208 bytes).
func (d *Datagram) SetDestinationAddress(b []byte) error {
	return d.setAddress(&d.Destination, b, "destination", maskDestination)
}

// SetChangeAddress sets the change address (2208 bytes).
func (d *Datagram) SetChangeAddress(b []byte) error {
	return d.setAddress(&d.Change, b, "change", maskChange)
}

// SetAmounts sets payment, change amount and fee.
func (d *Datagram) SetAmounts(payment, change, fee uint64) error {
	if d.frozen {
		return ErrImmutable
	}
	d.Payment, d.ChangeAmount, d.Fee = payment, change, fee
	d.amounts = true
	return nil
}

// SetSignature sets the WOTS signature (2144 bytes).
func (d *Datagram) SetSignature(sig []byte) error {
	if d.frozen {
		return ErrImmutable
	}
	if len(sig) != wots.SignatureSize {
		return fmt.Errorf("%w: signature must be %d bytes, got %d",
			ErrInvalidLength, wots.SignatureSize, len(sig))
	}
	copy(d.Signature[:], sig)
	d.signed = true
	return nil
}

// SetOperation sets the operation code.
func (d *Datagram) SetOperation(op Operation) error {
	if d.frozen {
		return ErrImmutable
	}
	d.Operation = op
	return nil
}

// Serialize encodes the datagram into its 8920-byte wire form, fills in the
// CRC and freezes the datagram. It fails when no operation was set.
func (d *Datagram) Serialize() ([]byte, error) {
	if d.Operation == OpNull {
		return nil, ErrOperationNotSet
	}

	buf := d.encode()
	d.CRC = binary.LittleEndian.Uint16(buf[offCRC:])
	d.Trailer = Trailer
	d.frozen = true
	return buf, nil
}

// Bytes re-encodes a datagram without changing its state.
func (d *Datagram) Bytes() []byte {
	return d.encode()
}

func (d *Datagram) encode() []byte {
	buf := make([]byte, DatagramSize)
	le := binary.LittleEndian

	buf[offVersion] = d.Version
	buf[offCapabilities] = byte(d.Capabilities)
	le.PutUint16(buf[offNetwork:], d.Network)
	le.PutUint16(buf[offID1:], d.ID1)
	le.PutUint16(buf[offID2:], d.ID2)
	le.PutUint16(buf[offOperation:], uint16(d.Operation))
	le.PutUint64(buf[offCurrentBlock:], d.CurrentBlock)
	le.PutUint64(buf[offBlockNumber:], d.BlockNumber)
	copy(buf[offCBlockHash:], d.CurrentBlockHash[:])
	copy(buf[offPBlockHash:], d.PreviousBlockHash[:])
	copy(buf[offWeight:], d.Weight[:])
	le.PutUint16(buf[offTxLen:], d.TxLength)

	copy(buf[offSource:], d.Source[:])
	copy(buf[offDestination:], d.Destination[:])
	copy(buf[offChange:], d.Change[:])
	le.PutUint64(buf[offPayment:], d.Payment)
	le.PutUint64(buf[offChangeAmount:], d.ChangeAmount)
	le.PutUint64(buf[offFee:], d.Fee)
	copy(buf[offSignature:], d.Signature[:])

	le.PutUint16(buf[offCRC:], crc16.Checksum(buf[:offCRC], crcTable))
	le.PutUint16(buf[offTrailer:], Trailer)
	return buf
}

// Of decodes a datagram from its wire form. Bytes past DatagramSize are
// ignored. The result is in StateSerialized.
func Of(b []byte) (*Datagram, error) {
	if len(b) < DatagramSize {
		return nil, fmt.Errorf("%w: %w: got %d bytes, need %d",
			ErrDeserialization, ErrShortBuffer, len(b), DatagramSize)
	}
	b = b[:DatagramSize]
	le := binary.LittleEndian

	if trailer := le.Uint16(b[offTrailer:]); trailer != Trailer {
		return nil, fmt.Errorf("%w: %w: 0x%04x", ErrDeserialization, ErrInvalidTrailer, trailer)
	}
	stored := le.Uint16(b[offCRC:])
	if sum := crc16.Checksum(b[:offCRC], crcTable); sum != stored {
		return nil, fmt.Errorf("%w: %w: stored 0x%04x, computed 0x%04x",
			ErrDeserialization, ErrChecksumMismatch, stored, sum)
	}
	op := Operation(le.Uint16(b[offOperation:]))
	if op == OpNull {
		return nil, fmt.Errorf("%w: %w: 0", ErrDeserialization, ErrInvalidOperation)
	}

	d := &Datagram{
		Version:      b[offVersion],
		Capabilities: Capability(b[offCapabilities]),
		Network:      le.Uint16(b[offNetwork:]),
		ID1:          le.Uint16(b[offID1:]),
		ID2:          le.Uint16(b[offID2:]),
		Operation:    op,
		CurrentBlock: le.Uint64(b[offCurrentBlock:]),
		BlockNumber:  le.Uint64(b[offBlockNumber:]),
		TxLength:     le.Uint16(b[offTxLen:]),
		Payment:      le.Uint64(b[offPayment:]),
		ChangeAmount: le.Uint64(b[offChangeAmount:]),
		Fee:          le.Uint64(b[offFee:]),
		CRC:          stored,
		Trailer:      Trailer,
		addrMask:     maskAll,
		amounts:      true,
		signed:       true,
		frozen:       true,
	}
	copy(d.CurrentBlockHash[:], b[offCBlockHash:offPBlockHash])
	copy(d.PreviousBlockHash[:], b[offPBlockHash:offWeight])
	copy(d.Weight[:], b[offWeight:offTxLen])
	copy(d.Source[:], b[offSource:offDestination])
	copy(d.Destination[:], b[offDestination:offChange])
	copy(d.Change[:], b[offChange:offPayment])
	copy(d.Signature[:], b[offSignature:offCRC])
	return d, nil
}

// TxBuffer returns the 8792-byte transaction buffer.
func (d *Datagram) TxBuffer() []byte {
	return d.encode()[offTxBuffer:offCRC]
}

// TxID returns the hex SHA-256 of the transaction buffer.
func (d *Datagram) TxID() string {
	sum := sha256.Sum256(d.TxBuffer())
	return hex.EncodeToString(sum[:])
}
