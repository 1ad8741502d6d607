package tx

import "fmt"

// Operation is the datagram operation code.
type Operation uint16

// Operation codes of the Mochimo peer protocol.
const (
	OpNull Operation = iota
	OpHello
	OpHelloAck
	OpTx
	OpFound
	OpGetBlock
	OpGetIPL
	OpSendBL
	OpSendIP
	OpBusy
	OpNack
	OpGetTFile
	OpBalance
	OpSendBal
	OpResolve
	OpGetCBlock
	OpMBlock
	OpHash
	OpTF
	OpIdentify
)

var opNames = map[Operation]string{
	OpNull:      "NULL",
	OpHello:     "HELLO",
	OpHelloAck:  "HELLO_ACK",
	OpTx:        "TX",
	OpFound:     "FOUND",
	OpGetBlock:  "GETBLOCK",
	OpGetIPL:    "GETIPL",
	OpSendBL:    "SEND_BL",
	OpSendIP:    "SEND_IP",
	OpBusy:      "BUSY",
	OpNack:      "NACK",
	OpGetTFile:  "GET_TFILE",
	OpBalance:   "BALANCE",
	OpSendBal:   "SEND_BAL",
	OpResolve:   "RESOLVE",
	OpGetCBlock: "GET_CBLOCK",
	OpMBlock:    "MBLOCK",
	OpHash:      "HASH",
	OpTF:        "TF",
	OpIdentify:  "IDENTIFY",
}

func (o Operation) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", uint16(o))
}

// Capability is the capability bitmask in the datagram header.
type Capability uint8

// Capability bits.
const (
	CapPush      Capability = 1 << iota // C_PUSH
	CapWallet                           // C_WALLET
	CapSanctuary                        // C_SANCTUARY
	CapMFee                             // C_MFEE
	CapLogging                          // C_LOGGING
)

// Has reports whether all bits of c2 are set in c.
func (c Capability) Has(c2 Capability) bool { return c&c2 == c2 }
