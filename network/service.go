package network

import (
	"context"

	"github.com/bitfsorg/libmcm-go/tag"
	"github.com/bitfsorg/libmcm-go/wots"
)

// Resolver is the view of the network the wallet depends on.
type Resolver interface {
	// ResolveTag returns the address currently holding the tag and its
	// balance. Returns ErrTagNotFound when the network has no entry.
	ResolveTag(ctx context.Context, t tag.Tag) (*TagResolution, error)

	// SubmitTransaction hands a serialized 8920-byte datagram to the network.
	// A rejection is reported through SubmitResult, not as an error.
	SubmitTransaction(ctx context.Context, raw []byte) (*SubmitResult, error)
}

// TagResolution is the consensus view of a tag.
type TagResolution struct {
	Address wots.Address
	Balance uint64 // nanoMCM
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	Accepted bool
	TxID     string
	Reason   string // Rejection message from the gateway, if any
}

// BlockID identifies a block on the chain.
type BlockID struct {
	Height uint64 `json:"index"`
	Hash   string `json:"hash"`
}

// NetworkStatus is the gateway's view of the chain tip.
type NetworkStatus struct {
	Current BlockID
	Genesis BlockID
}
