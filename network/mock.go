package network

import (
	"context"

	"github.com/bitfsorg/libmcm-go/tag"
)

// MockResolver is a test double for Resolver.
// All function fields must be set before the corresponding method is called.
type MockResolver struct {
	ResolveTagFn        func(ctx context.Context, t tag.Tag) (*TagResolution, error)
	SubmitTransactionFn func(ctx context.Context, raw []byte) (*SubmitResult, error)
}

var _ Resolver = (*MockResolver)(nil)

func (m *MockResolver) ResolveTag(ctx context.Context, t tag.Tag) (*TagResolution, error) {
	return m.ResolveTagFn(ctx, t)
}
func (m *MockResolver) SubmitTransaction(ctx context.Context, raw []byte) (*SubmitResult, error) {
	return m.SubmitTransactionFn(ctx, raw)
}
