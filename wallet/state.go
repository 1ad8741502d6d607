package wallet

import (
	"fmt"

	"github.com/bitfsorg/libmcm-go/tag"
)

// AccountState is the persisted rotation state of one account.
type AccountState struct {
	Index     uint32 `json:"index"`
	Tag       string `json:"tag"`        // Hex tag, checked against the derived tag on load
	NextIndex uint32 `json:"next_index"` // Next unused signing index
}

// WalletState holds persisted wallet metadata. It never contains seeds.
type WalletState struct {
	Accounts []AccountState `json:"accounts"`
}

// NewWalletState creates a new empty WalletState.
func NewWalletState() *WalletState {
	return &WalletState{Accounts: []AccountState{}}
}

// Validate checks the integrity of a deserialized WalletState.
func (ws *WalletState) Validate() error {
	seen := make(map[uint32]bool)
	for _, a := range ws.Accounts {
		if seen[a.Index] {
			return fmt.Errorf("%w: duplicate account index %d", ErrInvalidState, a.Index)
		}
		seen[a.Index] = true

		if _, err := tag.Parse(a.Tag); err != nil {
			return fmt.Errorf("%w: account %d: %w", ErrInvalidState, a.Index, err)
		}
	}
	return nil
}

// State snapshots the rotation state of every registered account.
func (w *HDWallet) State() *WalletState {
	ws := NewWalletState()
	for _, a := range w.Accounts() {
		ws.Accounts = append(ws.Accounts, AccountState{
			Index:     a.Index(),
			Tag:       a.Tag().String(),
			NextIndex: a.NextUnusedIndex(),
		})
	}
	return ws
}

// LoadState restores every account in ws, or none of them. A persisted tag
// that differs from the derived one means the state belongs to another
// master seed.
func (w *HDWallet) LoadState(ws *WalletState) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	cursors := make(map[uint32]uint32, len(ws.Accounts))
	for _, s := range ws.Accounts {
		got, _ := tag.Parse(s.Tag)
		want := w.AccountTag(s.Index)
		if got != want {
			return fmt.Errorf("%w: account %d tag %s does not match derived tag %s",
				ErrInvalidState, s.Index, s.Tag, want)
		}
		cursors[s.Index] = s.NextIndex
	}
	_, err := w.RestoreAccounts(cursors)
	return err
}
