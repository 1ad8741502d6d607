package wallet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletStateRoundTrip(t *testing.T) {
	w := newTestWallet(t)
	a0, err := w.CreateAccount(0)
	require.NoError(t, err)
	_, err = w.CreateAccount(5)
	require.NoError(t, err)
	require.NoError(t, a0.CommitSpend(0))
	require.NoError(t, a0.CommitSpend(1))

	data, err := json.Marshal(w.State())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "seed")

	var ws WalletState
	require.NoError(t, json.Unmarshal(data, &ws))

	restored := newTestWallet(t)
	require.NoError(t, restored.LoadState(&ws))

	r0, err := restored.Account(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), r0.NextUnusedIndex())
	assert.Equal(t, a0.Tag(), r0.Tag())

	r5, err := restored.Account(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), r5.NextUnusedIndex())
}

func TestLoadStateWrongMasterSeed(t *testing.T) {
	w := newTestWallet(t)
	_, err := w.CreateAccount(0)
	require.NoError(t, err)
	ws := w.State()

	other, err := NewHDWallet(make([]byte, MasterSeedSize))
	require.NoError(t, err)
	err = other.LoadState(ws)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLoadStateIsAllOrNothing(t *testing.T) {
	w := newTestWallet(t)
	ws := &WalletState{Accounts: []AccountState{
		{Index: 0, Tag: w.AccountTag(0).String(), NextIndex: 3},
		{Index: 1, Tag: "000102030405060708090a0b", NextIndex: 1},
	}}

	err := w.LoadState(ws)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, w.Accounts())

	// Once the state is corrected the retry succeeds.
	ws.Accounts[1].Tag = w.AccountTag(1).String()
	require.NoError(t, w.LoadState(ws))
	assert.Len(t, w.Accounts(), 2)

	a0, err := w.Account(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), a0.NextUnusedIndex())
}

func TestRestoreAccountsRejectsTakenIndex(t *testing.T) {
	w := newTestWallet(t)
	_, err := w.CreateAccount(2)
	require.NoError(t, err)

	_, err = w.RestoreAccounts(map[uint32]uint32{1: 4, 2: 0})
	assert.ErrorIs(t, err, ErrAccountExists)
	_, err = w.Account(1)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	accts, err := w.RestoreAccounts(map[uint32]uint32{3: 1, 1: 4})
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.Equal(t, uint32(1), accts[0].Index())
	assert.Equal(t, uint32(4), accts[0].NextUnusedIndex())
}

func TestWalletStateValidate(t *testing.T) {
	validTag := "000102030405060708090a0b"
	tests := []struct {
		name    string
		state   WalletState
		wantErr bool
	}{
		{"empty", WalletState{}, false},
		{"single", WalletState{Accounts: []AccountState{{Index: 0, Tag: validTag}}}, false},
		{"duplicate index", WalletState{Accounts: []AccountState{
			{Index: 1, Tag: validTag}, {Index: 1, Tag: validTag},
		}}, true},
		{"bad tag", WalletState{Accounts: []AccountState{{Index: 0, Tag: "xyz"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidState)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
