package tag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Parse ---

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"all zero", "000000000000000000000000", false},
		{"lower-case hex", "0123456789abcdef01234567", false},
		{"upper-case hex", "0123456789ABCDEF01234567", false},
		{"0x prefix", "0x0123456789abcdef01234567", true},
		{"0X prefix", "0X0123456789abcdef01234567", true},
		{"0x prefix on 22 characters", "0x0123456789abcdef012345", true},
		{"non-hex characters", "123456789GHI456789JKL123", true},
		{"too short", "00000000000000000000000", true},
		{"too long", "0000000000000000000000000", true},
		{"empty", "", true},
		{"prefix only", "0x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTagFormat)
				return
			}
			require.NoError(t, err)
			want := strings.ToLower(tt.input)
			assert.Equal(t, want, tg.String())
		})
	}
}

func TestParseAllZeroIsZero(t *testing.T) {
	tg, err := Parse("000000000000000000000000")
	require.NoError(t, err)
	assert.True(t, tg.IsZero())
	assert.False(t, tg.IsDefault())
}

func TestFromBytes(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	tg, err := FromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, tg.Bytes())

	// The returned slice is a copy.
	b := tg.Bytes()
	b[0] = 0xff
	assert.Equal(t, byte(1), tg[0])

	_, err = FromBytes(raw[:11])
	assert.ErrorIs(t, err, ErrInvalidTagFormat)
}

func TestDefault(t *testing.T) {
	assert.True(t, Default.IsDefault())
	assert.Equal(t, strings.Repeat("42", Size), Default.String())
}

// --- Base58 ---

func TestBase58RoundTrip(t *testing.T) {
	tg, err := Parse("0102030405060708090a0b0c")
	require.NoError(t, err)

	encoded := tg.Base58()
	assert.NotEmpty(t, encoded)

	decoded, err := ParseBase58(encoded)
	require.NoError(t, err)
	assert.True(t, tg.Equal(decoded))
}

func TestParseBase58RejectsBadChecksum(t *testing.T) {
	tg := Tag{0xde, 0xad, 0xbe, 0xef}
	encoded := tg.Base58()

	// Flip the last base58 character to another alphabet member.
	last := encoded[len(encoded)-1]
	repl := byte('2')
	if last == '2' {
		repl = '3'
	}
	tampered := encoded[:len(encoded)-1] + string(repl)

	_, err := ParseBase58(tampered)
	require.Error(t, err)
}

func TestParseBase58RejectsWrongLength(t *testing.T) {
	_, err := ParseBase58("abc")
	assert.ErrorIs(t, err, ErrInvalidTagFormat)
}
