package payload

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anjungan-print-agent/internal/models"
)

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "lowercase", input: "48656c6c6f", want: []byte("Hello")},
		{name: "uppercase", input: "48656C6C6F", want: []byte("Hello")},
		{name: "mixed case", input: "48656C6c6F", want: []byte("Hello")},
		{name: "embedded whitespace", input: "48 65 6c\n6c 6f", want: []byte("Hello")},
		{name: "escpos cut command", input: "1b4001000a1d5601", want: []byte{0x1b, 0x40, 0x01, 0x00, 0x0a, 0x1d, 0x56, 0x01}},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "  \n ", wantErr: true},
		{name: "odd length", input: "48656", wantErr: true},
		{name: "non-hex characters", input: "48zz6c", wantErr: true},
		{name: "base64 lookalike", input: "SGVsbG8=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHex(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrInvalidEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeHexRoundTrip(t *testing.T) {
	inputs := []string{"00", "ff", "deadbeef", "0102030405060708090a0b0c0d0e0f", "abcdef0123456789"}
	for _, in := range inputs {
		got, err := DecodeHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, hex.EncodeToString(got), in)
	}
}

func TestDecodeBase64Tolerant(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
		notOK bool
	}{
		{name: "standard padded", input: "SGVsbG8=", want: []byte("Hello")},
		{name: "padding stripped", input: "SGVsbG8", want: []byte("Hello")},
		{name: "double padding stripped", input: "SGVsbG8h", want: []byte("Hello!")},
		{name: "whitespace interleaved", input: "SGVs\nbG8=", want: []byte("Hello")},
		{name: "url-safe alphabet", input: "-_-_", want: []byte{0xfb, 0xff, 0xbf}},
		{name: "empty", input: "", notOK: true},
		{name: "length 1 mod 4", input: "SGVsb", notOK: true},
		{name: "outside alphabet", input: "SGVs*bG8=", notOK: true},
		{name: "decodes to zero bytes", input: "====", notOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeBase64Tolerant(tt.input)
			if tt.notOK {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// URL-safe, unpadded transforms of valid standard base64 must decode to the
// same bytes as the original.
func TestDecodeBase64TolerantURLSafeEquivalence(t *testing.T) {
	payloads := [][]byte{
		[]byte("Hello"),
		{0xfb, 0xef, 0xff, 0x3e, 0x3f},
		[]byte("ESC/POS \x1b\x40 init"),
		{0x00},
	}
	for _, p := range payloads {
		std := base64.StdEncoding.EncodeToString(p)
		urlSafe := strings.TrimRight(strings.NewReplacer("+", "-", "/", "_").Replace(std), "=")

		got, ok := DecodeBase64Tolerant(urlSafe)
		require.True(t, ok, urlSafe)
		assert.Equal(t, p, got, urlSafe)
	}
}
