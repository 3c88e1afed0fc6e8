package gxterminal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHexText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"space separated pairs", "41 42", []byte{0x41, 0x42}},
		{"single run", "4142", []byte{0x41, 0x42}},
		{"mixed case", "aB Cd", []byte{0xAB, 0xCD}},
		{"tabs and repeats", "41\t0d  0a", []byte{0x41, 0x0D, 0x0A}},
		{"four digit run", "dead beef", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"whitespace only", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeHexText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeHexTextInvalid(t *testing.T) {
	for _, in := range []string{"4", "414", "4G", "0x41", "41 zz"} {
		_, err := decodeHexText(in)
		assert.True(t, errors.Is(err, ErrInvalidHex), "input %q", in)
	}
}

func TestEncodePayload(t *testing.T) {
	// Suffixes apply only in plain mode.
	data, err := encodePayload("hi", false, true, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi\r\n"), data)

	data, err = encodePayload("0d 0a", true, true, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0D, 0x0A}, data)
}
