package otp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, 4)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
	}
}

func TestGenerateKeepsLeadingZeros(t *testing.T) {
	// a zero draw must come out as "0000", not "0"
	code, err := generate(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.NoError(t, err)
	require.Equal(t, "0000", code)
}

func TestGenerateRejectionSampling(t *testing.T) {
	// 0xFFFFFFFF falls outside the uniform limit and must be redrawn
	code, err := generate(bytes.NewReader([]byte{
		0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x00, 0x01, 0x2C, // 300
	}))
	require.NoError(t, err)
	require.Equal(t, "0300", code)
}

func TestDigits(t *testing.T) {
	require.Equal(t, []string{"0", "4", "2", "9"}, Digits("0429"))
}
