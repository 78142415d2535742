package otp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// Generate returns the pickup verification code: a 4-digit string drawn
// uniformly from 0000-9999. It is generated once per booking at creation
// time and never regenerated; verification happens on the driver's device.
func Generate() (string, error) {
	return generate(rand.Reader)
}

func generate(r io.Reader) (string, error) {
	// rejection sampling to keep the draw uniform over 10000 values
	const bound = 10000
	const limit = (1<<32 / bound) * bound

	var buf [4]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v < limit {
			return fmt.Sprintf("%04d", v%bound), nil
		}
	}
}

// Digits splits the code for digit-by-digit display.
func Digits(code string) []string {
	digits := make([]string, 0, len(code))
	for _, r := range code {
		digits = append(digits, string(r))
	}
	return digits
}
