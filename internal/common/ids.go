// Package common holds small helpers shared across the client's packages.
package common

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

const systemIDChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// secureRandomInt generates a cryptographically secure random number
// between 0 and max, rejecting values that would introduce modulo bias.
func secureRandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("max must be positive, got %d", max)
	}
	if max > math.MaxInt32 {
		return 0, fmt.Errorf("max too large: %d", max)
	}

	limit := (math.MaxUint64 / uint64(max)) * uint64(max)

	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to generate random bytes: %w", err)
		}
		n := binary.BigEndian.Uint64(buf[:])
		if n < limit {
			if n > uint64(math.MaxInt) {
				continue
			}
			return int(n % uint64(max)), nil
		}
	}
}

// RandomSystemID generates a random identifier in the remote system's
// system_id style: lowercase alphanumerics of the given length. It is
// randomly generated, not guaranteed globally unique.
func RandomSystemID(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}
	result := make([]byte, length)
	for i := range result {
		idx, err := secureRandomInt(len(systemIDChars))
		if err != nil {
			return "", fmt.Errorf("failed to generate character at position %d: %w", i, err)
		}
		result[i] = systemIDChars[idx]
	}
	return string(result), nil
}
