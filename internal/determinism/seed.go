// Package determinism derives stable seeds for reproducible engine runs.
package determinism

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// GenerateSeed derives a stable uint64 seed from two identifying strings,
// typically the repository and model. Identical inputs always yield the
// same seed. The high bit is cleared so the value fits APIs that take a
// signed 64-bit seed.
func GenerateSeed(scope, variant string) uint64 {
	input := fmt.Sprintf("%s|%s", scope, variant)
	hash := sha256.Sum256([]byte(input))
	seed := binary.BigEndian.Uint64(hash[:8])
	return seed & 0x7FFFFFFFFFFFFFFF
}
