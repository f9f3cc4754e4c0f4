// commitment.go - Native (off-circuit) commitment computation.
//
// Mirrors the in-circuit relation bit-for-bit: gnark-crypto's BN254 MiMC over
// the 8 encoded slots followed by the salt, each absorbed as a reduced field
// element. The digest is public; the preimage never leaves the caller.

package commitment

import (
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"platewallet/internal/plate"
)

// Compute derives the commitment of an encoding. Deterministic: the same
// slots and salt always produce the same digest.
func Compute(enc *plate.Encoding) *big.Int {
	h := mimcNative.NewMiMC()
	for _, el := range enc.Elements {
		writeElement(h, el)
	}
	writeElement(h, enc.Salt)
	return new(big.Int).SetBytes(h.Sum(nil))
}

// writeElement absorbs a value as a canonical 32-byte field element, matching
// what the in-circuit hasher sees.
func writeElement(h hash.Hash, v *big.Int) {
	var e fr.Element
	e.SetBigInt(v)
	b := e.Bytes()
	h.Write(b[:])
}
