// verifier.go - On-ledger Groth16 verification of ownership proofs.
//
// Verification cost is independent of circuit size (three pairings plus one
// multi-scalar multiplication over the public inputs), which keeps it inside
// the fixed per-call resource budget of the host ledger.

package ledger

import (
	"bytes"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"

	"platewallet/internal/commitment"
)

// Verifier checks ownership proofs against the circuit's verifying key.
// Stateless and safe for concurrent use.
type Verifier struct {
	vk  groth16.VerifyingKey
	log zerolog.Logger
}

// NewVerifier wires a verifying key. The logger only ever sees public inputs.
func NewVerifier(vk groth16.VerifyingKey, log zerolog.Logger) *Verifier {
	return &Verifier{vk: vk, log: log}
}

// Verify runs the pairing check of proofBytes against publicInputs, which
// must be exactly [commitment]. An attacker-controlled proof is an expected
// input: any corrupt, malformed, or mismatched proof yields false, never a
// panic or an error masking invalidity.
func (v *Verifier) Verify(proofBytes []byte, publicInputs []*big.Int) bool {
	if len(publicInputs) != 1 || publicInputs[0] == nil {
		return false
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false
	}

	assignment := &commitment.OwnershipCircuit{Commitment: publicInputs[0]}
	public, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false
	}

	ok := groth16.Verify(proof, v.vk, public) == nil
	v.log.Debug().
		Str("commitment", publicInputs[0].String()).
		Bool("valid", ok).
		Msg("ownership proof verified")
	return ok
}
