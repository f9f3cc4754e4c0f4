// prover.go - Groth16 proof generation for the plate ownership relation.
//
// Produces succinct proofs that the caller knows a preimage of a public
// commitment, using precompiled proving artifacts. Witness material is
// method-local and cleared once the proof exists; only the proof bytes and
// the public commitment leave this package.

package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"

	"platewallet/internal/commitment"
	"platewallet/internal/plate"
)

// DefaultDeadline bounds a single proof generation.
const DefaultDeadline = 5 * time.Second

var (
	// ErrTimeout reports a proof generation exceeding its deadline. Retryable.
	ErrTimeout = errors.New("proof generation timed out")
	// ErrWitnessGeneration reports an unsatisfiable or malformed witness. Retryable with a fresh salt.
	ErrWitnessGeneration = errors.New("witness generation failed")
	// ErrKeyLoad reports missing or unreadable proving artifacts.
	ErrKeyLoad = errors.New("proving key load failed")
)

// Proof is an opaque succinct certificate plus its public-input vector.
// PublicSignals always has length 1 and carries exactly the commitment.
// Ephemeral: never persisted past verification.
type Proof struct {
	Data          []byte
	PublicSignals []*big.Int
}

// Prover holds the compiled ownership relation and its Groth16 key material.
// Stateless across calls; safe for concurrent use by distinct derivations.
type Prover struct {
	ccs      constraint.ConstraintSystem
	pk       groth16.ProvingKey
	vk       groth16.VerifyingKey
	deadline time.Duration
	log      zerolog.Logger
}

// Compile builds the ownership constraint system. Exposed so callers that
// manage keys themselves (tests, key ceremonies) share one compilation path.
func Compile() (constraint.ConstraintSystem, error) {
	var circuit commitment.OwnershipCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("ownership circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// New wraps an already-compiled system and key pair.
func New(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, deadline time.Duration, log zerolog.Logger) *Prover {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Prover{ccs: ccs, pk: pk, vk: vk, deadline: deadline, log: log}
}

// Load compiles the relation and loads precompiled keys from keyDir,
// failing with ErrKeyLoad if the artifacts are absent or unreadable.
func Load(keyDir string, deadline time.Duration, log zerolog.Logger) (*Prover, error) {
	ccs, err := Compile()
	if err != nil {
		return nil, err
	}
	pk, err := loadProvingKey(provingKeyPath(keyDir))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLoad, err)
	}
	vk, err := loadVerifyingKey(verifyingKeyPath(keyDir))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLoad, err)
	}
	return New(ccs, pk, vk, deadline, log), nil
}

// SetupOrLoad loads keys from keyDir if present, otherwise runs the Groth16
// setup and persists the fresh pair.
func SetupOrLoad(keyDir string, deadline time.Duration, log zerolog.Logger) (*Prover, error) {
	p, err := Load(keyDir, deadline, log)
	if err == nil {
		return p, nil
	}
	ccs, err := Compile()
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	if err := saveKey(provingKeyPath(keyDir), pk); err != nil {
		return nil, err
	}
	if err := saveKey(verifyingKeyPath(keyDir), vk); err != nil {
		return nil, err
	}
	log.Info().Str("key_dir", keyDir).Msg("generated fresh ownership keys")
	return New(ccs, pk, vk, deadline, log), nil
}

// VerifyingKey exposes the verifying key for ledger-side wiring.
func (p *Prover) VerifyingKey() groth16.VerifyingKey {
	return p.vk
}

// Prove computes the witness and a Groth16 proof that enc opens cm.
// Blocks until done or the deadline elapses, whichever is first. The witness
// assignment is zeroized before returning; the caller clears enc itself.
func (p *Prover) Prove(ctx context.Context, enc *plate.Encoding, cm *big.Int) (*Proof, error) {
	assignment := &commitment.OwnershipCircuit{
		Commitment: new(big.Int).Set(cm),
		Salt:       new(big.Int).Set(enc.Salt),
	}
	for i, el := range enc.Elements {
		assignment.Elements[i] = new(big.Int).Set(el)
	}
	defer clearAssignment(assignment)

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWitnessGeneration, err)
	}

	type result struct {
		proof groth16.Proof
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		proof, err := groth16.Prove(p.ccs, p.pk, witness)
		done <- result{proof, err}
	}()

	timer := time.NewTimer(p.deadline)
	defer timer.Stop()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWitnessGeneration, r.err)
		}
		var buf bytes.Buffer
		if _, err := r.proof.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("proof marshaling failed: %w", err)
		}
		p.log.Debug().
			Str("commitment", cm.String()).
			Dur("elapsed", time.Since(start)).
			Msg("ownership proof produced")
		return &Proof{
			Data:          buf.Bytes(),
			PublicSignals: []*big.Int{new(big.Int).Set(cm)},
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// VerifyLocally pre-screens a proof before incurring any ledger cost.
// Any malformed or mismatched proof yields false.
func (p *Prover) VerifyLocally(proof *Proof) bool {
	if proof == nil || len(proof.PublicSignals) != 1 {
		return false
	}
	g16Proof := groth16.NewProof(ecc.BN254)
	if _, err := g16Proof.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
		return false
	}
	public, err := PublicWitness(proof.PublicSignals[0])
	if err != nil {
		return false
	}
	return groth16.Verify(g16Proof, p.vk, public) == nil
}

// PublicWitness rebuilds the public-only witness for a commitment. Shared by
// the local pre-screen and the ledger verifier.
func PublicWitness(cm *big.Int) (witness.Witness, error) {
	assignment := &commitment.OwnershipCircuit{Commitment: cm}
	return frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
}

// clearAssignment zeroizes the private slots of a spent witness assignment.
func clearAssignment(a *commitment.OwnershipCircuit) {
	for i := range a.Elements {
		if v, ok := a.Elements[i].(*big.Int); ok {
			v.SetUint64(0)
		}
	}
	if v, ok := a.Salt.(*big.Int); ok {
		v.SetUint64(0)
	}
}

func provingKeyPath(keyDir string) string {
	return filepath.Join(keyDir, "ownership_pk.bin")
}

func verifyingKeyPath(keyDir string) string {
	return filepath.Join(keyDir, "ownership_vk.bin")
}
