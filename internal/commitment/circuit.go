// circuit.go - Arithmetic relations for the plate commitment.
//
// Two composed relations over BN254: the commitment relation (one MiMC sponge
// over the 8 encoded slots plus salt) and the ownership relation, which
// re-derives the commitment in-circuit and binds it to the single public input.

package commitment

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"platewallet/internal/plate"
)

// Commit is the commitment relation as a constrained subroutine:
// one MiMC hash over the 9 field inputs, returning the digest variable.
func Commit(api frontend.API, elements [plate.NumElements]frontend.Variable, salt frontend.Variable) (frontend.Variable, error) {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	for _, el := range elements {
		hasher.Write(el)
	}
	hasher.Write(salt)
	return hasher.Sum(), nil
}

// OwnershipCircuit proves knowledge of a preimage of the public commitment
// without revealing it. The commitment is the only public input; a zero-valued
// slot is an ordinary input, not a special case.
type OwnershipCircuit struct {
	Commitment frontend.Variable `gnark:",public"`

	Elements [plate.NumElements]frontend.Variable
	Salt     frontend.Variable
}

// Define re-derives the commitment relation and asserts algebraic equality.
// No satisfying witness exists unless the digests match over the field.
func (c *OwnershipCircuit) Define(api frontend.API) error {
	cm, err := Commit(api, c.Elements, c.Salt)
	if err != nil {
		return err
	}
	api.AssertIsEqual(c.Commitment, cm)
	return nil
}
