// address.go - Deterministic pre-deployment address derivation.
//
// Accounts live at counterfactual addresses computed with the CREATE2 formula:
// address = last20(keccak256(0xff ++ deployer ++ salt ++ keccak256(initCode))).
// The init code embeds only the commitment, so the address is a pure function
// of (deployer, commitment, deploymentSalt) and can be handed out before the
// account exists.

package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Address is a 20-byte account address on the host ledger.
type Address [20]byte

// Hex returns the 0x-prefixed hex form of the address.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ParseAddress decodes a 0x-prefixed or bare 40-char hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("invalid address %q: want %d bytes, got %d", s, len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// accountInitCodePrefix versions the account init code; bumping it moves every
// derived address, which is the intended behavior for incompatible accounts.
var accountInitCodePrefix = []byte("platewallet/account/v1")

// initCode builds the deterministic account init code for a commitment.
func initCode(cm *big.Int) []byte {
	code := make([]byte, 0, len(accountInitCodePrefix)+32)
	code = append(code, accountInitCodePrefix...)
	var cmBytes [32]byte
	cm.FillBytes(cmBytes[:])
	return append(code, cmBytes[:]...)
}

// PredictAddress computes the counterfactual address for a commitment under a
// deployer and deployment salt. Invariant: the returned address equals the
// post-deployment address for the same triple; distinct salts yield
// independent accounts for the same commitment.
func PredictAddress(deployer Address, cm *big.Int, deploymentSalt uint64) Address {
	var salt [32]byte
	binary.BigEndian.PutUint64(salt[24:], deploymentSalt)

	codeHash := keccak256(initCode(cm))

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{0xff})
	h.Write(deployer[:])
	h.Write(salt[:])
	h.Write(codeHash)
	sum := h.Sum(nil)

	var addr Address
	copy(addr[:], sum[12:])
	return addr
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
