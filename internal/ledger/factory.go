// factory.go - Idempotent create-or-fetch of accounts at derived addresses.
//
// Each (deployer, commitment, deploymentSalt) key walks a monotonic, terminal
// state machine Undeployed -> Deployed. Deployment is optionally gated on a
// successful ownership proof; a second call with the same key - sequential or
// racing - takes the already-deployed path and returns the existing account.

package ledger

import (
	"errors"
	"math/big"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrProofRequired reports gated creation called without a proof. Operator-level wiring fault.
	ErrProofRequired = errors.New("proof required for account creation")
	// ErrVerifierNotConfigured reports gated creation with no verifier wired. Operator-level wiring fault.
	ErrVerifierNotConfigured = errors.New("verifier not configured")
	// ErrProofInvalid reports a proof the verifier rejected.
	ErrProofInvalid = errors.New("ownership proof invalid")
)

// FactoryConfig is injected per factory instance; no ambient global state, so
// multiple differently-gated factories can coexist in one process.
type FactoryConfig struct {
	Deployer     Address
	RequireProof bool
	Verifier     *Verifier
}

type deployKey struct {
	commitment string
	salt       uint64
}

// Factory deploys plate-derived accounts on a chain.
type Factory struct {
	cfg   FactoryConfig
	chain *Chain
	log   zerolog.Logger

	mu       sync.Mutex
	deployed map[deployKey]Address
	deploys  int
}

// NewFactory creates a factory bound to one deployer identity and one chain.
func NewFactory(cfg FactoryConfig, chain *Chain, log zerolog.Logger) *Factory {
	return &Factory{
		cfg:      cfg,
		chain:    chain,
		log:      log,
		deployed: make(map[deployKey]Address),
	}
}

// PredictAddress returns the counterfactual address this factory would deploy
// to for a commitment and deployment salt.
func (f *Factory) PredictAddress(cm *big.Int, deploymentSalt uint64) Address {
	return PredictAddress(f.cfg.Deployer, cm, deploymentSalt)
}

// CreateOrGet deploys the account for (commitment, deploymentSalt) or returns
// the existing one. proofBytes may be nil on the ungated path; on the gated
// path it is verified against [commitment] before any state changes.
func (f *Factory) CreateOrGet(owner Address, cm *big.Int, deploymentSalt uint64, proofBytes []byte) (*Account, error) {
	key := deployKey{commitment: cm.String(), salt: deploymentSalt}
	addr := f.PredictAddress(cm, deploymentSalt)

	f.mu.Lock()
	defer f.mu.Unlock()

	// Already-deployed path: idempotent, proof not re-examined.
	if _, ok := f.deployed[key]; ok {
		acct, _ := f.chain.Account(addr)
		return acct, nil
	}

	switch f.cfg.RequireProof {
	case true:
		if f.cfg.Verifier == nil {
			return nil, ErrVerifierNotConfigured
		}
		if proofBytes == nil {
			return nil, ErrProofRequired
		}
		if !f.cfg.Verifier.Verify(proofBytes, []*big.Int{cm}) {
			return nil, ErrProofInvalid
		}
	case false:
		// Ungated creation: deploy on request.
	}

	acct, created := f.chain.deploy(addr, owner, cm)
	f.deployed[key] = addr
	if created {
		f.deploys++
		f.log.Info().
			Str("address", addr.Hex()).
			Str("commitment", cm.String()).
			Uint64("deployment_salt", deploymentSalt).
			Msg("account deployed")
	}
	return acct, nil
}

// DeployCount returns how many deployment events this factory has fired.
func (f *Factory) DeployCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deploys
}
