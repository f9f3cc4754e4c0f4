// derivation.go - End-to-end account derivation pipeline.
//
// One plate's flow is strictly sequential: encode -> commit -> prove ->
// pre-screen -> create-or-get -> (rental only) affirm validity. Stages across
// distinct plates share no mutable state and run in parallel in DeriveBatch.
// Private material (slots, salt, witness) is cleared before returning.

package derivation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"platewallet/internal/commitment"
	"platewallet/internal/ledger"
	"platewallet/internal/plate"
	"platewallet/internal/prover"
)

var (
	// ErrProofRejected reports a freshly produced proof failing verification.
	ErrProofRejected = errors.New("proof rejected")
	// ErrNotRental reports a reverification attempt for a standard-class plate,
	// which carries no validity window.
	ErrNotRental = errors.New("plate is not rental-class")
)

// Request describes one derivation. Salt may be nil for a fresh random salt;
// callers that intend to reverify a rental plate later must supply and retain
// their own salt, since the commitment is a function of it.
type Request struct {
	Plate          plate.Plate
	Owner          ledger.Address
	DeploymentSalt uint64
	Salt           *big.Int
}

// Result is what leaves the trust boundary: the deployed account, its public
// commitment, the rental expiry when the plate is transient-class, and how
// long proof generation took.
type Result struct {
	Account       *ledger.Account
	Commitment    *big.Int
	RentalExpiry  *time.Time
	ProveDuration time.Duration
}

// Service wires the pipeline stages. Stateless across derivations; safe for
// concurrent use.
type Service struct {
	prover  *prover.Prover
	factory *ledger.Factory
	rentals *ledger.RentalTracker
	log     zerolog.Logger
}

// NewService builds a derivation service over a prover, factory and rental
// tracker. All three are required.
func NewService(p *prover.Prover, f *ledger.Factory, r *ledger.RentalTracker, log zerolog.Logger) *Service {
	return &Service{prover: p, factory: f, rentals: r, log: log}
}

// Derive runs the full pipeline for one plate and returns the account handle.
func (s *Service) Derive(ctx context.Context, req Request) (*Result, error) {
	enc, err := plate.Encode(req.Plate, req.Salt)
	if err != nil {
		return nil, err
	}
	defer enc.Clear()

	cm := commitment.Compute(enc)

	proveStart := time.Now()
	proof, err := s.prover.Prove(ctx, enc, cm)
	if err != nil {
		return nil, err
	}
	proveDuration := time.Since(proveStart)
	if !s.prover.VerifyLocally(proof) {
		return nil, fmt.Errorf("%w: local pre-screen", ErrProofRejected)
	}

	acct, err := s.factory.CreateOrGet(req.Owner, cm, req.DeploymentSalt, proof.Data)
	if err != nil {
		return nil, err
	}

	result := &Result{Account: acct, Commitment: cm, ProveDuration: proveDuration}
	if req.Plate.IsRental() {
		expiry := s.rentals.Affirm(cm)
		result.RentalExpiry = &expiry
	}

	s.log.Info().
		Str("address", acct.Address.Hex()).
		Str("commitment", cm.String()).
		Bool("rental", req.Plate.IsRental()).
		Msg("account derived")
	return result, nil
}

// Reverify re-affirms a rental plate's validity window with a fresh ownership
// proof over the same commitment. The salt must be the one used at derivation
// time, otherwise the commitment (and thus the account) will not match.
// Standard-class plates are rejected: validity state exists only for
// transient identifiers.
func (s *Service) Reverify(ctx context.Context, p plate.Plate, salt *big.Int) (time.Time, error) {
	if !p.IsRental() {
		return time.Time{}, ErrNotRental
	}
	enc, err := plate.Encode(p, salt)
	if err != nil {
		return time.Time{}, err
	}
	defer enc.Clear()

	cm := commitment.Compute(enc)

	proof, err := s.prover.Prove(ctx, enc, cm)
	if err != nil {
		return time.Time{}, err
	}
	if !s.prover.VerifyLocally(proof) {
		return time.Time{}, fmt.Errorf("%w: local pre-screen", ErrProofRejected)
	}
	return s.rentals.Affirm(cm), nil
}

// DeriveBatch derives accounts for independent plates in parallel. The first
// failure cancels the remaining derivations; results keep request order.
func (s *Service) DeriveBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Derive(ctx, req)
			if err != nil {
				return fmt.Errorf("plate %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
