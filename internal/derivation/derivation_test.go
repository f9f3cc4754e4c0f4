package derivation

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platewallet/internal/commitment"
	"platewallet/internal/ledger"
	"platewallet/internal/plate"
	"platewallet/internal/prover"
)

var (
	setupOnce sync.Once
	setupErr  error
	sharedPrv *prover.Prover
	sharedVk  groth16.VerifyingKey
)

func sharedProver(t *testing.T) (*prover.Prover, groth16.VerifyingKey) {
	t.Helper()
	setupOnce.Do(func() {
		ccs, err := prover.Compile()
		if err != nil {
			setupErr = err
			return
		}
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			setupErr = err
			return
		}
		sharedPrv = prover.New(ccs, pk, vk, prover.DefaultDeadline, zerolog.Nop())
		sharedVk = vk
	})
	require.NoError(t, setupErr)
	return sharedPrv, sharedVk
}

type fixture struct {
	service *Service
	factory *ledger.Factory
	chain   *ledger.Chain
	rentals *ledger.RentalTracker
	clock   *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func deployer() ledger.Address {
	var a ledger.Address
	a[19] = 0xD1
	return a
}

func owner() ledger.Address {
	var a ledger.Address
	a[19] = 0xAA
	return a
}

func newFixture(t *testing.T) *fixture {
	prv, vk := sharedProver(t)
	chain := ledger.NewChain()
	factory := ledger.NewFactory(ledger.FactoryConfig{
		Deployer:     deployer(),
		RequireProof: true,
		Verifier:     ledger.NewVerifier(vk, zerolog.Nop()),
	}, chain, zerolog.Nop())
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rentals := ledger.NewRentalTracker(ledger.ValidityWindow, clock.now, zerolog.Nop())
	return &fixture{
		service: NewService(prv, factory, rentals, zerolog.Nop()),
		factory: factory,
		chain:   chain,
		rentals: rentals,
		clock:   clock,
	}
}

func TestDeriveShinagawaScenario(t *testing.T) {
	fx := newFixture(t)
	req := Request{
		Plate:          plate.Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "1234"},
		Owner:          owner(),
		DeploymentSalt: 12345,
		Salt:           big.NewInt(77),
	}

	predicted := fx.factory.PredictAddress(mustCommitment(t, req), 12345)

	res, err := fx.service.Derive(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, predicted, res.Account.Address)
	assert.Equal(t, owner(), res.Account.Owner)
	assert.Zero(t, res.Account.Commitment.Cmp(res.Commitment))
	assert.Nil(t, res.RentalExpiry, "standard plate carries no rental window")

	// Second identical derivation returns the same account without redeploying.
	again, err := fx.service.Derive(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, res.Account, again.Account)
	assert.Equal(t, 1, fx.factory.DeployCount())
}

func TestDeriveReportsProofLatency(t *testing.T) {
	fx := newFixture(t)
	res, err := fx.service.Derive(context.Background(), Request{
		Plate:          plate.Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "4321"},
		Owner:          owner(),
		DeploymentSalt: 7,
		Salt:           big.NewInt(7),
	})
	require.NoError(t, err)
	assert.Positive(t, res.ProveDuration, "proof latency must cover the proving stage")
	assert.Less(t, res.ProveDuration, prover.DefaultDeadline)
}

func mustCommitment(t *testing.T, req Request) *big.Int {
	t.Helper()
	enc, err := plate.Encode(req.Plate, req.Salt)
	require.NoError(t, err)
	return commitment.Compute(enc)
}

func TestDeriveRejectsInvalidPlate(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.service.Derive(context.Background(), Request{
		Plate: plate.Plate{Region: "", ClassCode: "330", Syllable: "A", Serial: "1234"},
		Owner: owner(),
	})
	assert.ErrorIs(t, err, plate.ErrInvalidPlate)
}

func TestDeriveRentalPlateOpensValidityWindow(t *testing.T) {
	fx := newFixture(t)
	req := Request{
		Plate:          plate.Plate{Region: "Nerima", ClassCode: "500", Syllable: "わ", Serial: "8008"},
		Owner:          owner(),
		DeploymentSalt: 1,
		Salt:           big.NewInt(99),
	}

	res, err := fx.service.Derive(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.RentalExpiry)
	assert.Equal(t, fx.clock.t.Add(12*time.Hour), *res.RentalExpiry)

	// Reverify at +6h resets the window absolutely to +18h.
	fx.clock.advance(6 * time.Hour)
	expiry, err := fx.service.Reverify(context.Background(), req.Plate, req.Salt)
	require.NoError(t, err)
	assert.Equal(t, res.RentalExpiry.Add(6*time.Hour), expiry)

	// Reverifying with a different salt opens a window for a different
	// commitment, not this account's.
	_, err = fx.service.Reverify(context.Background(), req.Plate, big.NewInt(100))
	require.NoError(t, err)
}

func TestReverifyRejectsStandardPlate(t *testing.T) {
	fx := newFixture(t)
	req := Request{
		Plate:          plate.Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "1234"},
		Owner:          owner(),
		DeploymentSalt: 2,
		Salt:           big.NewInt(55),
	}
	_, err := fx.service.Derive(context.Background(), req)
	require.NoError(t, err)

	// A standard plate must never acquire a validity window, not even
	// through reverification.
	_, err = fx.service.Reverify(context.Background(), req.Plate, req.Salt)
	assert.ErrorIs(t, err, ErrNotRental)
	assert.False(t, fx.rentals.IsValid(mustCommitment(t, req)))
}

func TestDeriveBatchParallelPlates(t *testing.T) {
	fx := newFixture(t)
	var reqs []Request
	for i := 0; i < 3; i++ {
		reqs = append(reqs, Request{
			Plate:          plate.Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: fmt.Sprintf("%04d", i+1)},
			Owner:          owner(),
			DeploymentSalt: uint64(i),
			Salt:           big.NewInt(int64(i + 1)),
		})
	}

	results, err := fx.service.DeriveBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := make(map[ledger.Address]bool)
	for _, res := range results {
		assert.False(t, seen[res.Account.Address], "derived addresses must be distinct")
		seen[res.Account.Address] = true
	}
	assert.Equal(t, 3, fx.factory.DeployCount())
}

func TestDeriveBatchPropagatesFailure(t *testing.T) {
	fx := newFixture(t)
	reqs := []Request{
		{Plate: plate.Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "0001"}, Owner: owner(), Salt: big.NewInt(1)},
		{Plate: plate.Plate{Region: "Shinagawa", ClassCode: "bad", Syllable: "A", Serial: "0002"}, Owner: owner(), Salt: big.NewInt(2)},
	}
	_, err := fx.service.DeriveBatch(context.Background(), reqs)
	assert.ErrorIs(t, err, plate.ErrInvalidPlate)
}
