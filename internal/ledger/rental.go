// rental.go - Time-bounded trust for transient (rental) plate commitments.
//
// Per-commitment state machine: Unregistered -> Valid(expiry), where every
// successful ownership proof resets expiry to now + window (absolute, not
// additive). Expiry is evaluated lazily at read time; there are no background
// timers and records are never deleted - a lapsed commitment revives on the
// next successful proof.

package ledger

import (
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ValidityWindow is how long one successful proof vouches for a rental plate.
const ValidityWindow = 12 * time.Hour

// RentalTracker tracks validity windows per commitment.
type RentalTracker struct {
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger

	mu       sync.Mutex
	expiries map[string]time.Time
}

// NewRentalTracker creates a tracker. A zero window defaults to
// ValidityWindow; a nil clock defaults to time.Now.
func NewRentalTracker(window time.Duration, now func() time.Time, log zerolog.Logger) *RentalTracker {
	if window <= 0 {
		window = ValidityWindow
	}
	if now == nil {
		now = time.Now
	}
	return &RentalTracker{
		window:   window,
		now:      now,
		log:      log,
		expiries: make(map[string]time.Time),
	}
}

// Affirm records a successful ownership proof for the commitment, setting its
// expiry to now + window. First call registers; later calls reverify. Returns
// the new expiry.
func (t *RentalTracker) Affirm(cm *big.Int) time.Time {
	expiry := t.now().Add(t.window)
	key := cm.String()

	t.mu.Lock()
	t.expiries[key] = expiry
	t.mu.Unlock()

	t.log.Info().
		Str("commitment", key).
		Time("expiry", expiry).
		Msg("rental validity affirmed")
	return expiry
}

// IsValid reports whether the commitment is registered and unexpired at read
// time. Unregistered commitments read as invalid; expired ones as expired.
func (t *RentalTracker) IsValid(cm *big.Int) bool {
	t.mu.Lock()
	expiry, ok := t.expiries[cm.String()]
	t.mu.Unlock()
	return ok && !t.now().After(expiry)
}

// Expiry returns the recorded expiry and whether the commitment was ever
// registered. Lapsed records remain readable.
func (t *RentalTracker) Expiry(cm *big.Int) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.expiries[cm.String()]
	return expiry, ok
}
