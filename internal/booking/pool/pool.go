package pool

import (
	"errors"
	"fmt"

	"delivery-booking/internal/channel"
	"delivery-booking/internal/common/logger"
	"delivery-booking/internal/common/model"
)

var ErrNoCandidates = errors.New("no candidates for requested vehicle class")

// Sender is the outbound half of the realtime channel.
type Sender interface {
	Send(event string, payload any) error
}

// Pool holds the nearby drivers offered for one search, filtered to the
// requested vehicle class, with a cursor over the next driver to solicit.
// Each server push replaces the previous candidate set; the cursor is
// monotonically non-decreasing across replacements.
type Pool struct {
	vehicleClass model.VehicleClass
	candidates   []model.DriverCandidate
	cursor       int
}

func New(vehicleClass model.VehicleClass) *Pool {
	return &Pool{vehicleClass: vehicleClass}
}

// Request emits the discovery request for this pool's vehicle class around
// the pickup point.
func (p *Pool) Request(ch Sender, origin model.Location) error {
	if err := ch.Send(channel.EventRequestNearby, channel.RequestNearbyPayload{
		VehicleType: p.vehicleClass,
		Latitude:    origin.Latitude,
		Longitude:   origin.Longitude,
	}); err != nil {
		return fmt.Errorf("request nearby drivers: %w", err)
	}
	return nil
}

// Replace installs a freshly pushed candidate set. Drivers of other vehicle
// classes are dropped; the set replaces, never merges. The cursor is kept so
// already-solicited positions are not revisited.
func (p *Pool) Replace(drivers []model.DriverCandidate) {
	filtered := make([]model.DriverCandidate, 0, len(drivers))
	for _, d := range drivers {
		if d.VehicleClass == p.vehicleClass {
			filtered = append(filtered, d)
		}
	}
	// The cursor never moves backwards, even if the new set is smaller;
	// positions already solicited stay solicited and a shrunken set just
	// reads as exhausted.
	p.candidates = filtered
	logger.Debug("pool_replaced",
		fmt.Sprintf("candidate pool replaced: %d eligible of %d pushed", len(filtered), len(drivers)), "", "")
}

// Next returns the candidate at the cursor without advancing it.
func (p *Pool) Next() (model.DriverCandidate, bool) {
	if p.cursor >= len(p.candidates) {
		return model.DriverCandidate{}, false
	}
	return p.candidates[p.cursor], true
}

// Advance moves the cursor past the current candidate.
func (p *Pool) Advance() {
	if p.cursor < len(p.candidates) {
		p.cursor++
	}
}

// Len returns the number of eligible candidates currently held.
func (p *Pool) Len() int { return len(p.candidates) }

// Cursor returns how many candidates have been solicited so far.
func (p *Pool) Cursor() int { return p.cursor }

// Exhausted reports whether every eligible candidate has been solicited.
func (p *Pool) Exhausted() bool { return p.cursor >= len(p.candidates) }
