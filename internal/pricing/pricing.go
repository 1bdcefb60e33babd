// Package pricing maps a drop's supply and demand to a whole-dollar price.
package pricing

import "math"

const (
	abundantSupply = 0.5
	scarceSupply   = 0.2
	highDemand     = 0.7
)

// Inputs are the drop counters the price depends on.
type Inputs struct {
	TotalBoxes     int
	RemainingBoxes int
	ReservedBoxes  int
	PriceMin       int
	PriceMax       int
}

// Price returns a value in [PriceMin, PriceMax]. It is pure; callers freeze the
// result onto a reservation at reserve time.
func Price(in Inputs) int {
	if in.TotalBoxes <= 0 {
		return in.PriceMin
	}

	total := float64(in.TotalBoxes)
	supply := float64(in.RemainingBoxes) / total
	demand := float64(in.ReservedBoxes) / total

	if supply > abundantSupply {
		return in.PriceMin
	}
	if supply < scarceSupply && demand > highDemand {
		return in.PriceMax
	}

	lo, hi := float64(in.PriceMin), float64(in.PriceMax)
	raw := lo + (hi-lo)*(1-supply)*demand
	raw = math.Max(lo, math.Min(hi, raw))
	return int(math.Round(raw))
}
