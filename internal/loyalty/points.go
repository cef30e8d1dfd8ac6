// Package loyalty holds the points program: the earn rate applied when an
// order is finalized and the discount tiers evaluated at checkout.
package loyalty

// One point per ten currency units paid.
const centsPerPoint = 1000

func EarnedPoints(amountCents int64) int {
	if amountCents <= 0 {
		return 0
	}
	return int(amountCents / centsPerPoint)
}

// Tier unlocks a fixed-percentage discount when both the point balance and
// the cart total reach its thresholds. Redeeming consumes the point
// threshold, not the whole balance.
type Tier struct {
	MinPoints     int
	MinTotalCents int64
	Percent       int
	RedeemPoints  int
}

// Tiers are evaluated first-match in descending threshold order and are
// never stacked.
var tiers = []Tier{
	{MinPoints: 1000, MinTotalCents: 50_000, Percent: 15, RedeemPoints: 1000},
	{MinPoints: 500, MinTotalCents: 20_000, Percent: 10, RedeemPoints: 500},
	{MinPoints: 200, MinTotalCents: 10_000, Percent: 5, RedeemPoints: 200},
}

func MatchTier(points int, totalCents int64) (Tier, bool) {
	for _, t := range tiers {
		if points >= t.MinPoints && totalCents >= t.MinTotalCents {
			return t, true
		}
	}
	return Tier{}, false
}

func (t Tier) DiscountCents(totalCents int64) int64 {
	return totalCents * int64(t.Percent) / 100
}
