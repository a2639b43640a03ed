package domain

import (
	"math"
	"time"
)

const (
	DefaultFirstHourRate = 10.0
	DefaultExtraHourRate = 5.0
)

// FeePolicy charges FirstHourRate for the first hour and ExtraHourRate for every
// started hour after it. Every stay is billed at least one hour.
type FeePolicy struct {
	FirstHourRate float64
	ExtraHourRate float64
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{FirstHourRate: DefaultFirstHourRate, ExtraHourRate: DefaultExtraHourRate}
}

// BillableHours is the number of hours charged for a stay, never less than one.
// Every started hour counts: 61 minutes bill as two hours. Truncating to whole
// hours would let a 1h59min stay pay the first-hour rate only, so a 65 or 90
// minute stay would cost 10 instead of 15.
func BillableHours(stay time.Duration) int64 {
	hours := int64(math.Ceil(stay.Seconds() / 3600))
	if hours < 1 {
		return 1
	}
	return hours
}

// ComputeFee returns the amount due for a stay from entry to exit. exit must not be
// before entry.
func (p FeePolicy) ComputeFee(entry, exit time.Time) float64 {
	extra := BillableHours(exit.Sub(entry)) - 1
	return RoundAmount(p.FirstHourRate + float64(extra)*p.ExtraHourRate)
}

// RoundAmount rounds to cents, halves away from zero.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
