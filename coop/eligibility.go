package coop

import (
	"math"
	"time"
)

// Refund eligibility rules. All date arithmetic is calendar-aware
// (AddDate), not 365-day approximation, so leap years behave correctly.

// IsRefundEligible reports whether one calendar year has elapsed since the
// member's date of joining. Members without a recorded joining date are
// never eligible.
func IsRefundEligible(m *Member, clock Clock) bool {
	joined := m.Payment.DateOfJoining
	if joined == nil {
		return false
	}
	due := joined.AddDate(1, 0, 0)
	return !clock.Now().Before(due)
}

// DaysUntilEligible returns how many whole days remain until the member
// completes one calendar year of membership, clamped at zero once elapsed.
// The boolean is false when no joining date is recorded.
func DaysUntilEligible(m *Member, clock Clock) (int, bool) {
	joined := m.Payment.DateOfJoining
	if joined == nil {
		return 0, false
	}

	due := joined.AddDate(1, 0, 0)
	remaining := due.Sub(clock.Now())
	if remaining <= 0 {
		return 0, true
	}
	return int(math.Ceil(remaining.Hours() / 24)), true
}

// RefundBuckets is the exact three-way partition of a member snapshot for
// refund processing. Every member lands in exactly one bucket.
type RefundBuckets struct {
	Eligible []*Member // one year elapsed, not yet refunded
	Waiting  []*Member // not yet one year (or joining date unknown)
	Refunded []*Member // refund already processed
}

// PartitionRefundBuckets splits members into refund buckets. The Refunded
// flag wins over eligibility; members without a joining date wait until an
// administrator records one.
func PartitionRefundBuckets(members []*Member, clock Clock) RefundBuckets {
	var buckets RefundBuckets
	for _, m := range members {
		switch {
		case m.Payment.Refunded:
			buckets.Refunded = append(buckets.Refunded, m)
		case IsRefundEligible(m, clock):
			buckets.Eligible = append(buckets.Eligible, m)
		default:
			buckets.Waiting = append(buckets.Waiting, m)
		}
	}
	return buckets
}

// daysBetween returns the whole days from now until target, rounded up;
// negative when the target is already past.
func daysBetween(now, target time.Time) int {
	return int(math.Ceil(target.Sub(now).Hours() / 24))
}
