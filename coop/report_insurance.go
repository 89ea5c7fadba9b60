package coop

import (
	"sort"
)

// DefaultExpiryHorizonMonths is the lookahead window for the insurance
// expiry report.
const DefaultExpiryHorizonMonths = 2

// ExpiryRow is one row of the insurance expiry report.
type ExpiryRow struct {
	MemberID  string
	Name      string
	Phone     string
	Category  string
	Plan      string
	Date      string // policy anniversary, DD Mon YYYY
	DaysToDue int    // zero or negative for overdue policies
}

// BuildInsuranceExpiryReport lists every (member, category) whose policy is
// enabled and whose anniversary falls within horizonMonths of now.
//
// There is deliberately no lower bound: already-past anniversaries are
// included with zero or negative days-to-due, so overdue renewals surface
// at the top instead of disappearing. Rows sort ascending by days-to-due,
// most overdue first, ties broken by member name for determinism.
func BuildInsuranceExpiryReport(members []*Member, horizonMonths int, clock Clock) []ExpiryRow {
	if horizonMonths <= 0 {
		horizonMonths = DefaultExpiryHorizonMonths
	}

	now := clock.Now()
	cutoff := now.AddDate(0, horizonMonths, 0)

	var rows []ExpiryRow
	for _, m := range members {
		for _, category := range InsuranceCategories {
			policy, ok := m.Insurance[category]
			if !ok || !policy.Enabled || policy.Date == nil {
				continue
			}
			if policy.Date.After(cutoff) {
				continue
			}

			rows = append(rows, ExpiryRow{
				MemberID:  m.ID,
				Name:      m.MembershipName(),
				Phone:     m.Phone,
				Category:  category,
				Plan:      policy.Plan,
				Date:      policy.Date.Format(ledgerDateFormat),
				DaysToDue: daysBetween(now, *policy.Date),
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DaysToDue != rows[j].DaysToDue {
			return rows[i].DaysToDue < rows[j].DaysToDue
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// InterestRow is one row of an insurance interest or work interest list.
type InterestRow struct {
	MemberID string
	Name     string
	Phone    string
}

// BuildInterestList lists members interested in coverage for a category:
// they want insurance and do not already have it. A member with an enabled
// policy is covered, not interested, regardless of the want flag.
func BuildInterestList(members []*Member, category string) []InterestRow {
	var rows []InterestRow
	for _, m := range members {
		policy, ok := m.Insurance[category]
		if !ok {
			continue
		}
		if policy.Enabled || !policy.WantInsurance {
			continue
		}
		rows = append(rows, InterestRow{
			MemberID: m.ID,
			Name:     m.MembershipName(),
			Phone:    m.Phone,
		})
	}
	return rows
}

// BuildWorkInterestList lists members whose top-level willing-to-work flag
// is set. Independent of any insurance category.
func BuildWorkInterestList(members []*Member) []InterestRow {
	var rows []InterestRow
	for _, m := range members {
		if !m.WillingToWork {
			continue
		}
		rows = append(rows, InterestRow{
			MemberID: m.ID,
			Name:     m.MembershipName(),
			Phone:    m.Phone,
		})
	}
	return rows
}
