package coop

import (
	"sort"
)

// ledgerDateFormat is the audit-ready display format for effective dates.
const ledgerDateFormat = "02 Jan 2006"

// LedgerRow is one serial-numbered row of the monthly investment ledger.
// Column order is part of the exported-report contract (see columns.go);
// downstream spreadsheet generation preserves it verbatim.
type LedgerRow struct {
	Serial  int
	Date    string // effective date, DD Mon YYYY
	Name    string // "<membershipId> <name>", id omitted when absent
	Receipt string
	Amount  float64
	Fine    float64
	// Blank audit-tracking columns, reserved for manual completion.
	EnteredBy string
	CheckedBy string
	Remarks   string
}

// BuildInvestmentLedger builds the ordered investment ledger for one
// period. Members without an investment fact for the period are skipped.
// Rows sort ascending by the numeric sequence embedded in the receipt
// label (absent or non-numeric receipts sort first as zero), and serials
// are assigned positionally after the sort — they are recomputed on every
// call and never derived from stored ids.
func BuildInvestmentLedger(members []*Member, year int, month string) []LedgerRow {
	facts := make([]PeriodFact, 0, len(members))
	for _, m := range members {
		if fact, ok := memberFact(m, year, month); ok {
			facts = append(facts, fact)
		}
	}

	sort.SliceStable(facts, func(i, j int) bool {
		return receiptNumber(facts[i].Receipt) < receiptNumber(facts[j].Receipt)
	})

	rows := make([]LedgerRow, 0, len(facts))
	for i, fact := range facts {
		date := ""
		if fact.Date != nil {
			date = fact.Date.Format(ledgerDateFormat)
		}

		name := fact.MemberName
		if fact.MembershipID != "" {
			name = fact.MembershipID + " " + fact.MemberName
		}

		rows = append(rows, LedgerRow{
			Serial:  i + 1,
			Date:    date,
			Name:    name,
			Receipt: fact.Receipt,
			Amount:  fact.Amount,
			Fine:    fact.Fine,
		})
	}
	return rows
}

// receiptNumber extracts the numeric sequence embedded in a receipt label
// ("REC-27" → 27). Labels without digits parse as 0 so they sort first.
func receiptNumber(receipt string) int {
	n := 0
	seen := false
	for _, r := range receipt {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
		} else if seen {
			break
		}
	}
	if !seen {
		return 0
	}
	return n
}
