package coop

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// PeriodFact is a single member's investment fact for one (year, month)
// period, derived fresh on every call and never persisted.
type PeriodFact struct {
	MemberID     string
	MemberName   string
	MembershipID string
	Amount       float64
	Fine         float64
	Receipt      string
	Date         *time.Time
}

// ExtractInvestmentFact resolves an investment fact from a period node.
//
// Storage has two shapes for the same fact: a node that carries the
// investment under a nested "investment" key, and a node that IS the
// investment itself. The nested form is probed first; the probing order is
// part of the contract. Any other shape (absent node, unrelated activity
// type) yields absent, never an error.
func ExtractInvestmentFact(node interface{}) (PeriodFact, bool) {
	m, ok := asStringMap(node)
	if !ok {
		return PeriodFact{}, false
	}

	if nested, ok := asStringMap(m["investment"]); ok {
		return factFromNode(nested), true
	}

	if isInvestmentShaped(m) {
		return factFromNode(m), true
	}

	return PeriodFact{}, false
}

// isInvestmentShaped reports whether a bare node is an investment fact:
// either explicitly typed as one, or untyped but carrying an amount.
func isInvestmentShaped(node map[string]interface{}) bool {
	if typ, ok := node["type"].(string); ok {
		return strings.EqualFold(strings.TrimSpace(typ), "investment")
	}
	_, hasAmount := node["amount"]
	return hasAmount
}

func factFromNode(node map[string]interface{}) PeriodFact {
	return PeriodFact{
		Amount:  parseAmount(node["amount"]),
		Fine:    parseAmount(node["fine"]),
		Receipt: stringField(node, "receipt"),
		Date:    parseDate(node["date"]),
	}
}

// memberFact resolves the activities period node for (year, month) and
// extracts its investment fact, stamped with the owning member's identity.
func memberFact(m *Member, year int, month string) (PeriodFact, bool) {
	node, found := lookupPeriod(m.Activities, year, month)
	if !found {
		return PeriodFact{}, false
	}

	fact, ok := ExtractInvestmentFact(node)
	if !ok {
		return PeriodFact{}, false
	}

	fact.MemberID = m.ID
	fact.MemberName = m.Name
	fact.MembershipID = m.Payment.MembershipID
	return fact, true
}

// CountPaidMembers counts members with a strictly positive payment for the
// period, resolved from the legacy payments tree. The stored value may be a
// bare number, a numeric string, or an object exposing an "amount" field.
func CountPaidMembers(members []*Member, year int, month string) int {
	paid := 0
	for _, m := range members {
		value, found := lookupPeriod(m.Payments, year, month)
		if !found {
			continue
		}
		if paymentAmount(value) > 0 {
			paid++
		}
	}
	return paid
}

func paymentAmount(value interface{}) float64 {
	if node, ok := asStringMap(value); ok {
		return parseAmount(node["amount"])
	}
	return parseAmount(value)
}

// parseAmount normalizes a stored numeric value to a float64. Missing or
// unparseable values normalize to zero (MalformedValue), logged but never
// propagated — one bad member must not blank a whole report.
func parseAmount(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			slog.Warn("Non-numeric amount value", "value", v)
			return 0
		}
		return f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			slog.Warn("Non-numeric amount value", "value", v.String())
			return 0
		}
		return f
	}

	slog.Warn("Unexpected amount type", "type", fmt.Sprintf("%T", value))
	return 0
}
