package coop

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// CanonicalMonths are the 12 fixed 3-letter labels used as the resolver's
// primary keys, in calendar order.
var CanonicalMonths = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var monthNumbers = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

var monthFullNames = map[string]string{
	"Jan": "January", "Feb": "February", "Mar": "March", "Apr": "April",
	"May": "May", "Jun": "June", "Jul": "July", "Aug": "August",
	"Sep": "September", "Oct": "October", "Nov": "November", "Dec": "December",
}

// legacyMonthKeys maps a canonical label to extra on-disk variants seen
// historically. "Sept" is an old typo that shipped in stored records and
// must stay exactly as-is; it is NOT a pattern to generalize.
// New drift formats get registered here instead of new resolver branches.
var (
	legacyMonthKeysMu sync.RWMutex
	legacyMonthKeys   = map[string][]string{
		"Sep": {"Sept"},
	}
)

// RegisterMonthKeyVariant appends an extra storage key variant for a
// canonical month label. Duplicate registrations are ignored.
func RegisterMonthKeyVariant(canonical, variant string) {
	legacyMonthKeysMu.Lock()
	defer legacyMonthKeysMu.Unlock()

	for _, v := range legacyMonthKeys[canonical] {
		if v == variant {
			return
		}
	}
	legacyMonthKeys[canonical] = append(legacyMonthKeys[canonical], variant)
}

// CandidateKeys returns every storage key to probe for a canonical month
// label, most specific first: the label itself, registered legacy variants
// ("Sept" for "Sep"), the full English name, the plain month number, and
// the zero-padded month number.
//
// Unrecognized labels fall back to the raw label plus its first three
// characters, so lookups degrade instead of failing.
func CandidateKeys(month string) []string {
	num, ok := monthNumbers[month]
	if !ok {
		if len(month) > 3 {
			return []string{month, month[:3]}
		}
		return []string{month}
	}

	candidates := []string{month}

	legacyMonthKeysMu.RLock()
	candidates = append(candidates, legacyMonthKeys[month]...)
	legacyMonthKeysMu.RUnlock()

	candidates = append(candidates,
		monthFullNames[month],
		strconv.Itoa(num),
		fmt.Sprintf("%02d", num),
	)
	return candidates
}

// resolveYearNode returns the month map stored under the given year in a
// year→month→value tree. Stored year keys drift between plain decimal
// strings and stringified numbers ("2024", "2024.0"), so the exact decimal
// form is probed first, then any key that parses to the same integer.
// A missing year resolves to an empty map, never an error.
func resolveYearNode(tree map[string]interface{}, year int) map[string]interface{} {
	if tree == nil {
		return map[string]interface{}{}
	}

	if node, ok := asStringMap(tree[strconv.Itoa(year)]); ok {
		return node
	}

	for key, value := range tree {
		if f, err := strconv.ParseFloat(strings.TrimSpace(key), 64); err == nil && int(f) == year && f == float64(int(f)) {
			if node, ok := asStringMap(value); ok {
				return node
			}
		}
	}

	return map[string]interface{}{}
}

// lookupPeriod resolves the value stored for (year, month) in a
// year→month→value tree, probing every month key candidate in order.
// The boolean distinguishes true absence from a present-but-zero value.
func lookupPeriod(tree map[string]interface{}, year int, month string) (interface{}, bool) {
	yearNode := resolveYearNode(tree, year)
	for _, key := range CandidateKeys(month) {
		if value, ok := yearNode[key]; ok {
			return value, true
		}
	}
	return nil, false
}

// asStringMap narrows an arbitrary JSON value to a string-keyed map.
func asStringMap(value interface{}) (map[string]interface{}, bool) {
	m, ok := value.(map[string]interface{})
	return m, ok
}

// Quarters are fixed groups of three calendar months.
var quarterMonths = map[string][3]string{
	"Q1": {"Jan", "Feb", "Mar"},
	"Q2": {"Apr", "May", "Jun"},
	"Q3": {"Jul", "Aug", "Sep"},
	"Q4": {"Oct", "Nov", "Dec"},
}

// QuarterLabels in Q1..Q4 order.
var QuarterLabels = []string{"Q1", "Q2", "Q3", "Q4"}

// QuarterMonths returns the three canonical months of a quarter label.
func QuarterMonths(quarter string) ([3]string, bool) {
	months, ok := quarterMonths[quarter]
	return months, ok
}

// QuarterOf returns the quarter label containing a canonical month.
func QuarterOf(month string) (string, bool) {
	num, ok := monthNumbers[month]
	if !ok {
		return "", false
	}
	return QuarterLabels[(num-1)/3], true
}

// quarterIndex returns the 1-based quarter number for sorting (0 if unknown).
func quarterIndex(quarter string) int {
	for i, label := range QuarterLabels {
		if label == quarter {
			return i + 1
		}
	}
	return 0
}
