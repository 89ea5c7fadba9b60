package coop

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// Insurance category keys as stored in the insurance JSON tree.
const (
	CategoryHealth     = "health"
	CategoryAccidental = "accidental"
	CategoryTermLife   = "term_life"
)

// InsuranceCategories lists every category in display order.
var InsuranceCategories = []string{CategoryHealth, CategoryAccidental, CategoryTermLife}

// Member is a point-in-time snapshot of a members record. The activity and
// legacy payment trees stay loosely typed because their keying has drifted
// across years of storage (months as "Jan", "Sept", "September", "9", "09");
// the resolver in periods.go is the only code that walks them.
type Member struct {
	ID            string
	Name          string
	Phone         string
	JoinDate      *time.Time
	WillingToWork bool
	WorkerDetails map[string]interface{}
	Payment       PaymentInfo
	Activities    map[string]interface{} // yearKey → monthKey → period node
	Payments      map[string]interface{} // legacy yearKey → monthKey → amount
	Insurance     map[string]InsurancePolicy
}

// PaymentInfo mirrors the payment JSON sub-record of a member.
type PaymentInfo struct {
	MembershipID  string
	DateOfJoining *time.Time
	Refunded      bool
	RefundDate    *time.Time
	RefundAmount  float64
	ShareCount    float64
	ShareAmount   float64
}

// InsurancePolicy mirrors one category sub-record of the insurance tree.
type InsurancePolicy struct {
	Enabled       bool
	WantInsurance bool
	Date          *time.Time // policy anniversary
	Plan          string
}

// MemberFromRecord parses a members record into a snapshot. Malformed or
// missing sub-fields degrade to zero values; one bad member must never
// abort a whole report build.
func MemberFromRecord(record *core.Record) *Member {
	m := &Member{
		ID:            record.Id,
		Name:          record.GetString("name"),
		Phone:         record.GetString("phone"),
		JoinDate:      parseDate(record.Get("join_date")),
		WillingToWork: yesFlag(record.Get("willing_to_work")),
		WorkerDetails: jsonTree(record.Get("worker_details"), record.Id, "worker_details"),
		Activities:    jsonTree(record.Get("activities"), record.Id, "activities"),
		Payments:      jsonTree(record.Get("payments"), record.Id, "payments"),
		Insurance:     make(map[string]InsurancePolicy),
	}

	payment := jsonTree(record.Get("payment"), record.Id, "payment")
	m.Payment = PaymentInfo{
		MembershipID:  stringField(payment, "membership_id"),
		DateOfJoining: parseDate(payment["date_of_joining"]),
		Refunded:      yesFlag(payment["refunded"]),
		RefundDate:    parseDate(payment["refund_date"]),
		RefundAmount:  parseAmount(payment["refund_amount"]),
		ShareCount:    parseAmount(payment["share_count"]),
		ShareAmount:   parseAmount(payment["share_amount"]),
	}

	insurance := jsonTree(record.Get("insurance"), record.Id, "insurance")
	for _, category := range InsuranceCategories {
		sub, ok := asStringMap(insurance[category])
		if !ok {
			continue
		}
		m.Insurance[category] = InsurancePolicy{
			Enabled:       yesFlag(sub["enabled"]),
			WantInsurance: yesFlag(sub["want_insurance"]),
			Date:          parseDate(sub["date"]),
			Plan:          stringField(sub, "plan"),
		}
	}

	return m
}

// LoadMembers reads a point-in-time snapshot of the whole members
// collection. No cross-member transactional guarantee is assumed; each
// member's facts are self-contained.
func LoadMembers(app core.App) ([]*Member, error) {
	records, err := app.FindRecordsByFilter("members", "", "name", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}

	members := make([]*Member, 0, len(records))
	for _, record := range records {
		members = append(members, MemberFromRecord(record))
	}
	return members, nil
}

// MembershipName builds the composite "<membershipId> <name>" display field.
// When the id is absent the name stands alone, with no stray separator.
func (m *Member) MembershipName() string {
	id := strings.TrimSpace(m.Payment.MembershipID)
	if id == "" {
		return m.Name
	}
	return id + " " + m.Name
}

// jsonTree narrows a record field to a string-keyed map, decoding JSON
// stored as raw bytes or string. Anything unparseable resolves to an empty
// map with a warning, never an error.
func jsonTree(value interface{}, recordID, field string) map[string]interface{} {
	switch v := value.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return v
	case []byte:
		return decodeTree(string(v), recordID, field)
	case string:
		return decodeTree(v, recordID, field)
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			return decodeTree(stringer.String(), recordID, field)
		}
	}

	slog.Warn("Unexpected JSON field shape", "record", recordID, "field", field, "type", fmt.Sprintf("%T", value))
	return map[string]interface{}{}
}

func decodeTree(raw, recordID, field string) map[string]interface{} {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]interface{}{}
	}

	var tree map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		slog.Warn("Malformed JSON field", "record", recordID, "field", field, "error", err)
		return map[string]interface{}{}
	}
	return tree
}

// yesFlag interprets the storage convention for boolean flags, which have
// drifted between "YES"/"NO" strings and real booleans.
func yesFlag(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		s := strings.ToUpper(strings.TrimSpace(v))
		return s == "YES" || s == "TRUE" || s == "1"
	case float64:
		return v != 0
	}
	return false
}

func stringField(tree map[string]interface{}, key string) string {
	if s, ok := tree[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// parseDate parses the date formats seen in stored records. Unparseable or
// absent values resolve to nil (AbsentData, not an error).
func parseDate(value interface{}) *time.Time {
	if value == nil {
		return nil
	}

	var dateStr string
	switch v := value.(type) {
	case string:
		dateStr = v
	case time.Time:
		if v.IsZero() {
			return nil
		}
		t := v.UTC()
		return &t
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			dateStr = stringer.String()
		}
	}

	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil
	}

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.000Z",
		"2006-01-02 15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02 Jan 2006",
		"2/1/2006",
		"02/01/2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			t = t.UTC()
			return &t
		}
	}

	slog.Warn("Unparseable date value", "value", dateStr)
	return nil
}
