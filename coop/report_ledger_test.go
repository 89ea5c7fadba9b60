package coop

import (
	"testing"
)

func investmentMember(id, name, membershipID, receipt string, amount float64) *Member {
	return &Member{
		ID:   id,
		Name: name,
		Payment: PaymentInfo{
			MembershipID: membershipID,
		},
		Activities: map[string]interface{}{
			"2025": map[string]interface{}{
				"Sep": map[string]interface{}{
					"investment": map[string]interface{}{
						"amount":  amount,
						"receipt": receipt,
						"date":    "2025-09-14",
					},
				},
			},
		},
	}
}

// =============================================================================
// Investment Ledger Tests
// =============================================================================

func TestBuildInvestmentLedger_ReceiptOrdering(t *testing.T) {
	// Serials follow receipt sequence numbers, regardless of input order
	members := []*Member{
		investmentMember("a", "Asha", "M-1", "REC-12", 100),
		investmentMember("b", "Bina", "M-2", "REC-3", 200),
		investmentMember("c", "Chand", "M-3", "REC-27", 300),
	}

	rows := BuildInvestmentLedger(members, 2025, "Sep")
	if len(rows) != 3 {
		t.Fatalf("BuildInvestmentLedger() returned %d rows, want 3", len(rows))
	}

	wantReceipts := []string{"REC-3", "REC-12", "REC-27"}
	for i, row := range rows {
		if row.Receipt != wantReceipts[i] {
			t.Errorf("rows[%d].Receipt = %q, want %q", i, row.Receipt, wantReceipts[i])
		}
		if row.Serial != i+1 {
			t.Errorf("rows[%d].Serial = %d, want %d", i, row.Serial, i+1)
		}
	}
}

func TestBuildInvestmentLedger_SkipsMembersWithoutFact(t *testing.T) {
	noActivity := &Member{ID: "x", Name: "Quiet"}
	otherActivity := &Member{
		ID:   "y",
		Name: "Other",
		Activities: map[string]interface{}{
			"2025": map[string]interface{}{
				"Sep": map[string]interface{}{"type": "meeting"},
			},
		},
	}

	members := []*Member{
		noActivity,
		investmentMember("a", "Asha", "M-1", "REC-1", 100),
		otherActivity,
	}

	rows := BuildInvestmentLedger(members, 2025, "Sep")
	if len(rows) != 1 {
		t.Fatalf("BuildInvestmentLedger() returned %d rows, want 1", len(rows))
	}
	if rows[0].Name != "M-1 Asha" {
		t.Errorf("rows[0].Name = %q, want \"M-1 Asha\"", rows[0].Name)
	}
}

func TestBuildInvestmentLedger_NonNumericReceiptSortsFirst(t *testing.T) {
	members := []*Member{
		investmentMember("a", "Asha", "M-1", "REC-5", 100),
		investmentMember("b", "Bina", "M-2", "cash", 200),
	}

	rows := BuildInvestmentLedger(members, 2025, "Sep")
	if len(rows) != 2 {
		t.Fatalf("BuildInvestmentLedger() returned %d rows, want 2", len(rows))
	}
	if rows[0].Receipt != "cash" {
		t.Errorf("rows[0].Receipt = %q, want non-numeric receipt first", rows[0].Receipt)
	}
}

func TestBuildInvestmentLedger_RowContent(t *testing.T) {
	m := investmentMember("a", "Asha", "M-7", "REC-9", 1500)
	m.Activities["2025"].(map[string]interface{})["Sep"].(map[string]interface{})["investment"].(map[string]interface{})["fine"] = 25.0

	rows := BuildInvestmentLedger([]*Member{m}, 2025, "Sep")
	if len(rows) != 1 {
		t.Fatalf("BuildInvestmentLedger() returned %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.Date != "14 Sep 2025" {
		t.Errorf("Date = %q, want \"14 Sep 2025\"", row.Date)
	}
	if row.Name != "M-7 Asha" {
		t.Errorf("Name = %q, want \"M-7 Asha\"", row.Name)
	}
	if row.Amount != 1500 || row.Fine != 25 {
		t.Errorf("Amount/Fine = %v/%v, want 1500/25", row.Amount, row.Fine)
	}
	// Audit columns stay blank for manual completion
	if row.EnteredBy != "" || row.CheckedBy != "" || row.Remarks != "" {
		t.Errorf("audit columns not blank: %+v", row)
	}
}

func TestBuildInvestmentLedger_NameWithoutMembershipID(t *testing.T) {
	m := investmentMember("a", "Asha", "", "REC-1", 100)

	rows := BuildInvestmentLedger([]*Member{m}, 2025, "Sep")
	if len(rows) != 1 {
		t.Fatalf("BuildInvestmentLedger() returned %d rows, want 1", len(rows))
	}
	// No stray separator when the membership id is absent
	if rows[0].Name != "Asha" {
		t.Errorf("Name = %q, want \"Asha\"", rows[0].Name)
	}
}

func TestBuildInvestmentLedger_ResolvesLegacyMonthKeys(t *testing.T) {
	m := investmentMember("a", "Asha", "M-1", "REC-1", 100)
	// Re-key the stored month to the legacy "Sept" typo
	yearNode := m.Activities["2025"].(map[string]interface{})
	yearNode["Sept"] = yearNode["Sep"]
	delete(yearNode, "Sep")

	rows := BuildInvestmentLedger([]*Member{m}, 2025, "Sep")
	if len(rows) != 1 {
		t.Fatalf("BuildInvestmentLedger() returned %d rows for legacy key, want 1", len(rows))
	}
}

// =============================================================================
// Receipt Number Tests
// =============================================================================

func TestReceiptNumber(t *testing.T) {
	tests := []struct {
		receipt string
		want    int
	}{
		{"REC-12", 12},
		{"REC-3", 3},
		{"27", 27},
		{"R7B9", 7}, // first numeric run wins
		{"cash", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := receiptNumber(tt.receipt); got != tt.want {
			t.Errorf("receiptNumber(%q) = %d, want %d", tt.receipt, got, tt.want)
		}
	}
}
