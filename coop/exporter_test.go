package coop

import (
	"context"
	"reflect"
	"testing"
	"time"
)

// mockSheetsWriter captures writes instead of calling the Sheets API.
type mockSheetsWriter struct {
	cleared []string
	written map[string][][]interface{}
}

func newMockSheetsWriter() *mockSheetsWriter {
	return &mockSheetsWriter{written: make(map[string][][]interface{})}
}

func (w *mockSheetsWriter) WriteToSheet(_ context.Context, _, sheetTab string, data [][]interface{}) error {
	w.written[sheetTab] = data
	return nil
}

func (w *mockSheetsWriter) ClearSheet(_ context.Context, _, sheetTab string) error {
	w.cleared = append(w.cleared, sheetTab)
	return nil
}

func TestExportReports_TabsAndColumnOrder(t *testing.T) {
	now := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	clock := FixedClock{Instant: now}

	member := investmentMember("a", "Asha", "M-1", "REC-4", 500)
	member.WillingToWork = true

	writer := newMockSheetsWriter()
	exporter := NewReportExporterWithWriter(writer, "sheet123")

	err := exporter.ExportReports(context.Background(), []*Member{member}, 2025, "Sep", clock)
	if err != nil {
		t.Fatalf("ExportReports() error: %v", err)
	}

	for _, tab := range []string{tabInvestmentLedger, tabInsuranceExpiry, tabWorkInterest} {
		if _, ok := writer.written[tab]; !ok {
			t.Errorf("tab %q not written", tab)
		}
	}

	// Header row must match the report column contract verbatim
	ledger := writer.written[tabInvestmentLedger]
	if len(ledger) != 2 {
		t.Fatalf("ledger tab has %d rows, want header + 1", len(ledger))
	}
	wantHeader := headerCells(LedgerHeaders)
	if !reflect.DeepEqual(ledger[0], wantHeader) {
		t.Errorf("ledger header = %v, want %v", ledger[0], wantHeader)
	}

	row := ledger[1]
	if row[0] != 1 || row[3] != "REC-4" || row[4] != 500.0 {
		t.Errorf("ledger row = %v, want serial 1, receipt REC-4, amount 500", row)
	}
}

func TestFormatLedgerData_EmptyStillCarriesHeader(t *testing.T) {
	data := FormatLedgerData(nil)
	if len(data) != 1 {
		t.Fatalf("FormatLedgerData(nil) has %d rows, want header only", len(data))
	}
	if len(data[0]) != len(LedgerHeaders) {
		t.Errorf("header has %d cells, want %d", len(data[0]), len(LedgerHeaders))
	}
}
