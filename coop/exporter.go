package coop

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/sheets/v4"

	"github.com/coop/bachat/pocketbase/ratelimit"
)

// Sheet tab names for the report export.
const (
	tabInvestmentLedger = "Investment Ledger"
	tabInsuranceExpiry  = "Insurance Expiry"
	tabWorkInterest     = "Work Interest"
)

// SheetsWriter interface for writing to Google Sheets (enables mocking).
type SheetsWriter interface {
	WriteToSheet(ctx context.Context, spreadsheetID, sheetTab string, data [][]interface{}) error
	ClearSheet(ctx context.Context, spreadsheetID, sheetTab string) error
}

// RealSheetsWriter implements SheetsWriter using the Google Sheets API.
type RealSheetsWriter struct {
	service *sheets.Service
}

// NewRealSheetsWriter creates a new RealSheetsWriter.
func NewRealSheetsWriter(service *sheets.Service) *RealSheetsWriter {
	return &RealSheetsWriter{service: service}
}

// WriteToSheet writes data to a specific sheet tab.
func (w *RealSheetsWriter) WriteToSheet(ctx context.Context, spreadsheetID, sheetTab string, data [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: data,
	}

	_, err := w.service.Spreadsheets.Values.Update(
		spreadsheetID,
		sheetTab+"!A1",
		valueRange,
	).ValueInputOption("RAW").Context(ctx).Do()

	return err
}

// ClearSheet clears all data from a sheet tab.
func (w *RealSheetsWriter) ClearSheet(ctx context.Context, spreadsheetID, sheetTab string) error {
	_, err := w.service.Spreadsheets.Values.Clear(
		spreadsheetID,
		sheetTab+"!A:Z",
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()

	return err
}

// ReportExporter pushes report rows to Google Sheets, column order
// preserved verbatim. Outbound writes are paced through a rate limiter
// because the Sheets API throttles bursty updates.
type ReportExporter struct {
	writer        SheetsWriter
	spreadsheetID string
	limiter       *ratelimit.RateLimiter
}

// NewReportExporter creates an exporter over a Sheets service.
func NewReportExporter(service *sheets.Service, spreadsheetID string) *ReportExporter {
	return &ReportExporter{
		writer:        NewRealSheetsWriter(service),
		spreadsheetID: spreadsheetID,
		limiter:       ratelimit.NewRateLimiter(nil),
	}
}

// NewReportExporterWithWriter creates an exporter with a custom writer,
// used by tests.
func NewReportExporterWithWriter(writer SheetsWriter, spreadsheetID string) *ReportExporter {
	return &ReportExporter{
		writer:        writer,
		spreadsheetID: spreadsheetID,
		limiter:       ratelimit.NewRateLimiter(nil),
	}
}

// ExportReports writes the investment ledger for (year, month), the
// insurance expiry report and the work interest list to their tabs.
func (e *ReportExporter) ExportReports(ctx context.Context, members []*Member, year int, month string, clock Clock) error {
	slog.Info("Exporting reports to Google Sheets",
		"spreadsheet_id", e.spreadsheetID, "year", year, "month", month, "members", len(members))

	ledger := BuildInvestmentLedger(members, year, month)
	if err := e.exportTab(ctx, tabInvestmentLedger, FormatLedgerData(ledger)); err != nil {
		return fmt.Errorf("exporting investment ledger: %w", err)
	}

	expiry := BuildInsuranceExpiryReport(members, DefaultExpiryHorizonMonths, clock)
	if err := e.exportTab(ctx, tabInsuranceExpiry, FormatExpiryData(expiry)); err != nil {
		return fmt.Errorf("exporting insurance expiry: %w", err)
	}

	work := BuildWorkInterestList(members)
	if err := e.exportTab(ctx, tabWorkInterest, FormatInterestData(work)); err != nil {
		return fmt.Errorf("exporting work interest: %w", err)
	}

	slog.Info("Report export complete",
		"ledger_rows", len(ledger), "expiry_rows", len(expiry), "work_rows", len(work))
	return nil
}

// exportTab clears and rewrites a single sheet tab.
func (e *ReportExporter) exportTab(ctx context.Context, tabName string, data [][]interface{}) error {
	err := e.limiter.ExecuteWithRetry(ctx, func() error {
		return e.writer.ClearSheet(ctx, e.spreadsheetID, tabName)
	})
	if err != nil {
		slog.Warn("Failed to clear sheet tab (may not exist yet)", "tab", tabName, "error", err)
		// Continue anyway - the write might still succeed
	}

	return e.limiter.ExecuteWithRetry(ctx, func() error {
		return e.writer.WriteToSheet(ctx, e.spreadsheetID, tabName, data)
	})
}
