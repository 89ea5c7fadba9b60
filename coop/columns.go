package coop

// Report column definitions. Column order and presence is part of the
// exported-report contract: API payloads and spreadsheet export both emit
// these columns verbatim, so downstream consumers see identical layouts.

// LedgerHeaders is the investment ledger column order.
var LedgerHeaders = []string{
	"SN", "Date", "Name", "Receipt No", "Amount", "Fine",
	"Entered By", "Checked By", "Remarks",
}

// ExpiryHeaders is the insurance expiry report column order.
var ExpiryHeaders = []string{
	"Name", "Phone", "Category", "Plan", "Expiry Date", "Days Left",
}

// InterestHeaders is the interest list column order.
var InterestHeaders = []string{"Name", "Phone"}

// QuarterHeaders is the share price quarter listing column order.
var QuarterHeaders = []string{"Year", "Quarter", "Price", "Months", "Complete"}

// Values returns the row's cells in LedgerHeaders order. The trailing
// audit columns stay blank for manual completion.
func (r LedgerRow) Values() []interface{} {
	return []interface{}{
		r.Serial, r.Date, r.Name, r.Receipt, r.Amount, r.Fine,
		r.EnteredBy, r.CheckedBy, r.Remarks,
	}
}

// Values returns the row's cells in ExpiryHeaders order.
func (r ExpiryRow) Values() []interface{} {
	return []interface{}{r.Name, r.Phone, r.Category, r.Plan, r.Date, r.DaysToDue}
}

// Values returns the row's cells in InterestHeaders order.
func (r InterestRow) Values() []interface{} {
	return []interface{}{r.Name, r.Phone}
}

// FormatLedgerData builds the sheet value grid for the investment ledger.
func FormatLedgerData(rows []LedgerRow) [][]interface{} {
	data := [][]interface{}{headerCells(LedgerHeaders)}
	for _, r := range rows {
		data = append(data, r.Values())
	}
	return data
}

// FormatExpiryData builds the sheet value grid for the expiry report.
func FormatExpiryData(rows []ExpiryRow) [][]interface{} {
	data := [][]interface{}{headerCells(ExpiryHeaders)}
	for _, r := range rows {
		data = append(data, r.Values())
	}
	return data
}

// FormatInterestData builds the sheet value grid for an interest list.
func FormatInterestData(rows []InterestRow) [][]interface{} {
	data := [][]interface{}{headerCells(InterestHeaders)}
	for _, r := range rows {
		data = append(data, r.Values())
	}
	return data
}

func headerCells(headers []string) []interface{} {
	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}
