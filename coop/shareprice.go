package coop

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// PriceRecord is one stored monthly share price row.
type PriceRecord struct {
	ID      string
	Year    int
	Month   string  // canonical 3-letter label
	Price   float64 // non-negative
	Quarter string  // legacy free-text label, required non-null by storage
}

// PriceStore is the storage surface the reconciler needs. The PocketBase
// adapter lives in store.go; tests substitute an in-memory fake.
type PriceStore interface {
	ListPrices() ([]PriceRecord, error)
	HasPrice(year int, month string) (bool, error)
	// InsertBatch persists all records in a single storage transaction.
	InsertBatch(records []PriceRecord) error
	Insert(record PriceRecord) error
	UpdatePrice(id string, price float64) error
	Delete(id string) error
}

// QuarterView is the display grouping of up to three monthly price records.
type QuarterView struct {
	Year         int
	Quarter      string
	Price        float64  // representative price, last record wins
	RecordIDs    []string // every underlying stored identity
	Months       []string
	Complete     bool // all three months present
	Inconsistent bool // month prices disagree (data bug, flagged not masked)
}

// SharePriceService reconciles monthly share price records into quarter
// groups and performs the constraint-tolerant quarter writes.
type SharePriceService struct {
	Store PriceStore
}

// NewSharePriceService creates a share price service over a store.
func NewSharePriceService(store PriceStore) *SharePriceService {
	return &SharePriceService{Store: store}
}

// GroupByQuarter groups monthly records by (year, quarter) for display.
// The representative price is the last value seen; if the three months have
// drifted apart the view is flagged inconsistent rather than silently
// picking one. Output sorts most recent period first: year descending,
// then Q4→Q1 within a year.
func GroupByQuarter(records []PriceRecord) []QuarterView {
	type key struct {
		year    int
		quarter string
	}

	grouped := make(map[key]*QuarterView)
	var order []key

	for _, record := range records {
		quarter, ok := QuarterOf(record.Month)
		if !ok {
			slog.Warn("Share price record with unknown month", "id", record.ID, "month", record.Month)
			continue
		}

		k := key{year: record.Year, quarter: quarter}
		view, exists := grouped[k]
		if !exists {
			view = &QuarterView{Year: record.Year, Quarter: quarter}
			grouped[k] = view
			order = append(order, k)
		}

		if len(view.RecordIDs) > 0 && view.Price != record.Price {
			view.Inconsistent = true
			slog.Warn("Quarter price records disagree",
				"year", record.Year, "quarter", quarter,
				"have", view.Price, "got", record.Price)
		}

		view.Price = record.Price
		view.RecordIDs = append(view.RecordIDs, record.ID)
		view.Months = append(view.Months, record.Month)
		view.Complete = len(view.RecordIDs) >= 3
	}

	views := make([]QuarterView, 0, len(order))
	for _, k := range order {
		views = append(views, *grouped[k])
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Year != views[j].Year {
			return views[i].Year > views[j].Year
		}
		return quarterIndex(views[i].Quarter) > quarterIndex(views[j].Quarter)
	})
	return views
}

// ListQuarters loads all stored prices and groups them.
func (s *SharePriceService) ListQuarters() ([]QuarterView, error) {
	records, err := s.Store.ListPrices()
	if err != nil {
		return nil, fmt.Errorf("loading share prices: %w", err)
	}
	return GroupByQuarter(records), nil
}

// UpsertQuarterPrice adds the three monthly records of one quarter.
//
// A quarter can only be added whole: if any target (year, month) already
// has a record the call is rejected before any write (changes go through
// UpdateQuarterPrice). The write first attempts a single batch insert with
// one shared quarter label. Storage may or may not enforce a uniqueness
// constraint on (year, quarter label) — this engine must work either way —
// so a uniqueness rejection triggers a fallback of three individual
// inserts, each labeled with its own month to defeat the constraint.
// Success means all three months persisted; one or two persisted is a
// distinct PartialWriteError, never silent success.
func (s *SharePriceService) UpsertQuarterPrice(year int, quarter string, price float64) error {
	months, ok := QuarterMonths(quarter)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuarter, quarter)
	}
	if price < 0 {
		return fmt.Errorf("share price must be non-negative, got %v", price)
	}

	for _, month := range months {
		exists, err := s.Store.HasPrice(year, month)
		if err != nil {
			return fmt.Errorf("checking existing price for %d %s: %w", year, month, err)
		}
		if exists {
			return fmt.Errorf("%w: %d %s", ErrQuarterExists, year, month)
		}
	}

	batch := make([]PriceRecord, 0, len(months))
	for _, month := range months {
		batch = append(batch, PriceRecord{
			Year:    year,
			Month:   month,
			Price:   price,
			Quarter: quarter,
		})
	}

	err := s.Store.InsertBatch(batch)
	if err == nil {
		slog.Info("Quarter price added", "year", year, "quarter", quarter, "price", price)
		return nil
	}

	if !isUniqueConstraintViolation(err) {
		return fmt.Errorf("inserting quarter prices: %w", err)
	}

	// Uniqueness constraint on (year, quarter label) is present: retry one
	// record at a time with month-suffixed labels so each row is unique.
	slog.Warn("Batch insert rejected by uniqueness constraint, falling back to per-month inserts",
		"year", year, "quarter", quarter, "error", err)

	persisted := make([]string, 0, len(months))
	var firstErr error
	for _, month := range months {
		record := PriceRecord{
			Year:    year,
			Month:   month,
			Price:   price,
			Quarter: fmt.Sprintf("%s-%s", quarter, month),
		}
		if insErr := s.Store.Insert(record); insErr != nil {
			if firstErr == nil {
				firstErr = insErr
			}
			slog.Error("Fallback insert failed", "year", year, "month", month, "error", insErr)
			continue
		}
		persisted = append(persisted, month)
	}

	switch len(persisted) {
	case len(months):
		slog.Info("Quarter price added via fallback", "year", year, "quarter", quarter, "price", price)
		return nil
	case 0:
		return fmt.Errorf("inserting quarter prices (fallback): %w", firstErr)
	default:
		// Fallback writes are not rolled back; surface exactly what landed
		// so the caller can repair.
		return &PartialWriteError{
			Op:        "upsert_quarter_price",
			Persisted: persisted,
			Required:  len(months),
			Err:       firstErr,
		}
	}
}

// UpdateQuarterPrice applies a new price to every stored identity captured
// by the originating quarter view. Applying to a strict subset would make
// the quarter's months diverge, so partial application is a reported
// partial failure.
func (s *SharePriceService) UpdateQuarterPrice(view QuarterView, price float64) error {
	if price < 0 {
		return fmt.Errorf("share price must be non-negative, got %v", price)
	}

	updated := make([]string, 0, len(view.RecordIDs))
	var firstErr error
	for _, id := range view.RecordIDs {
		if err := s.Store.UpdatePrice(id, price); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Error("Updating share price record failed", "id", id, "error", err)
			continue
		}
		updated = append(updated, id)
	}

	if firstErr == nil {
		slog.Info("Quarter price updated", "year", view.Year, "quarter", view.Quarter, "price", price)
		return nil
	}
	if len(updated) == 0 {
		return fmt.Errorf("updating quarter prices: %w", firstErr)
	}
	return &PartialWriteError{
		Op:        "update_quarter_price",
		Persisted: updated,
		Required:  len(view.RecordIDs),
		Err:       firstErr,
	}
}

// DeleteQuarterPrice deletes every stored identity captured by the
// originating quarter view.
func (s *SharePriceService) DeleteQuarterPrice(view QuarterView) error {
	deleted := make([]string, 0, len(view.RecordIDs))
	var firstErr error
	for _, id := range view.RecordIDs {
		if err := s.Store.Delete(id); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Error("Deleting share price record failed", "id", id, "error", err)
			continue
		}
		deleted = append(deleted, id)
	}

	if firstErr == nil {
		slog.Info("Quarter price deleted", "year", view.Year, "quarter", view.Quarter)
		return nil
	}
	if len(deleted) == 0 {
		return fmt.Errorf("deleting quarter prices: %w", firstErr)
	}
	return &PartialWriteError{
		Op:        "delete_quarter_price",
		Persisted: deleted,
		Required:  len(view.RecordIDs),
		Err:       firstErr,
	}
}

// isUniqueConstraintViolation sniffs a storage error for a uniqueness
// rejection. SQLite reports "UNIQUE constraint failed"; PocketBase
// validation reports "must be unique".
func isUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique")
}
