package coop

import (
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// Collection names.
const (
	collectionMembers      = "members"
	collectionSharePrices  = "share_prices"
	collectionTransactions = "transactions"
)

// storedDateFormat matches how PocketBase serializes datetime fields.
const storedDateFormat = "2006-01-02 15:04:05Z"

// PBPriceStore implements PriceStore on PocketBase.
type PBPriceStore struct {
	App core.App
}

// NewPBPriceStore creates a PocketBase-backed price store.
func NewPBPriceStore(app core.App) *PBPriceStore {
	return &PBPriceStore{App: app}
}

// ListPrices loads every stored share price record.
func (s *PBPriceStore) ListPrices() ([]PriceRecord, error) {
	records, err := s.App.FindRecordsByFilter(collectionSharePrices, "", "-year", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collectionSharePrices, err)
	}

	prices := make([]PriceRecord, 0, len(records))
	for _, record := range records {
		prices = append(prices, PriceRecord{
			ID:      record.Id,
			Year:    record.GetInt("year"),
			Month:   record.GetString("month"),
			Price:   record.GetFloat("price"),
			Quarter: record.GetString("quarter"),
		})
	}
	return prices, nil
}

// HasPrice reports whether a record exists for (year, month).
func (s *PBPriceStore) HasPrice(year int, month string) (bool, error) {
	filter := fmt.Sprintf("year = %d && month = '%s'", year, month)
	records, err := s.App.FindRecordsByFilter(collectionSharePrices, filter, "", 1, 0)
	if err != nil {
		return false, fmt.Errorf("querying %s: %w", collectionSharePrices, err)
	}
	return len(records) > 0, nil
}

// InsertBatch persists all records inside one storage transaction, so a
// constraint rejection on any record rolls the whole batch back.
func (s *PBPriceStore) InsertBatch(records []PriceRecord) error {
	return s.App.RunInTransaction(func(txApp core.App) error {
		for _, record := range records {
			if err := savePrice(txApp, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// Insert persists a single record.
func (s *PBPriceStore) Insert(record PriceRecord) error {
	return savePrice(s.App, record)
}

func savePrice(app core.App, price PriceRecord) error {
	col, err := app.FindCollectionByNameOrId(collectionSharePrices)
	if err != nil {
		return fmt.Errorf("finding collection %s: %w", collectionSharePrices, err)
	}

	record := core.NewRecord(col)
	record.Set("year", price.Year)
	record.Set("month", price.Month)
	record.Set("price", price.Price)
	record.Set("quarter", price.Quarter)
	return app.Save(record)
}

// UpdatePrice sets a new price on one stored record.
func (s *PBPriceStore) UpdatePrice(id string, price float64) error {
	record, err := s.App.FindRecordById(collectionSharePrices, id)
	if err != nil {
		return fmt.Errorf("finding share price %s: %w", id, err)
	}
	record.Set("price", price)
	return s.App.Save(record)
}

// Delete removes one stored record.
func (s *PBPriceStore) Delete(id string) error {
	record, err := s.App.FindRecordById(collectionSharePrices, id)
	if err != nil {
		return fmt.Errorf("finding share price %s: %w", id, err)
	}
	return s.App.Delete(record)
}

// PBRefundStore implements RefundStore on PocketBase.
type PBRefundStore struct {
	App core.App
}

// NewPBRefundStore creates a PocketBase-backed refund store.
func NewPBRefundStore(app core.App) *PBRefundStore {
	return &PBRefundStore{App: app}
}

// MarkRefunded patches the member's payment JSON sub-record in place,
// leaving its other fields (membership id, joining date, shares) intact.
func (s *PBRefundStore) MarkRefunded(memberID string, refundDate time.Time, amount float64) error {
	record, err := s.App.FindRecordById(collectionMembers, memberID)
	if err != nil {
		return fmt.Errorf("finding member %s: %w", memberID, err)
	}

	payment := jsonTree(record.Get("payment"), memberID, "payment")
	payment["refunded"] = true
	payment["refund_date"] = refundDate.UTC().Format(storedDateFormat)
	payment["refund_amount"] = amount

	record.Set("payment", payment)
	return s.App.Save(record)
}

// AppendTransaction creates one transaction ledger record.
func (s *PBRefundStore) AppendTransaction(txn Transaction) error {
	col, err := s.App.FindCollectionByNameOrId(collectionTransactions)
	if err != nil {
		return fmt.Errorf("finding collection %s: %w", collectionTransactions, err)
	}

	record := core.NewRecord(col)
	record.Set("type", txn.Type)
	record.Set("amount", txn.Amount)
	record.Set("member_name", txn.MemberName)
	record.Set("membership_id", txn.MembershipID)
	record.Set("receipt", txn.Receipt)
	record.Set("date", txn.Date.UTC().Format(storedDateFormat))
	return s.App.Save(record)
}
