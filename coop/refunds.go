package coop

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RefundAmount is the fixed one-time membership refund.
const RefundAmount = 10000

// refundTransactionType is the ledger entry type recorded for a refund.
const refundTransactionType = "membership_refund"

// ErrAlreadyRefunded guards against processing a refund twice.
var ErrAlreadyRefunded = errors.New("member already refunded")

// ErrNotEligible guards against refunding before one calendar year.
var ErrNotEligible = errors.New("member not yet refund eligible")

// Transaction is one ledger entry appended alongside a refund.
type Transaction struct {
	Type         string
	Amount       float64
	MemberName   string
	MembershipID string
	Receipt      string
	Date         time.Time
}

// RefundStore is the storage surface for the refund state transition.
type RefundStore interface {
	// MarkRefunded sets refunded=true, refund_date and refund_amount on the
	// member's payment record.
	MarkRefunded(memberID string, refundDate time.Time, amount float64) error
	AppendTransaction(txn Transaction) error
}

// RefundService executes the one state transition that needs two dependent
// writes: flag the member's payment record, then append a ledger entry.
type RefundService struct {
	Store RefundStore
	Clock Clock
}

// NewRefundService creates a refund service.
func NewRefundService(store RefundStore, clock Clock) *RefundService {
	return &RefundService{Store: store, Clock: clock}
}

// ProcessRefund marks the member refunded and records the matching
// membership_refund ledger entry.
//
// The two writes are not globally atomic. If the ledger append fails after
// the member flag landed, the result is a TornStateError naming which
// write succeeded — reported as failure for manual repair, never retried
// automatically and never claimed as success.
func (s *RefundService) ProcessRefund(m *Member) error {
	if m.Payment.Refunded {
		return fmt.Errorf("%w: %s", ErrAlreadyRefunded, m.ID)
	}
	if !IsRefundEligible(m, s.Clock) {
		return fmt.Errorf("%w: %s", ErrNotEligible, m.ID)
	}

	now := s.Clock.Now()

	if err := s.Store.MarkRefunded(m.ID, now, RefundAmount); err != nil {
		return fmt.Errorf("marking member %s refunded: %w", m.ID, err)
	}

	txn := Transaction{
		Type:         refundTransactionType,
		Amount:       RefundAmount,
		MemberName:   m.Name,
		MembershipID: m.Payment.MembershipID,
		Receipt:      refundReceipt(now),
		Date:         now,
	}
	if err := s.Store.AppendTransaction(txn); err != nil {
		return &TornStateError{
			MemberID:    m.ID,
			MemberWrite: true,
			LedgerWrite: false,
			Err:         err,
		}
	}

	slog.Info("Membership refund processed",
		"member", m.ID, "name", m.Name, "amount", RefundAmount, "receipt", txn.Receipt)
	return nil
}

// refundReceipt derives a receipt label from the refund timestamp.
func refundReceipt(now time.Time) string {
	return fmt.Sprintf("RF-%d", now.Unix())
}
