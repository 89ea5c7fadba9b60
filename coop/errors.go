package coop

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuarterExists is returned when a quarter price upsert targets a
// (year, month) pair that already has a stored record. Quarters are added
// whole; changes go through update instead.
var ErrQuarterExists = errors.New("quarter already has stored price records")

// ErrUnknownQuarter is returned for quarter labels outside Q1..Q4.
var ErrUnknownQuarter = errors.New("unknown quarter label")

// PartialWriteError reports a multi-record write that persisted fewer
// records than required. It is always a failure, never silently folded
// into success, and carries enough detail for manual repair.
type PartialWriteError struct {
	Op        string   // operation name, e.g. "upsert_quarter_price"
	Persisted []string // identifiers of the sub-writes that landed
	Required  int      // how many sub-writes were required
	Err       error    // first underlying storage error, if any
}

// Error implements the error interface.
func (e *PartialWriteError) Error() string {
	msg := fmt.Sprintf("%s: %d of %d writes persisted", e.Op, len(e.Persisted), e.Required)
	if len(e.Persisted) > 0 {
		msg += " (" + strings.Join(e.Persisted, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying storage error.
func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// TornStateError reports a refund transition where only one of the two
// dependent writes (member payment flag, ledger transaction) landed.
type TornStateError struct {
	MemberID    string
	MemberWrite bool // member payment record was updated
	LedgerWrite bool // transaction ledger entry was created
	Err         error
}

// Error implements the error interface.
func (e *TornStateError) Error() string {
	return fmt.Sprintf(
		"refund for member %s left torn state (member_write=%v, ledger_write=%v): %v",
		e.MemberID, e.MemberWrite, e.LedgerWrite, e.Err,
	)
}

// Unwrap exposes the underlying storage error.
func (e *TornStateError) Unwrap() error {
	return e.Err
}
