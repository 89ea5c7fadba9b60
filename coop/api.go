package coop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/coop/bachat/pocketbase/google"
)

// requireAuth wraps a handler function to require authentication
func requireAuth(handler func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if e.Auth == nil {
			return apis.NewUnauthorizedError("Authentication required", nil)
		}
		return handler(e)
	}
}

// API serves the report and administration endpoints over the engine.
type API struct {
	app   core.App
	clock Clock
}

// InitializeReportService sets up the report and administration endpoints.
func InitializeReportService(app *pocketbase.PocketBase, e *core.ServeEvent) error {
	api := &API{app: app, clock: SystemClock{}}

	// Report endpoints
	e.Router.GET("/api/custom/reports/investment-ledger", requireAuth(api.handleInvestmentLedger))
	e.Router.GET("/api/custom/reports/paid-count", requireAuth(api.handlePaidCount))
	e.Router.GET("/api/custom/reports/insurance-expiry", requireAuth(api.handleInsuranceExpiry))
	e.Router.GET("/api/custom/reports/insurance-interest", requireAuth(api.handleInsuranceInterest))
	e.Router.GET("/api/custom/reports/work-interest", requireAuth(api.handleWorkInterest))

	// Refund endpoints
	e.Router.GET("/api/custom/refunds/buckets", requireAuth(api.handleRefundBuckets))
	e.Router.POST("/api/custom/refunds/{memberId}", requireAuth(api.handleProcessRefund))

	// Share price administration
	e.Router.GET("/api/custom/share-prices", requireAuth(api.handleListQuarters))
	e.Router.POST("/api/custom/share-prices", requireAuth(api.handleUpsertQuarter))
	e.Router.PATCH("/api/custom/share-prices", requireAuth(api.handleUpdateQuarter))
	e.Router.DELETE("/api/custom/share-prices", requireAuth(api.handleDeleteQuarter))

	// Sheets export
	e.Router.POST("/api/custom/reports/export", requireAuth(api.handleExport))

	return nil
}

// periodParams parses the year and month query parameters.
func periodParams(e *core.RequestEvent) (int, string, error) {
	yearStr := e.Request.URL.Query().Get("year")
	year, err := strconv.Atoi(yearStr)
	if err != nil || year <= 0 {
		return 0, "", fmt.Errorf("invalid year %q", yearStr)
	}

	month := e.Request.URL.Query().Get("month")
	if month == "" {
		return 0, "", fmt.Errorf("missing month")
	}
	return year, month, nil
}

func (a *API) handleInvestmentLedger(e *core.RequestEvent) error {
	year, month, err := periodParams(e)
	if err != nil {
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	}

	members, err := LoadMembers(a.app)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	rows := BuildInvestmentLedger(members, year, month)
	return e.JSON(http.StatusOK, map[string]interface{}{
		"year":    year,
		"month":   month,
		"headers": LedgerHeaders,
		"rows":    rows,
	})
}

func (a *API) handlePaidCount(e *core.RequestEvent) error {
	year, month, err := periodParams(e)
	if err != nil {
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	}

	members, err := LoadMembers(a.app)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	return e.JSON(http.StatusOK, map[string]interface{}{
		"year":    year,
		"month":   month,
		"paid":    CountPaidMembers(members, year, month),
		"members": len(members),
	})
}

func (a *API) handleInsuranceExpiry(e *core.RequestEvent) error {
	horizon := DefaultExpiryHorizonMonths
	if monthsStr := e.Request.URL.Query().Get("months"); monthsStr != "" {
		if h, err := strconv.Atoi(monthsStr); err == nil && h > 0 {
			horizon = h
		}
	}

	members, err := LoadMembers(a.app)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	rows := BuildInsuranceExpiryReport(members, horizon, a.clock)
	return e.JSON(http.StatusOK, map[string]interface{}{
		"horizon_months": horizon,
		"headers":        ExpiryHeaders,
		"rows":           rows,
	})
}

func (a *API) handleInsuranceInterest(e *core.RequestEvent) error {
	category := e.Request.URL.Query().Get("category")
	valid := false
	for _, c := range InsuranceCategories {
		if c == category {
			valid = true
			break
		}
	}
	if !valid {
		return e.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("unknown insurance category %q", category),
		})
	}

	members, err := LoadMembers(a.app)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	return e.JSON(http.StatusOK, map[string]interface{}{
		"category": category,
		"headers":  InterestHeaders,
		"rows":     BuildInterestList(members, category),
	})
}

func (a *API) handleWorkInterest(e *core.RequestEvent) error {
	members, err := LoadMembers(a.app)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	return e.JSON(http.StatusOK, map[string]interface{}{
		"headers": InterestHeaders,
		"rows":    BuildWorkInterestList(members),
	})
}

// bucketEntry is one member in a refund bucket response.
type bucketEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MembershipID string `json:"membership_id"`
	DaysToGo     *int   `json:"days_to_go,omitempty"`
}

func (a *API) handleRefundBuckets(e *core.RequestEvent) error {
	members, err := LoadMembers(a.app)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	buckets := PartitionRefundBuckets(members, a.clock)

	entries := func(bucket []*Member, withDays bool) []bucketEntry {
		out := make([]bucketEntry, 0, len(bucket))
		for _, m := range bucket {
			entry := bucketEntry{
				ID:           m.ID,
				Name:         m.Name,
				MembershipID: m.Payment.MembershipID,
			}
			if withDays {
				if days, ok := DaysUntilEligible(m, a.clock); ok {
					entry.DaysToGo = &days
				}
			}
			out = append(out, entry)
		}
		return out
	}

	return e.JSON(http.StatusOK, map[string]interface{}{
		"eligible": entries(buckets.Eligible, false),
		"waiting":  entries(buckets.Waiting, true),
		"refunded": entries(buckets.Refunded, false),
		"total":    len(members),
	})
}

func (a *API) handleProcessRefund(e *core.RequestEvent) error {
	memberID := e.Request.PathValue("memberId")
	record, err := a.app.FindRecordById(collectionMembers, memberID)
	if err != nil {
		return e.JSON(http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("member %s not found", memberID),
		})
	}

	member := MemberFromRecord(record)
	service := NewRefundService(NewPBRefundStore(a.app), a.clock)

	err = service.ProcessRefund(member)
	switch {
	case err == nil:
		return e.JSON(http.StatusOK, map[string]interface{}{
			"status": "refunded",
			"member": memberID,
			"amount": RefundAmount,
		})
	case errors.Is(err, ErrAlreadyRefunded):
		return e.JSON(http.StatusConflict, map[string]interface{}{"error": err.Error()})
	case errors.Is(err, ErrNotEligible):
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	}

	var torn *TornStateError
	if errors.As(err, &torn) {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":        "refund left torn state, manual repair required",
			"member_write": torn.MemberWrite,
			"ledger_write": torn.LedgerWrite,
			"detail":       torn.Err.Error(),
		})
	}
	return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
}

func (a *API) handleListQuarters(e *core.RequestEvent) error {
	service := NewSharePriceService(NewPBPriceStore(a.app))
	views, err := service.ListQuarters()
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	return e.JSON(http.StatusOK, map[string]interface{}{
		"headers":  QuarterHeaders,
		"quarters": views,
	})
}

// quarterRequest is the body for share price POST and PATCH.
type quarterRequest struct {
	Year    int     `json:"year"`
	Quarter string  `json:"quarter"`
	Price   float64 `json:"price"`
}

func (a *API) handleUpsertQuarter(e *core.RequestEvent) error {
	var req quarterRequest
	if err := e.BindBody(&req); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
	}

	service := NewSharePriceService(NewPBPriceStore(a.app))
	err := service.UpsertQuarterPrice(req.Year, req.Quarter, req.Price)
	switch {
	case err == nil:
		return e.JSON(http.StatusOK, map[string]interface{}{
			"status":  "added",
			"year":    req.Year,
			"quarter": req.Quarter,
			"price":   req.Price,
		})
	case errors.Is(err, ErrQuarterExists):
		return e.JSON(http.StatusConflict, map[string]interface{}{"error": err.Error()})
	case errors.Is(err, ErrUnknownQuarter):
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	}

	var partial *PartialWriteError
	if errors.As(err, &partial) {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":     "partial write, manual repair required",
			"persisted": partial.Persisted,
			"required":  partial.Required,
			"detail":    partial.Err.Error(),
		})
	}
	return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
}

// findQuarterView resolves the stored view for (year, quarter).
func (a *API) findQuarterView(service *SharePriceService, year int, quarter string) (QuarterView, error) {
	views, err := service.ListQuarters()
	if err != nil {
		return QuarterView{}, err
	}
	for _, view := range views {
		if view.Year == year && view.Quarter == quarter {
			return view, nil
		}
	}
	return QuarterView{}, fmt.Errorf("no stored prices for %d %s", year, quarter)
}

func (a *API) handleUpdateQuarter(e *core.RequestEvent) error {
	var req quarterRequest
	if err := e.BindBody(&req); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
	}

	service := NewSharePriceService(NewPBPriceStore(a.app))
	view, err := a.findQuarterView(service, req.Year, req.Quarter)
	if err != nil {
		return e.JSON(http.StatusNotFound, map[string]interface{}{"error": err.Error()})
	}

	if err := service.UpdateQuarterPrice(view, req.Price); err != nil {
		return quarterWriteError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]interface{}{
		"status":  "updated",
		"year":    req.Year,
		"quarter": req.Quarter,
		"price":   req.Price,
	})
}

func (a *API) handleDeleteQuarter(e *core.RequestEvent) error {
	query := e.Request.URL.Query()
	year, err := strconv.Atoi(query.Get("year"))
	if err != nil {
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid year"})
	}
	quarter := query.Get("quarter")

	service := NewSharePriceService(NewPBPriceStore(a.app))
	view, err := a.findQuarterView(service, year, quarter)
	if err != nil {
		return e.JSON(http.StatusNotFound, map[string]interface{}{"error": err.Error()})
	}

	if err := service.DeleteQuarterPrice(view); err != nil {
		return quarterWriteError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]interface{}{
		"status":  "deleted",
		"year":    year,
		"quarter": quarter,
	})
}

// quarterWriteError maps a reconciler write error to a response,
// distinguishing partial writes for manual repair.
func quarterWriteError(e *core.RequestEvent, err error) error {
	var partial *PartialWriteError
	if errors.As(err, &partial) {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":     "partial write, manual repair required",
			"persisted": partial.Persisted,
			"required":  partial.Required,
		})
	}
	return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
}

func (a *API) handleExport(e *core.RequestEvent) error {
	year, month, err := periodParams(e)
	if err != nil {
		return e.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sheetsService, err := google.NewSheetsClient(ctx)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}
	if sheetsService == nil {
		return e.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "Google Sheets export is not enabled",
		})
	}

	members, err := LoadMembers(a.app)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	exporter := NewReportExporter(sheetsService, google.GetSpreadsheetID())
	if err := exporter.ExportReports(ctx, members, year, month, a.clock); err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}

	return e.JSON(http.StatusOK, map[string]interface{}{
		"status": "exported",
		"year":   year,
		"month":  month,
	})
}
