package adminhttp

import (
	"net/http"
	"strconv"

	bmw "bistro-server/internal/pkg/middleware"
	"bistro-server/internal/reports"
	"bistro-server/internal/repository/postgres"
	berrors "bistro-server/pkg/errors"
	"bistro-server/pkg/server/response"
)

// Reports bundles the repositories the admin gateway's read-only endpoints
// query directly, independent of the TCP dispatcher's own report/table/
// hours handlers (spec.md §4.9+'s GET_PERFORMANCE_REPORT /
// GET_SUBSCRIPTION_REPORT / GET_ALL_TABLES / GET_OPENING_HOURS tags).
type Reports struct {
	Store  *reports.Store
	Tables *postgres.TableRepository
	Hours  *postgres.HoursRepository
}

func monthYear(r *http.Request) (int, int, error) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, berrors.ErrInvalidInput.WithDetails("field", "month")
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 {
		return 0, 0, berrors.ErrInvalidInput.WithDetails("field", "year")
	}
	return month, year, nil
}

func (gw *Gateway) performanceReport(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYear(r)
	if err != nil {
		bmw.RespondError(w, r, gw.logger, err)
		return
	}
	data, err := gw.reports.Store.Performance(r.Context(), month, year)
	if err != nil {
		bmw.RespondError(w, r, gw.logger, err)
		return
	}
	response.OK(w, r, data)
}

func (gw *Gateway) subscriptionReport(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYear(r)
	if err != nil {
		bmw.RespondError(w, r, gw.logger, err)
		return
	}
	data, err := gw.reports.Store.Subscription(r.Context(), month, year)
	if err != nil {
		bmw.RespondError(w, r, gw.logger, err)
		return
	}
	response.OK(w, r, data)
}

func (gw *Gateway) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := gw.reports.Tables.List(r.Context())
	if err != nil {
		bmw.RespondError(w, r, gw.logger, err)
		return
	}
	response.OK(w, r, tables)
}

func (gw *Gateway) listHours(w http.ResponseWriter, r *http.Request) {
	hours, err := gw.reports.Hours.List(r.Context())
	if err != nil {
		bmw.RespondError(w, r, gw.logger, err)
		return
	}
	response.OK(w, r, hours)
}
