package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/service"
)

// handleListSales accepts optional from/to dates (YYYY-MM-DD); both ends are
// whole days in the reporting location.
func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	var filter domain.SaleFilter
	if from := r.URL.Query().Get("from"); from != "" {
		day, err := a.service.ParseDay(from)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.From = a.service.DayRange(day).From
	}
	if to := r.URL.Query().Get("to"); to != "" {
		day, err := a.service.ParseDay(to)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.To = a.service.DayRange(day).To
	}

	sales, err := a.service.ListSales(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sales)
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, sale)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sale)
}

func (a *API) handleTodaySales(w http.ResponseWriter, r *http.Request) {
	today, err := a.service.TodaySales(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, today)
}

func (a *API) handleSalesMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := a.service.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := a.service.MonthlyReport(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (a *API) handlePaymentBreakdown(w http.ResponseWriter, r *http.Request) {
	day, err := a.service.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	breakdown, err := a.service.PaymentBreakdown(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, breakdown)
}

func (a *API) handleBestSelling(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(chi.URLParam(r, "limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, &service.ValidationError{Field: "limit", Message: "must be a whole number"})
			return
		}
		limit = parsed
	}
	items, err := a.service.BestSelling(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	day, err := a.service.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" || format == service.FormatJSON {
		summary, err := a.service.DailyReport(r.Context(), day)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, summary)
		return
	}

	doc, err := a.service.ExportDaily(r.Context(), day, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

func (a *API) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := a.service.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" || format == service.FormatJSON {
		summary, err := a.service.MonthlyReport(r.Context(), month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, summary)
		return
	}

	doc, err := a.service.ExportMonthly(r.Context(), month, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

func (a *API) handleStockAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.service.StockAlerts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, alerts)
}
