package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/storage"
)

// handleAnalyticsSummary answers income/expense totals with a per-category
// expense breakdown, for one month or all time. Results are cached until the
// TTL expires or a transaction mutation clears the cache.
func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	var (
		month    *core.Month
		cacheKey = "all"
	)
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := core.ParseMonth(raw)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "Invalid month format, expected YYYY-MM")
			return
		}
		month = &parsed
		cacheKey = parsed.String()
	}

	if cached, ok := s.summaryCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	transactions, err := s.tx.ListTransactions(r.Context(), storage.TransactionFilter{Month: month})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for summary", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	summary := services.AnalyticsSummary(month, transactions)
	s.summaryCache.Set(cacheKey, summary)
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusUnprocessableEntity, "Invalid months value")
			return
		}
		months = parsed
	}

	transactions, err := s.tx.ListTransactions(r.Context(), storage.TransactionFilter{})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for chart", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute chart")
		return
	}

	chart := services.MonthlyChart(transactions, months)
	if chart == nil {
		chart = []core.ChartPoint{}
	}

	respondJSON(w, http.StatusOK, envelope{"data": chart})
}

func (s *Server) handlePocketMoney(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.tx.ListTransactions(r.Context(), storage.TransactionFilter{})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for pocket money", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute pocket money")
		return
	}

	bills, err := s.billLister.ListBills(r.Context(), "")
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load bills for pocket money", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute pocket money")
		return
	}

	respondJSON(w, http.StatusOK, services.PocketMoneyFor(time.Now(), transactions, bills))
}

func (s *Server) handleAIInsights(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		respondError(w, http.StatusServiceUnavailable, "AI features are not configured")
		return
	}

	month := core.MonthOf(time.Now())
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := core.ParseMonth(raw)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "Invalid month format, expected YYYY-MM")
			return
		}
		month = parsed
	}

	transactions, err := s.tx.ListTransactions(r.Context(), storage.TransactionFilter{Month: &month})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for insights", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute insights")
		return
	}

	summary := services.AnalyticsSummary(&month, transactions)
	insights, err := s.parser.Insights(r.Context(), month, summary)
	if err != nil {
		slog.ErrorContext(r.Context(), "AI insights request failed", "error", err)
		respondError(w, http.StatusBadGateway, "Failed to generate insights")
		return
	}

	respondJSON(w, http.StatusOK, envelope{"insights": insights, "month": month.String()})
}
