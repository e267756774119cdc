package http

import (
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/core"
	"budget/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var filter storage.TransactionFilter

	if kind := r.URL.Query().Get("type"); kind != "" {
		switch core.TransactionKind(kind) {
		case core.Income, core.Expense:
			filter.Kind = core.TransactionKind(kind)
		default:
			respondError(w, http.StatusUnprocessableEntity, "Invalid transaction type")
			return
		}
	}

	if raw := r.URL.Query().Get("month"); raw != "" {
		month, err := core.ParseMonth(raw)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "Invalid month format, expected YYYY-MM")
			return
		}
		filter.Month = &month
	}

	transactions, err := s.tx.ListTransactions(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}

	respondJSON(w, http.StatusOK, envelope{"transactions": transactions})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := t.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.tx.CreateTransaction(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	s.invalidateSummaries()
	respondJSON(w, http.StatusOK, envelope{"transaction": created})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.tx.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to fetch transaction", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch transaction")
		return
	}

	respondJSON(w, http.StatusOK, envelope{"transaction": t})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	t.ID = r.PathValue("id")
	if err := t.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := s.tx.UpdateTransaction(r.Context(), t)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update transaction", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	s.invalidateSummaries()
	respondJSON(w, http.StatusOK, envelope{"transaction": updated})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.tx.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	s.invalidateSummaries()
	respondMessage(w, "Transaction deleted successfully")
}
