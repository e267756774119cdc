package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/storage"
)

// handleListBills materializes any recurring instances that came due before
// answering, so a freshly opened bills screen is never missing this month's
// generated bills.
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	if s.generator != nil {
		logger := applog.FromContext(r.Context())
		if generated, err := s.generator.ProcessDueBills(r.Context(), time.Now()); err != nil {
			logger.ErrorContext(r.Context(), "Recurring bill generation failed",
				applog.FieldOperation, applog.OpGenerate,
				applog.FieldError, err)
		} else if generated > 0 {
			logger.InfoContext(r.Context(), "Generated recurring bills",
				applog.FieldOperation, applog.OpGenerate,
				"count", generated)
		}
	}

	var status string
	switch r.URL.Query().Get("status") {
	case "":
	case "paid":
		status = storage.BillStatusPaid
	case "unpaid":
		status = storage.BillStatusPending
	default:
		respondError(w, http.StatusUnprocessableEntity, "Invalid status filter, expected paid or unpaid")
		return
	}

	bills, err := s.billLister.ListBills(r.Context(), status)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list bills", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch bills")
		return
	}
	if bills == nil {
		bills = []core.Bill{}
	}

	respondJSON(w, http.StatusOK, envelope{"bills": bills})
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var b core.Bill
	if err := decodeJSON(r, &b); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if b.Category == "" {
		b.Category = core.DefaultBillCategory
	}
	if b.Source == "" {
		b.Source = core.SourceManual
	}
	if err := b.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.bills.CreateBill(r.Context(), b)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create bill", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create bill")
		return
	}

	respondJSON(w, http.StatusOK, envelope{"bill": created})
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var b core.Bill
	if err := decodeJSON(r, &b); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	b.ID = r.PathValue("id")
	if err := b.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := s.bills.UpdateBill(r.Context(), b)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Bill not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update bill", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update bill")
		return
	}

	respondJSON(w, http.StatusOK, envelope{"bill": updated})
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.bills.DeleteBill(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Bill not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete bill", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete bill")
		return
	}

	respondMessage(w, "Bill deleted successfully")
}
