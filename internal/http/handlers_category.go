package http

import (
	"log/slog"
	"net/http"
	"strings"

	"budget/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}

	respondJSON(w, http.StatusOK, envelope{"categories": categories})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(r, &c); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(c.Name) == "" {
		respondError(w, http.StatusUnprocessableEntity, "Category name is required")
		return
	}
	if c.Kind == "" {
		c.Kind = core.Expense
	}
	switch c.Kind {
	case core.Income, core.Expense:
	default:
		respondError(w, http.StatusUnprocessableEntity, "Invalid category type")
		return
	}

	created, err := s.categories.CreateCategory(r.Context(), c)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create category", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	respondJSON(w, http.StatusOK, envelope{"category": created})
}

func (s *Server) handleListUPIPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.upi.ListUPIPayments(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list UPI payments", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch UPI payments")
		return
	}
	if payments == nil {
		payments = []core.UPIPayment{}
	}

	respondJSON(w, http.StatusOK, envelope{"payments": payments})
}

func (s *Server) handleCreateUPIPayment(w http.ResponseWriter, r *http.Request) {
	var p core.UPIPayment
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := p.Amount.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(p.Recipient) == "" {
		respondError(w, http.StatusUnprocessableEntity, "Recipient is required")
		return
	}
	if p.Date.IsZero() {
		respondError(w, http.StatusUnprocessableEntity, "Date is required")
		return
	}

	created, err := s.upi.CreateUPIPayment(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create UPI payment", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create UPI payment")
		return
	}

	respondJSON(w, http.StatusOK, envelope{"payment": created})
}
