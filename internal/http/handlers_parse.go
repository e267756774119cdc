package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"budget/internal/core"
)

const aiUnavailableDetail = "AI features are not configured"

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		respondError(w, http.StatusServiceUnavailable, aiUnavailableDetail)
		return
	}

	var req struct {
		ImageBase64 string `json:"imageBase64"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if req.ImageBase64 == "" {
		respondError(w, http.StatusUnprocessableEntity, "imageBase64 is required")
		return
	}

	result, err := s.parser.ScanReceipt(r.Context(), req.ImageBase64)
	if err != nil {
		slog.ErrorContext(r.Context(), "Receipt scan failed", "error", err)
		respondError(w, http.StatusBadGateway, "Failed to process receipt")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleParseSMS(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		respondError(w, http.StatusServiceUnavailable, aiUnavailableDetail)
		return
	}

	var req struct {
		Sender  string    `json:"sender"`
		Message string    `json:"message"`
		Body    string    `json:"body"` // accepted as an alias for message
		Date    core.Date `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if req.Message == "" {
		req.Message = req.Body
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(time.Now())
	}

	result, err := s.parser.ParseSMS(r.Context(), req.Sender, req.Message, req.Date)
	if err != nil {
		slog.ErrorContext(r.Context(), "SMS parse failed", "error", err)
		respondError(w, http.StatusBadGateway, "Failed to parse SMS")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleParseEmail(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		respondError(w, http.StatusServiceUnavailable, aiUnavailableDetail)
		return
	}

	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		respondError(w, http.StatusUnprocessableEntity, "body is required")
		return
	}

	result, err := s.parser.ParseEmail(r.Context(), req.Subject, req.Body)
	if err != nil {
		slog.ErrorContext(r.Context(), "Email parse failed", "error", err)
		respondError(w, http.StatusBadGateway, "Failed to parse email")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
