// Package client holds the in-memory mirror of server-side budget data used
// by consumers that want local reads between syncs. The backend stays the
// source of truth: every mutation is a remote write first, and the cache is
// only touched once the backend has accepted it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/core"
	"budget/internal/services"
)

// ValidationError reports bad input rejected before any network call.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// TransportError reports a failed backend round trip. The cache is never
// modified when one is returned.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Store mirrors the backend's transactions, bills, and categories. All
// methods are safe for concurrent use.
type Store struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	transactions []core.Transaction
	bills        []core.Bill
	categories   []core.Category
}

func NewStore(baseURL string, httpClient *http.Client) *Store {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Store{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

// Refresh replaces all cached collections wholesale from the backend. The
// three fetches run concurrently; if any of them fails, the cache keeps its
// previous contents and the first error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	var (
		transactions struct {
			Transactions []core.Transaction `json:"transactions"`
		}
		bills struct {
			Bills []core.Bill `json:"bills"`
		}
		categories struct {
			Categories []core.Category `json:"categories"`
		}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.do(ctx, http.MethodGet, "/api/transactions", nil, &transactions) })
	g.Go(func() error { return s.do(ctx, http.MethodGet, "/api/bills", nil, &bills) })
	g.Go(func() error { return s.do(ctx, http.MethodGet, "/api/categories", nil, &categories) })
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = transactions.Transactions
	s.bills = bills.Bills
	s.categories = categories.Categories
	return nil
}

// Transactions returns a copy of the cached transactions.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Bills returns a copy of the cached bills.
func (s *Store) Bills() []core.Bill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Bill, len(s.bills))
	copy(out, s.bills)
	return out
}

// Categories returns a copy of the cached categories.
func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Err: err}
	}

	var resp struct {
		Transaction core.Transaction `json:"transaction"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/transactions", t, &resp); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	s.transactions = append(s.transactions, resp.Transaction)
	s.mu.Unlock()
	return resp.Transaction, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Err: err}
	}

	var resp struct {
		Transaction core.Transaction `json:"transaction"`
	}
	if err := s.do(ctx, http.MethodPut, "/api/transactions/"+t.ID, t, &resp); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	for i := range s.transactions {
		if s.transactions[i].ID == resp.Transaction.ID {
			s.transactions[i] = resp.Transaction
			break
		}
	}
	s.mu.Unlock()
	return resp.Transaction, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.do(ctx, http.MethodDelete, "/api/transactions/"+id, nil, nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.transactions = removeByID(s.transactions, id, func(t core.Transaction) string { return t.ID })
	s.mu.Unlock()
	return nil
}

func (s *Store) AddBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, &ValidationError{Err: err}
	}

	var resp struct {
		Bill core.Bill `json:"bill"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/bills", b, &resp); err != nil {
		return core.Bill{}, err
	}

	s.mu.Lock()
	s.bills = append(s.bills, resp.Bill)
	s.mu.Unlock()
	return resp.Bill, nil
}

func (s *Store) UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, &ValidationError{Err: err}
	}

	var resp struct {
		Bill core.Bill `json:"bill"`
	}
	if err := s.do(ctx, http.MethodPut, "/api/bills/"+b.ID, b, &resp); err != nil {
		return core.Bill{}, err
	}

	s.mu.Lock()
	for i := range s.bills {
		if s.bills[i].ID == resp.Bill.ID {
			s.bills[i] = resp.Bill
			break
		}
	}
	s.mu.Unlock()
	return resp.Bill, nil
}

func (s *Store) DeleteBill(ctx context.Context, id string) error {
	if err := s.do(ctx, http.MethodDelete, "/api/bills/"+id, nil, nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.bills = removeByID(s.bills, id, func(b core.Bill) string { return b.ID })
	s.mu.Unlock()
	return nil
}

// ToggleBillPaid flips the paid flag of a cached bill through a remote update.
func (s *Store) ToggleBillPaid(ctx context.Context, id string) (core.Bill, error) {
	s.mu.RLock()
	var bill *core.Bill
	for i := range s.bills {
		if s.bills[i].ID == id {
			found := s.bills[i]
			bill = &found
			break
		}
	}
	s.mu.RUnlock()

	if bill == nil {
		return core.Bill{}, &ValidationError{Err: fmt.Errorf("unknown bill %q", id)}
	}
	return s.UpdateBill(ctx, bill.TogglePaid())
}

// MonthlySummary derives the income/expenditure/savings view of one month
// from the cached collections. Purely local, no backend round trip.
func (s *Store) MonthlySummary(month core.Month) core.MonthlySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return services.MonthlySummary(month, s.transactions, s.bills)
}

// ClassifyUnpaid ranks every cached unpaid bill by due-date urgency.
func (s *Store) ClassifyUnpaid(now time.Time) map[string]services.Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]services.Classification)
	for _, b := range s.bills {
		if b.IsPaid {
			continue
		}
		out[b.ID] = services.Classify(b.DueDate, now)
	}
	return out
}

func removeByID[T any](items []T, id string, idOf func(T) string) []T {
	out := items[:0]
	for _, item := range items {
		if idOf(item) != id {
			out = append(out, item)
		}
	}
	return out
}

type remoteError struct {
	Detail string `json:"detail"`
}

// do runs one backend round trip, decoding the response into out when it is
// non-nil. Any failure comes back as a TransportError.
func (s *Store) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var body *bytes.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var remote remoteError
		if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil && remote.Detail != "" {
			return &TransportError{Op: op, Err: fmt.Errorf("backend returned %d: %s", resp.StatusCode, remote.Detail)}
		}
		return &TransportError{Op: op, Err: fmt.Errorf("backend returned %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}
