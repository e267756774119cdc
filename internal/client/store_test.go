package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/services"
)

func testBill(id, name string) core.Bill {
	return core.Bill{
		ID:       id,
		Name:     name,
		Amount:   core.Money{Cents: 5000},
		DueDate:  core.NewDate(2024, time.May, 15),
		Category: "Bills",
		Source:   core.SourceManual,
	}
}

func testTransaction(id string) core.Transaction {
	return core.Transaction{
		ID:       id,
		Kind:     core.Expense,
		Amount:   core.Money{Cents: 1200},
		Category: "Food",
		Date:     core.NewDate(2024, time.May, 10),
	}
}

// fakeBackend serves the subset of the API the store talks to, counting
// every request it sees.
type fakeBackend struct {
	t        *testing.T
	calls    atomic.Int64
	failAll  atomic.Bool
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{t: t, handlers: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if b.failAll.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
			return
		}
		key := r.Method + " " + r.URL.Path
		handler, ok := b.handlers[key]
		if !ok {
			b.t.Fatalf("unexpected request %s", key)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) respondJSON(body any) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(body)
	}
}

func TestRefreshReplacesCollections(t *testing.T) {
	backend, srv := newFakeBackend(t)
	backend.handlers["GET /api/transactions"] = backend.respondJSON(map[string]any{
		"transactions": []core.Transaction{testTransaction("tx-1")},
	})
	backend.handlers["GET /api/bills"] = backend.respondJSON(map[string]any{
		"bills": []core.Bill{testBill("bill-1", "Rent")},
	})
	backend.handlers["GET /api/categories"] = backend.respondJSON(map[string]any{
		"categories": []core.Category{{ID: "cat-1", Name: "Food", Kind: core.Expense}},
	})

	store := NewStore(srv.URL, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := store.Transactions(); len(got) != 1 || got[0].ID != "tx-1" {
		t.Errorf("Transactions() = %+v", got)
	}
	if got := store.Bills(); len(got) != 1 || got[0].Name != "Rent" {
		t.Errorf("Bills() = %+v", got)
	}
	if got := store.Categories(); len(got) != 1 || got[0].Name != "Food" {
		t.Errorf("Categories() = %+v", got)
	}
}

func TestRefreshFailureLeavesCacheIntact(t *testing.T) {
	backend, srv := newFakeBackend(t)
	backend.handlers["GET /api/transactions"] = backend.respondJSON(map[string]any{
		"transactions": []core.Transaction{testTransaction("tx-1")},
	})
	backend.handlers["GET /api/bills"] = backend.respondJSON(map[string]any{
		"bills": []core.Bill{testBill("bill-1", "Rent")},
	})
	backend.handlers["GET /api/categories"] = backend.respondJSON(map[string]any{
		"categories": []core.Category{},
	})

	store := NewStore(srv.URL, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("initial Refresh() error = %v", err)
	}

	backend.failAll.Store(true)
	err := store.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() after backend failure returned nil error")
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Refresh() error = %T, want *TransportError", err)
	}

	if got := store.Transactions(); len(got) != 1 {
		t.Errorf("cache lost transactions after failed refresh: %+v", got)
	}
	if got := store.Bills(); len(got) != 1 {
		t.Errorf("cache lost bills after failed refresh: %+v", got)
	}
}

func TestAddTransactionValidationSkipsNetwork(t *testing.T) {
	backend, srv := newFakeBackend(t)
	store := NewStore(srv.URL, nil)

	cases := []core.Transaction{
		{Kind: core.Expense, Category: "Food", Date: core.NewDate(2024, time.May, 1)},                            // missing amount
		{Kind: core.Expense, Amount: core.Money{}, Category: "Food", Date: core.NewDate(2024, time.May, 1)},      // zero amount
		{Kind: "transfer", Amount: core.Money{Cents: 100}, Category: "Food", Date: core.NewDate(2024, time.May, 1)}, // bad kind
	}

	for _, tx := range cases {
		_, err := store.AddTransaction(context.Background(), tx)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("AddTransaction(%+v) error = %v, want *ValidationError", tx, err)
		}
	}

	if calls := backend.calls.Load(); calls != 0 {
		t.Errorf("backend observed %d calls, want 0", calls)
	}
}

func TestAddTransactionFailureLeavesCacheUnchanged(t *testing.T) {
	backend, srv := newFakeBackend(t)
	backend.failAll.Store(true)

	store := NewStore(srv.URL, nil)
	_, err := store.AddTransaction(context.Background(), core.Transaction{
		Kind:     core.Expense,
		Amount:   core.Money{Cents: 100},
		Category: "Food",
		Date:     core.NewDate(2024, time.May, 1),
	})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}

	if got := store.Transactions(); len(got) != 0 {
		t.Errorf("cache mutated after failed create: %+v", got)
	}
}

func TestDeleteBillRemovesExactlyOne(t *testing.T) {
	backend, srv := newFakeBackend(t)
	backend.handlers["GET /api/transactions"] = backend.respondJSON(map[string]any{"transactions": []core.Transaction{}})
	backend.handlers["GET /api/bills"] = backend.respondJSON(map[string]any{
		"bills": []core.Bill{testBill("bill-1", "Rent"), testBill("bill-2", "Internet"), testBill("bill-3", "Water")},
	})
	backend.handlers["GET /api/categories"] = backend.respondJSON(map[string]any{"categories": []core.Category{}})
	backend.handlers["DELETE /api/bills/bill-2"] = backend.respondJSON(map[string]string{"message": "Bill deleted successfully"})

	store := NewStore(srv.URL, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteBill(context.Background(), "bill-2"); err != nil {
		t.Fatalf("DeleteBill() error = %v", err)
	}

	bills := store.Bills()
	if len(bills) != 2 {
		t.Fatalf("cache has %d bills after delete, want 2", len(bills))
	}
	for _, b := range bills {
		if b.ID == "bill-2" {
			t.Error("deleted bill still cached")
		}
	}
}

func TestToggleBillPaidRoundTrip(t *testing.T) {
	backend, srv := newFakeBackend(t)
	backend.handlers["GET /api/transactions"] = backend.respondJSON(map[string]any{"transactions": []core.Transaction{}})
	backend.handlers["GET /api/bills"] = backend.respondJSON(map[string]any{
		"bills": []core.Bill{testBill("bill-1", "Rent")},
	})
	backend.handlers["GET /api/categories"] = backend.respondJSON(map[string]any{"categories": []core.Category{}})
	backend.handlers["PUT /api/bills/bill-1"] = func(w http.ResponseWriter, r *http.Request) {
		var b core.Bill
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			t.Fatal(err)
		}
		b.ID = "bill-1"
		json.NewEncoder(w).Encode(map[string]any{"bill": b})
	}

	store := NewStore(srv.URL, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	original := store.Bills()[0]

	toggled, err := store.ToggleBillPaid(context.Background(), "bill-1")
	if err != nil {
		t.Fatalf("first toggle error = %v", err)
	}
	if !toggled.IsPaid {
		t.Fatal("bill not marked paid after first toggle")
	}

	restored, err := store.ToggleBillPaid(context.Background(), "bill-1")
	if err != nil {
		t.Fatalf("second toggle error = %v", err)
	}
	if restored != original {
		t.Errorf("double toggle changed bill:\n got %+v\nwant %+v", restored, original)
	}
}

func TestDerivedViewsFromCache(t *testing.T) {
	backend, srv := newFakeBackend(t)
	overdue := testBill("bill-1", "Rent")
	overdue.DueDate = core.NewDate(2024, time.May, 10)
	upcoming := testBill("bill-2", "Internet")
	upcoming.DueDate = core.NewDate(2024, time.May, 25)
	backend.handlers["GET /api/transactions"] = backend.respondJSON(map[string]any{
		"transactions": []core.Transaction{
			{ID: "tx-1", Kind: core.Income, Amount: core.Money{Cents: 500000}, Category: "Salary", Date: core.NewDate(2024, time.May, 1)},
			{ID: "tx-2", Kind: core.Expense, Amount: core.Money{Cents: 120000}, Category: "Food", Date: core.NewDate(2024, time.May, 3)},
		},
	})
	backend.handlers["GET /api/bills"] = backend.respondJSON(map[string]any{
		"bills": []core.Bill{overdue, upcoming},
	})
	backend.handlers["GET /api/categories"] = backend.respondJSON(map[string]any{"categories": []core.Category{}})

	store := NewStore(srv.URL, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	summary := store.MonthlySummary(core.Month{Year: 2024, Month: time.May})
	if summary.Income.Cents != 500000 {
		t.Errorf("income = %d cents, want 500000", summary.Income.Cents)
	}
	if summary.Expenditure.Cents != 130000 {
		t.Errorf("expenditure = %d cents, want 130000", summary.Expenditure.Cents)
	}
	if len(summary.Items) != 3 {
		t.Errorf("summary has %d items, want 3", len(summary.Items))
	}

	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	classes := store.ClassifyUnpaid(now)
	if got := classes["bill-1"].Urgency; got != services.Overdue {
		t.Errorf("bill-1 urgency = %v, want Overdue", got)
	}
	if got := classes["bill-2"].Urgency; got != services.Upcoming {
		t.Errorf("bill-2 urgency = %v, want Upcoming", got)
	}
}

func TestToggleUnknownBill(t *testing.T) {
	backend, srv := newFakeBackend(t)
	store := NewStore(srv.URL, nil)

	_, err := store.ToggleBillPaid(context.Background(), "missing")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if calls := backend.calls.Load(); calls != 0 {
		t.Errorf("backend observed %d calls, want 0", calls)
	}
}
