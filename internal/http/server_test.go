package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/storage"
)

type fakeTxStore struct {
	byID   map[string]core.Transaction
	nextID int
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{byID: map[string]core.Transaction{}}
}

func (f *fakeTxStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	f.nextID++
	t.ID = fmt.Sprintf("tx-%d", f.nextID)
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeTxStore) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if _, ok := f.byID[t.ID]; !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeTxStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	t, ok := f.byID[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeTxStore) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.byID {
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.Month != nil && !filter.Month.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTxStore) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeBillRepo struct {
	byID   map[string]core.Bill
	nextID int
}

func newFakeBillRepo() *fakeBillRepo {
	return &fakeBillRepo{byID: map[string]core.Bill{}}
}

func (f *fakeBillRepo) CreateBill(_ context.Context, b core.Bill) (core.Bill, error) {
	f.nextID++
	b.ID = fmt.Sprintf("bill-%d", f.nextID)
	f.byID[b.ID] = b
	return b, nil
}

func (f *fakeBillRepo) UpdateBill(_ context.Context, b core.Bill) (core.Bill, error) {
	if _, ok := f.byID[b.ID]; !ok {
		return core.Bill{}, storage.ErrNotFound
	}
	f.byID[b.ID] = b
	return b, nil
}

func (f *fakeBillRepo) DeleteBill(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeBillRepo) GetBill(_ context.Context, id string) (core.Bill, error) {
	b, ok := f.byID[id]
	if !ok {
		return core.Bill{}, storage.ErrNotFound
	}
	return b, nil
}

func (f *fakeBillRepo) ListRecurringTemplates(_ context.Context) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range f.byID {
		if b.IsRecurring && b.ParentBillID == "" {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBillRepo) FindGeneratedInstance(_ context.Context, parentID string, month core.Month) (*core.Bill, error) {
	for _, b := range f.byID {
		if b.ParentBillID == parentID && month.Contains(b.DueDate) {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeBillRepo) ListBills(_ context.Context, status string) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range f.byID {
		switch status {
		case storage.BillStatusPaid:
			if !b.IsPaid {
				continue
			}
		case storage.BillStatusPending:
			if b.IsPaid {
				continue
			}
		}
		out = append(out, b)
	}
	return out, nil
}

type fakeCategoryStore struct {
	categories []core.Category
}

func (f *fakeCategoryStore) ListCategories(_ context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeCategoryStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.ID = fmt.Sprintf("cat-%d", len(f.categories)+1)
	f.categories = append(f.categories, c)
	return c, nil
}

type fakeUPIStore struct {
	payments []core.UPIPayment
}

func (f *fakeUPIStore) CreateUPIPayment(_ context.Context, p core.UPIPayment) (core.UPIPayment, error) {
	p.ID = fmt.Sprintf("upi-%d", len(f.payments)+1)
	f.payments = append(f.payments, p)
	return p, nil
}

func (f *fakeUPIStore) ListUPIPayments(_ context.Context) ([]core.UPIPayment, error) {
	return f.payments, nil
}

type testEnv struct {
	server *Server
	tx     *fakeTxStore
	bills  *fakeBillRepo
}

func newTestServer(t *testing.T) testEnv {
	t.Helper()

	tx := newFakeTxStore()
	bills := newFakeBillRepo()
	srv := NewServer(":0", Deps{
		Transactions:    tx,
		Bills:           services.NewBillService(bills, nil),
		BillLister:      bills,
		Generator:       services.NewRecurringGenerator(bills),
		Categories:      &fakeCategoryStore{},
		UPIPayments:     &fakeUPIStore{},
		SummaryCacheTTL: time.Minute,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return testEnv{server: srv, tx: tx, bills: bills}
}

func (e testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestTransactionLifecycle(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":45.50,"category":"Food","description":"Lunch","date":"2024-05-10"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Transaction core.Transaction `json:"transaction"`
	}
	decodeBody(t, rec, &created)
	if created.Transaction.ID == "" {
		t.Fatal("created transaction has no id")
	}
	if created.Transaction.Amount.Cents != 4550 {
		t.Errorf("amount cents = %d, want 4550", created.Transaction.Amount.Cents)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions", "")
	var list struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	decodeBody(t, rec, &list)
	if len(list.Transactions) != 1 {
		t.Fatalf("listed %d transactions, want 1", len(list.Transactions))
	}

	rec = env.do(t, http.MethodGet, "/api/transactions/"+created.Transaction.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/transactions/"+created.Transaction.ID,
		`{"type":"expense","amount":50,"category":"Food","date":"2024-05-10"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/api/transactions/"+created.Transaction.ID, "")
	var deleted map[string]string
	decodeBody(t, rec, &deleted)
	if deleted["message"] != "Transaction deleted successfully" {
		t.Errorf("delete message = %q", deleted["message"])
	}

	rec = env.do(t, http.MethodGet, "/api/transactions/"+created.Transaction.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
	var errBody map[string]string
	decodeBody(t, rec, &errBody)
	if errBody["detail"] != "Transaction not found" {
		t.Errorf("detail = %q", errBody["detail"])
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad kind", `{"type":"transfer","amount":10,"category":"Food","date":"2024-05-10"}`},
		{"zero amount", `{"type":"expense","amount":0,"category":"Food","date":"2024-05-10"}`},
		{"missing category", `{"type":"expense","amount":10,"date":"2024-05-10"}`},
		{"missing date", `{"type":"expense","amount":10,"category":"Food"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
			}
		})
	}

	if len(env.tx.byID) != 0 {
		t.Errorf("store has %d transactions after rejected creates, want 0", len(env.tx.byID))
	}
}

func TestListTransactionsFilter(t *testing.T) {
	env := newTestServer(t)

	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":5000,"category":"Salary","date":"2024-05-01"}`)
	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":120,"category":"Food","date":"2024-05-03"}`)
	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":80,"category":"Food","date":"2024-06-03"}`)

	rec := env.do(t, http.MethodGet, "/api/transactions?type=expense&month=2024-05", "")
	var list struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	decodeBody(t, rec, &list)
	if len(list.Transactions) != 1 {
		t.Fatalf("filtered list has %d entries, want 1", len(list.Transactions))
	}
	if list.Transactions[0].Amount.Cents != 12000 {
		t.Errorf("filtered amount = %d cents, want 12000", list.Transactions[0].Amount.Cents)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions?type=transfer", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid type filter status = %d, want 422", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions?month=May-2024", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid month filter status = %d, want 422", rec.Code)
	}
}

func TestListBillsGeneratesRecurring(t *testing.T) {
	env := newTestServer(t)

	template, err := core.NewBill("Rent", core.Money{Cents: 120000}, core.DateOf(time.Now()), "Housing", true, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.bills.CreateBill(context.Background(), template); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodGet, "/api/bills", "")
	var list struct {
		Bills []core.Bill `json:"bills"`
	}
	decodeBody(t, rec, &list)
	if len(list.Bills) != 2 {
		t.Fatalf("listed %d bills, want template plus generated instance", len(list.Bills))
	}

	// Listing again must not generate a second instance for the same month.
	rec = env.do(t, http.MethodGet, "/api/bills", "")
	decodeBody(t, rec, &list)
	if len(list.Bills) != 2 {
		t.Fatalf("second list has %d bills, want 2", len(list.Bills))
	}
}

func TestCreateBillDefaults(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/bills",
		`{"name":"Electricity","amount":60,"dueDate":"2024-05-15"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Bill core.Bill `json:"bill"`
	}
	decodeBody(t, rec, &created)
	if created.Bill.Category != core.DefaultBillCategory {
		t.Errorf("category = %q, want %q", created.Bill.Category, core.DefaultBillCategory)
	}
	if created.Bill.Source != core.SourceManual {
		t.Errorf("source = %q, want manual", created.Bill.Source)
	}
}

func TestBillStatusFilter(t *testing.T) {
	env := newTestServer(t)

	paid, _ := core.NewBill("Water", core.Money{Cents: 3000}, core.NewDate(2024, time.May, 10), "", false, 0)
	paid.IsPaid = true
	pending, _ := core.NewBill("Internet", core.Money{Cents: 5000}, core.NewDate(2024, time.May, 20), "", false, 0)
	env.bills.CreateBill(context.Background(), paid)
	env.bills.CreateBill(context.Background(), pending)

	rec := env.do(t, http.MethodGet, "/api/bills?status=unpaid", "")
	var list struct {
		Bills []core.Bill `json:"bills"`
	}
	decodeBody(t, rec, &list)
	if len(list.Bills) != 1 || list.Bills[0].Name != "Internet" {
		t.Fatalf("unpaid filter returned %+v", list.Bills)
	}

	rec = env.do(t, http.MethodGet, "/api/bills?status=overdue", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid status filter = %d, want 422", rec.Code)
	}
}

func TestAnalyticsSummaryInvalidatedByMutation(t *testing.T) {
	env := newTestServer(t)

	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":1000,"category":"Salary","date":"2024-05-01"}`)

	rec := env.do(t, http.MethodGet, "/api/analytics/summary?month=2024-05", "")
	var first core.AnalyticsSummary
	decodeBody(t, rec, &first)
	if first.TotalIncome.Cents != 100000 {
		t.Fatalf("total income = %d cents, want 100000", first.TotalIncome.Cents)
	}

	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":250,"category":"Food","date":"2024-05-02"}`)

	rec = env.do(t, http.MethodGet, "/api/analytics/summary?month=2024-05", "")
	var second core.AnalyticsSummary
	decodeBody(t, rec, &second)
	if second.TotalExpense.Cents != 25000 {
		t.Fatalf("cached summary not invalidated, expense = %d cents", second.TotalExpense.Cents)
	}
	if second.ByCategory["Food"].Cents != 25000 {
		t.Errorf("category breakdown = %+v", second.ByCategory)
	}
}

func TestMonthlyChartEnvelope(t *testing.T) {
	env := newTestServer(t)

	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":1000,"category":"Salary","date":"2024-04-01"}`)
	env.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":300,"category":"Food","date":"2024-05-01"}`)

	rec := env.do(t, http.MethodGet, "/api/analytics/monthly-chart", "")
	var body struct {
		Data []core.ChartPoint `json:"data"`
	}
	decodeBody(t, rec, &body)
	if len(body.Data) != 2 {
		t.Fatalf("chart has %d points, want 2", len(body.Data))
	}
	if body.Data[0].Month != "2024-04" || body.Data[1].Month != "2024-05" {
		t.Errorf("chart months = %q, %q", body.Data[0].Month, body.Data[1].Month)
	}
}

func TestAIEndpointsUnavailableWithoutParser(t *testing.T) {
	env := newTestServer(t)

	targets := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/ocr/receipt", `{"imageBase64":"aGk="}`},
		{http.MethodPost, "/api/parse/sms", `{"sender":"HDFCBK","message":"Rs 500 debited"}`},
		{http.MethodPost, "/api/parse/email", `{"subject":"Statement","body":"Total due"}`},
		{http.MethodGet, "/api/analytics/ai-insights", ""},
	}

	for _, target := range targets {
		rec := env.do(t, target.method, target.path, target.body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want 503", target.method, target.path, rec.Code)
		}
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	rec := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
