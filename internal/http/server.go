package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budget/internal/ai"
	"budget/internal/cache"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	"budget/internal/storage"
)

// TransactionStore is the transaction persistence surface the API needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// BillLister reads bills for list and analytics endpoints. Mutations go
// through services.BillService so events are published.
type BillLister interface {
	ListBills(ctx context.Context, status string) ([]core.Bill, error)
}

// CategoryStore reads and creates presentation categories.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
}

// UPIStore persists payments parsed from UPI transaction SMS.
type UPIStore interface {
	CreateUPIPayment(ctx context.Context, p core.UPIPayment) (core.UPIPayment, error)
	ListUPIPayments(ctx context.Context) ([]core.UPIPayment, error)
}

// Parser is the AI boundary for receipts, SMS, email, and insights.
// A nil Parser disables those endpoints with 503 responses.
type Parser interface {
	ScanReceipt(ctx context.Context, imageBase64 string) (ai.ReceiptResult, error)
	ParseSMS(ctx context.Context, sender, message string, received core.Date) (ai.SMSResult, error)
	ParseEmail(ctx context.Context, subject, body string) (ai.EmailBillResult, error)
	Insights(ctx context.Context, month core.Month, summary core.AnalyticsSummary) (string, error)
}

// Deps carries the collaborators the server routes to.
type Deps struct {
	Transactions TransactionStore
	Bills        *services.BillService
	BillLister   BillLister
	Generator    *services.RecurringGenerator
	Categories   CategoryStore
	UPIPayments  UPIStore
	Parser       Parser

	SummaryCacheTTL time.Duration
}

type Server struct {
	http.Server

	tx         TransactionStore
	bills      *services.BillService
	billLister BillLister
	generator  *services.RecurringGenerator
	categories CategoryStore
	upi        UPIStore
	parser     Parser

	// Analytics summaries keyed by month ("2024-05" or "all"), cleared on
	// every transaction mutation.
	summaryCache *cache.LRUCache[core.AnalyticsSummary]

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	ttl := deps.SummaryCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Server{
		tx:           deps.Transactions,
		bills:        deps.Bills,
		billLister:   deps.BillLister,
		generator:    deps.Generator,
		categories:   deps.Categories,
		upi:          deps.UPIPayments,
		parser:       deps.Parser,
		summaryCache: cache.NewLRUCache[core.AnalyticsSummary](100, ttl),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/bills", s.handleListBills)
	mux.HandleFunc("POST /api/bills", s.handleCreateBill)
	mux.HandleFunc("PUT /api/bills/{id}", s.handleUpdateBill)
	mux.HandleFunc("DELETE /api/bills/{id}", s.handleDeleteBill)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)

	mux.HandleFunc("GET /api/upi-payments", s.handleListUPIPayments)
	mux.HandleFunc("POST /api/upi-payments", s.handleCreateUPIPayment)

	mux.HandleFunc("POST /api/ocr/receipt", s.handleScanReceipt)
	mux.HandleFunc("POST /api/parse/sms", s.handleParseSMS)
	mux.HandleFunc("POST /api/parse/email", s.handleParseEmail)

	mux.HandleFunc("GET /api/analytics/summary", s.handleAnalyticsSummary)
	mux.HandleFunc("GET /api/analytics/monthly-chart", s.handleMonthlyChart)
	mux.HandleFunc("GET /api/analytics/pocket-money", s.handlePocketMoney)
	mux.HandleFunc("GET /api/analytics/ai-insights", s.handleAIInsights)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	requestLog := applog.Middleware(applog.New(applog.Config{Component: applog.ComponentHTTP}))

	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Middleware(headers.Middleware(requestLog(s.guard(mux)))),
	}

	return s
}

// guard rejects suspicious requests and rate-limits mutations.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request blocked",
				applog.FieldComponent, applog.ComponentSecurity,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ExtractClientIP(r))
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		if r.Method != http.MethodGet && !s.limiter.Allow(s.detector.ExtractClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background routines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, envelope{
		"status":  "ok",
		"message": "Budget Planner API is running",
	})
}

func (s *Server) invalidateSummaries() {
	s.summaryCache.Clear()
}
