package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"budget/internal/core"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows ListTransactions. Zero values mean no filtering.
type TransactionFilter struct {
	Kind  core.TransactionKind
	Month *core.Month
}

// Bill status filter values.
const (
	BillStatusPaid    = "paid"
	BillStatusPending = "pending"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount_cents, category, description, date, image_base64, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Kind), t.Amount.Cents, t.Category, t.Description,
		t.Date.String(), t.ImageBase64, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"type", string(t.Kind),
		"amount_cents", t.Amount.Cents,
		"category", t.Category)

	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, amount_cents, category, description, date, image_base64, created_at
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]core.Transaction, error) {
	query := `
		SELECT id, type, amount_cents, category, description, date, image_base64, created_at
		FROM transactions`
	var (
		conds []string
		args  []any
	)
	if filter.Kind != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Month != nil {
		conds = append(conds, "date LIKE ?")
		args = append(args, filter.Month.String()+"%")
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET type = ?, amount_cents = ?, category = ?,
			description = ?, date = ?, image_base64 = ?
		WHERE id = ?`,
		string(t.Kind), t.Amount.Cents, t.Category, t.Description,
		t.Date.String(), t.ImageBase64, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t       core.Transaction
		kind    string
		rawDate string
	)
	err := row.Scan(&t.ID, &kind, &t.Amount.Cents, &t.Category, &t.Description,
		&rawDate, &t.ImageBase64, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.TransactionKind(kind)
	if t.Date, err = core.ParseDate(rawDate); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has malformed date %q", t.ID, rawDate)
	}
	return t, nil
}

// Bills

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bills (id, name, amount_cents, due_date, is_paid, category,
			reminder_set, source, is_recurring, recurring_day, parent_bill_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount.Cents, b.DueDate.String(), b.IsPaid, b.Category,
		b.ReminderSet, string(b.Source), b.IsRecurring, b.RecurringDay, b.ParentBillID, b.CreatedAt)
	if err != nil {
		return core.Bill{}, fmt.Errorf("insert bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved",
		"id", b.ID,
		"name", b.Name,
		"due_date", b.DueDate.String(),
		"recurring", b.IsRecurring)

	return b, nil
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bills SET name = ?, amount_cents = ?, due_date = ?, is_paid = ?,
			category = ?, reminder_set = ?, source = ?, is_recurring = ?,
			recurring_day = ?, parent_bill_id = ?
		WHERE id = ?`,
		b.Name, b.Amount.Cents, b.DueDate.String(), b.IsPaid, b.Category,
		b.ReminderSet, string(b.Source), b.IsRecurring, b.RecurringDay, b.ParentBillID, b.ID)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return core.Bill{}, err
	}
	return r.GetBill(ctx, b.ID)
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx, billSelect+` WHERE id = ?`, id)
	return scanBill(row)
}

// ListBills returns all bills, optionally narrowed by paid status
// (BillStatusPaid or BillStatusPending).
func (r *SQLiteRepository) ListBills(ctx context.Context, status string) ([]core.Bill, error) {
	query := billSelect
	var args []any
	switch status {
	case "":
	case BillStatusPaid:
		query += " WHERE is_paid = 1"
	case BillStatusPending:
		query += " WHERE is_paid = 0"
	default:
		return nil, fmt.Errorf("unsupported bill status %q", status)
	}
	query += " ORDER BY due_date ASC"

	return r.queryBills(ctx, query, args...)
}

func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context) ([]core.Bill, error) {
	return r.queryBills(ctx, billSelect+` WHERE is_recurring = 1 AND parent_bill_id = ''`)
}

// FindGeneratedInstance returns the bill spawned from the template for the
// given month, or nil when none exists.
func (r *SQLiteRepository) FindGeneratedInstance(ctx context.Context, parentID string, month core.Month) (*core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		billSelect+` WHERE parent_bill_id = ? AND due_date LIKE ? LIMIT 1`,
		parentID, month.String()+"%")
	b, err := scanBill(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkBillReminderSet flips the reminder flag once a reminder was scheduled.
func (r *SQLiteRepository) MarkBillReminderSet(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bills SET reminder_set = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark bill reminder set: %w", err)
	}
	return requireAffected(res)
}

const billSelect = `
	SELECT id, name, amount_cents, due_date, is_paid, category, reminder_set,
		source, is_recurring, recurring_day, parent_bill_id, created_at
	FROM bills`

func (r *SQLiteRepository) queryBills(ctx context.Context, query string, args ...any) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func scanBill(row rowScanner) (core.Bill, error) {
	var (
		b       core.Bill
		source  string
		rawDate string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Amount.Cents, &rawDate, &b.IsPaid, &b.Category,
		&b.ReminderSet, &source, &b.IsRecurring, &b.RecurringDay, &b.ParentBillID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, ErrNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("scan bill: %w", err)
	}
	b.Source = core.BillSource(source)
	if b.DueDate, err = core.ParseDate(rawDate); err != nil {
		return core.Bill{}, fmt.Errorf("bill %s has malformed due date %q", b.ID, rawDate)
	}
	return b, nil
}

// Categories

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, type, icon, color) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Kind), c.Icon, c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, icon, color FROM categories ORDER BY type, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var (
			c    core.Category
			kind string
		)
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.TransactionKind(kind)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UPI payments

func (r *SQLiteRepository) CreateUPIPayment(ctx context.Context, p core.UPIPayment) (core.UPIPayment, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = "completed"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO upi_payments (id, amount_cents, recipient, upi_id, date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Amount.Cents, p.Recipient, p.UPIID, p.Date.String(), p.Status, p.CreatedAt)
	if err != nil {
		return core.UPIPayment{}, fmt.Errorf("insert upi payment: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListUPIPayments(ctx context.Context) ([]core.UPIPayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, recipient, upi_id, date, status, created_at
		FROM upi_payments ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list upi payments: %w", err)
	}
	defer rows.Close()

	var payments []core.UPIPayment
	for rows.Next() {
		var (
			p       core.UPIPayment
			rawDate string
		)
		if err := rows.Scan(&p.ID, &p.Amount.Cents, &p.Recipient, &p.UPIID,
			&rawDate, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upi payment: %w", err)
		}
		if p.Date, err = core.ParseDate(rawDate); err != nil {
			return nil, fmt.Errorf("upi payment %s has malformed date %q", p.ID, rawDate)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
