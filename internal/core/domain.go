package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	SourceManual BillSource = "manual"
	SourceSMS    BillSource = "sms"
	SourceEmail  BillSource = "email"
)

// DefaultBillCategory is applied when a bill is created without a category.
const DefaultBillCategory = "Credit Card"

type (
	TransactionKind string
	BillSource      string

	// Transaction records money that already moved, in or out.
	Transaction struct {
		ID          string          `json:"id,omitempty"`
		Kind        TransactionKind `json:"type"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		Date        Date            `json:"date"`
		ImageBase64 string          `json:"imageBase64,omitempty"`
		CreatedAt   time.Time       `json:"createdAt,omitempty"`
	}

	// Bill is a payable obligation with a due date. A bill with IsRecurring set
	// is a template: generated monthly instances point back to it via
	// ParentBillID and are themselves non-recurring.
	Bill struct {
		ID           string     `json:"id,omitempty"`
		Name         string     `json:"name"`
		Amount       Money      `json:"amount"`
		DueDate      Date       `json:"dueDate"`
		IsPaid       bool       `json:"isPaid"`
		Category     string     `json:"category"`
		ReminderSet  bool       `json:"reminderSet"`
		Source       BillSource `json:"source"`
		IsRecurring  bool       `json:"isRecurring"`
		RecurringDay int        `json:"recurringDay,omitempty"`
		ParentBillID string     `json:"parentBillId,omitempty"`
		CreatedAt    time.Time  `json:"createdAt,omitempty"`
	}

	// Category is a presentation lookup: icon and color by name.
	Category struct {
		ID    string          `json:"id,omitempty"`
		Name  string          `json:"name"`
		Kind  TransactionKind `json:"type"`
		Icon  string          `json:"icon"`
		Color string          `json:"color"`
	}

	// UPIPayment mirrors a payment parsed from a UPI transaction SMS.
	UPIPayment struct {
		ID        string    `json:"id,omitempty"`
		Amount    Money     `json:"amount"`
		Recipient string    `json:"recipient"`
		UPIID     string    `json:"upiId"`
		Date      Date      `json:"date"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"createdAt,omitempty"`
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidKind         = errors.New("invalid transaction type")
	ErrInvalidRecurringDay = errors.New("recurring day must be between 1 and 31")
	ErrNotRecurring        = errors.New("bill is not a recurring template")
)

func (t Transaction) Validate() error {
	switch t.Kind {
	case Income, Expense:
	default:
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyName
	}
	return nil
}

// NewBill builds a manually entered bill and enforces the recurrence invariant
// at creation time. Category falls back to DefaultBillCategory when empty.
func NewBill(name string, amount Money, dueDate Date, category string, isRecurring bool, recurringDay int) (Bill, error) {
	if strings.TrimSpace(name) == "" {
		return Bill{}, ErrEmptyName
	}
	if err := amount.Validate(); err != nil {
		return Bill{}, err
	}
	if dueDate.IsZero() {
		return Bill{}, ErrInvalidDate
	}
	if isRecurring && (recurringDay < 1 || recurringDay > 31) {
		return Bill{}, ErrInvalidRecurringDay
	}
	if !isRecurring {
		recurringDay = 0
	}
	if strings.TrimSpace(category) == "" {
		category = DefaultBillCategory
	}
	return Bill{
		Name:         strings.TrimSpace(name),
		Amount:       amount,
		DueDate:      dueDate,
		IsPaid:       false,
		Category:     category,
		ReminderSet:  false,
		Source:       SourceManual,
		IsRecurring:  isRecurring,
		RecurringDay: recurringDay,
	}, nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.DueDate.IsZero() {
		return ErrInvalidDate
	}
	if b.IsRecurring {
		if b.RecurringDay < 1 || b.RecurringDay > 31 {
			return ErrInvalidRecurringDay
		}
	} else if b.RecurringDay != 0 {
		return ErrInvalidRecurringDay
	}
	return nil
}

// TogglePaid returns a copy of the bill with the paid flag flipped.
// No other field changes.
func (b Bill) TogglePaid() Bill {
	b.IsPaid = !b.IsPaid
	return b
}
