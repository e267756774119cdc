package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewBill(t *testing.T) {
	due := NewDate(2024, time.March, 15)

	tests := []struct {
		name         string
		billName     string
		amount       Money
		dueDate      Date
		isRecurring  bool
		recurringDay int
		wantErr      error
	}{
		{
			name:     "valid one-time bill",
			billName: "Electricity",
			amount:   Money{Cents: 120000},
			dueDate:  due,
		},
		{
			name:         "valid recurring template",
			billName:     "Rent",
			amount:       Money{Cents: 1500000},
			dueDate:      due,
			isRecurring:  true,
			recurringDay: 5,
		},
		{
			name:     "empty name",
			billName: "   ",
			amount:   Money{Cents: 100},
			dueDate:  due,
			wantErr:  ErrEmptyName,
		},
		{
			name:     "zero amount",
			billName: "Water",
			amount:   Money{Cents: 0},
			dueDate:  due,
			wantErr:  ErrInvalidAmount,
		},
		{
			name:     "zero due date",
			billName: "Water",
			amount:   Money{Cents: 100},
			dueDate:  Date{},
			wantErr:  ErrInvalidDate,
		},
		{
			name:         "recurring day out of range high",
			billName:     "Rent",
			amount:       Money{Cents: 100},
			dueDate:      due,
			isRecurring:  true,
			recurringDay: 32,
			wantErr:      ErrInvalidRecurringDay,
		},
		{
			name:         "recurring day out of range low",
			billName:     "Rent",
			amount:       Money{Cents: 100},
			dueDate:      due,
			isRecurring:  true,
			recurringDay: 0,
			wantErr:      ErrInvalidRecurringDay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill, err := NewBill(tt.billName, tt.amount, tt.dueDate, "", tt.isRecurring, tt.recurringDay)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewBill() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if bill.IsPaid {
				t.Error("new bill must not be paid")
			}
			if bill.ReminderSet {
				t.Error("new bill must not have a reminder set")
			}
			if bill.ParentBillID != "" {
				t.Errorf("new bill parent = %q, want empty", bill.ParentBillID)
			}
			if bill.Source != SourceManual {
				t.Errorf("new bill source = %q, want %q", bill.Source, SourceManual)
			}
			if bill.Category != DefaultBillCategory {
				t.Errorf("default category = %q, want %q", bill.Category, DefaultBillCategory)
			}
		})
	}
}

func TestBillTogglePaidRoundTrip(t *testing.T) {
	original := Bill{
		ID:           "b1",
		Name:         "Internet",
		Amount:       Money{Cents: 4999},
		DueDate:      NewDate(2024, time.June, 10),
		Category:     "Bills",
		Source:       SourceManual,
		IsRecurring:  true,
		RecurringDay: 10,
	}

	once := original.TogglePaid()
	if !once.IsPaid {
		t.Fatal("first toggle should mark the bill paid")
	}
	if once.Name != original.Name || once.Amount != original.Amount || once.DueDate != original.DueDate {
		t.Fatal("toggle must not change other fields")
	}

	twice := once.TogglePaid()
	if twice != original {
		t.Fatalf("double toggle = %+v, want original %+v", twice, original)
	}
}

func TestBillValidateRecurrenceInvariant(t *testing.T) {
	base := Bill{
		Name:    "Gym",
		Amount:  Money{Cents: 2500},
		DueDate: NewDate(2024, time.May, 1),
	}

	nonRecurringWithDay := base
	nonRecurringWithDay.RecurringDay = 12
	if err := nonRecurringWithDay.Validate(); !errors.Is(err, ErrInvalidRecurringDay) {
		t.Errorf("non-recurring bill with recurring day: error = %v, want %v", err, ErrInvalidRecurringDay)
	}

	recurringWithoutDay := base
	recurringWithoutDay.IsRecurring = true
	if err := recurringWithoutDay.Validate(); !errors.Is(err, ErrInvalidRecurringDay) {
		t.Errorf("recurring template without day: error = %v, want %v", err, ErrInvalidRecurringDay)
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		tx      Transaction
		wantErr error
	}{
		{
			name: "valid expense",
			tx: Transaction{
				Kind:     Expense,
				Amount:   Money{Cents: 1200},
				Category: "Food",
				Date:     NewDate(2024, time.April, 2),
			},
		},
		{
			name: "unknown kind",
			tx: Transaction{
				Kind:     "transfer",
				Amount:   Money{Cents: 1200},
				Category: "Food",
				Date:     NewDate(2024, time.April, 2),
			},
			wantErr: ErrInvalidKind,
		},
		{
			name: "zero amount",
			tx: Transaction{
				Kind:     Income,
				Category: "Salary",
				Date:     NewDate(2024, time.April, 2),
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "missing category",
			tx: Transaction{
				Kind:   Income,
				Amount: Money{Cents: 100},
				Date:   NewDate(2024, time.April, 2),
			},
			wantErr: ErrEmptyName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tx.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
