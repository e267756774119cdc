package core

import (
	"math"
	"strconv"
)

const (
	StatusPaid    ItemStatus = "paid"
	StatusPending ItemStatus = "pending"

	ItemFromTransaction ItemSource = "transaction"
	ItemFromBill        ItemSource = "bill"
)

type (
	ItemStatus string
	ItemSource string

	// SignedMoney is an amount in cents that may be negative, used for
	// derived values like savings and balance. Encoded as a plain decimal.
	SignedMoney int64

	// ExpenditureItem is one row of a monthly summary's itemized expenditure.
	ExpenditureItem struct {
		Label  string     `json:"name"`
		Amount Money      `json:"amount"`
		Status ItemStatus `json:"status"`
		Source ItemSource `json:"type"`
	}

	// MonthlySummary is the derived income/expenditure/savings view of one
	// calendar month. It is recomputed on demand and never persisted.
	MonthlySummary struct {
		Month       Month             `json:"month"`
		Income      Money             `json:"income"`
		Expenditure Money             `json:"expenditure"`
		Savings     SignedMoney       `json:"savings"`
		Items       []ExpenditureItem `json:"items"`
	}

	// CategoryBreakdown maps expense category names to summed amounts.
	CategoryBreakdown map[string]Money

	// AnalyticsSummary is the transaction-only totals view used by the
	// analytics screen.
	AnalyticsSummary struct {
		TotalIncome  Money             `json:"totalIncome"`
		TotalExpense Money             `json:"totalExpense"`
		Balance      SignedMoney       `json:"balance"`
		ByCategory   CategoryBreakdown `json:"categoryBreakdown"`
	}

	// ChartPoint is one month of the income-vs-expense history chart.
	ChartPoint struct {
		Month   string `json:"month"`
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}

	// PocketMoney reports what is left to spend this month and the even
	// daily allowance over the remaining days.
	PocketMoney struct {
		PocketMoney    SignedMoney `json:"pocketMoney"`
		DailySpendable SignedMoney `json:"dailySpendable"`
		DaysRemaining  int         `json:"daysRemaining"`
	}
)

// Float returns the decimal value of a signed amount.
func (s SignedMoney) Float() float64 {
	return float64(s) / 100.0
}

func (s SignedMoney) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(s.Float(), 'f', -1, 64)), nil
}

func (s *SignedMoney) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return ErrInvalidAmount
	}
	*s = SignedMoney(math.Round(v * 100))
	return nil
}
