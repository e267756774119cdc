package services

import (
	"sort"
	"time"

	"budget/internal/core"
)

// MonthlySummary folds one calendar month of transactions and bills into the
// income/expenditure/savings view.
//
// Every bill due in the month is counted as expenditure regardless of its
// paid flag, and independently of any transaction recorded for paying it.
// That double-count is the observed product behavior and is preserved here.
func MonthlySummary(month core.Month, transactions []core.Transaction, bills []core.Bill) core.MonthlySummary {
	summary := core.MonthlySummary{Month: month}

	for _, tx := range transactions {
		if !month.Contains(tx.Date) {
			continue
		}
		switch tx.Kind {
		case core.Income:
			summary.Income.Cents += tx.Amount.Cents
		case core.Expense:
			label := tx.Description
			if label == "" {
				label = tx.Category
			}
			summary.Items = append(summary.Items, core.ExpenditureItem{
				Label:  label,
				Amount: tx.Amount,
				Status: core.StatusPaid,
				Source: core.ItemFromTransaction,
			})
			summary.Expenditure.Cents += tx.Amount.Cents
		}
	}

	for _, bill := range bills {
		if !month.Contains(bill.DueDate) {
			continue
		}
		status := core.StatusPending
		if bill.IsPaid {
			status = core.StatusPaid
		}
		summary.Items = append(summary.Items, core.ExpenditureItem{
			Label:  bill.Name,
			Amount: bill.Amount,
			Status: status,
			Source: core.ItemFromBill,
		})
		summary.Expenditure.Cents += bill.Amount.Cents
	}

	summary.Savings = core.SignedMoney(summary.Income.Cents - summary.Expenditure.Cents)
	return summary
}

// AnalyticsSummary totals transactions, optionally scoped to one month, with
// a per-category breakdown of expenses.
func AnalyticsSummary(month *core.Month, transactions []core.Transaction) core.AnalyticsSummary {
	summary := core.AnalyticsSummary{ByCategory: core.CategoryBreakdown{}}

	for _, tx := range transactions {
		if month != nil && !month.Contains(tx.Date) {
			continue
		}
		switch tx.Kind {
		case core.Income:
			summary.TotalIncome.Cents += tx.Amount.Cents
		case core.Expense:
			summary.TotalExpense.Cents += tx.Amount.Cents
			entry := summary.ByCategory[tx.Category]
			entry.Cents += tx.Amount.Cents
			summary.ByCategory[tx.Category] = entry
		}
	}

	summary.Balance = core.SignedMoney(summary.TotalIncome.Cents - summary.TotalExpense.Cents)
	return summary
}

// MonthlyChart aggregates transactions into per-month income/expense points,
// returning the most recent `months` entries in ascending order.
func MonthlyChart(transactions []core.Transaction, months int) []core.ChartPoint {
	totals := make(map[string]*core.ChartPoint)
	for _, tx := range transactions {
		key := core.MonthOf(tx.Date.Time).String()
		point, ok := totals[key]
		if !ok {
			point = &core.ChartPoint{Month: key}
			totals[key] = point
		}
		switch tx.Kind {
		case core.Income:
			point.Income.Cents += tx.Amount.Cents
		case core.Expense:
			point.Expense.Cents += tx.Amount.Cents
		}
	}

	keys := make([]string, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > months {
		keys = keys[len(keys)-months:]
	}

	chart := make([]core.ChartPoint, 0, len(keys))
	for _, key := range keys {
		chart = append(chart, *totals[key])
	}
	return chart
}

// PocketMoneyFor reports what remains spendable in the current month after
// income, expenses, and all bills due this month, spread evenly over the
// remaining days (today included).
func PocketMoneyFor(now time.Time, transactions []core.Transaction, bills []core.Bill) core.PocketMoney {
	month := core.MonthOf(now)
	summary := MonthlySummary(month, transactions, bills)

	remaining := month.LastDay() - now.UTC().Day() + 1
	if remaining < 1 {
		remaining = 1
	}

	pocket := summary.Savings
	return core.PocketMoney{
		PocketMoney:    pocket,
		DailySpendable: core.SignedMoney(int64(pocket) / int64(remaining)),
		DaysRemaining:  remaining,
	}
}
