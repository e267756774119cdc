// Package services provides the budget business logic: due-date
// classification, recurring bill generation, and monthly aggregation.
package services

import (
	"fmt"
	"time"

	"budget/internal/core"
)

// DueSoonWindowDays is the inclusive number of days before the due date in
// which an unpaid bill counts as due soon.
const DueSoonWindowDays = 3

// Urgency ranks how pressing an unpaid bill is. Higher values are more urgent.
type Urgency int

const (
	Upcoming Urgency = iota
	DueSoon
	Overdue
)

func (u Urgency) String() string {
	switch u {
	case Overdue:
		return "overdue"
	case DueSoon:
		return "due_soon"
	case Upcoming:
		return "upcoming"
	}
	return fmt.Sprintf("urgency(%d)", int(u))
}

// Classification is the urgency of a single unpaid bill relative to a
// reference instant.
type Classification struct {
	Urgency      Urgency
	DaysUntilDue int
	// DaysOverdue is how many days past due the bill is; zero unless Overdue.
	DaysOverdue int
}

// DaysUntilDue computes the calendar-day distance from now to the due date.
// Sub-day precision is discarded: a bill due later today is due in 0 days.
func DaysUntilDue(dueDate core.Date, now time.Time) int {
	today := core.DateOf(now)
	return int(dueDate.Sub(today.Time).Hours() / 24)
}

// Classify maps an unpaid bill's due date to its urgency. It is a pure
// function of its inputs; callers must not invoke it for paid bills.
func Classify(dueDate core.Date, now time.Time) Classification {
	days := DaysUntilDue(dueDate, now)
	switch {
	case days < 0:
		return Classification{Urgency: Overdue, DaysUntilDue: days, DaysOverdue: -days}
	case days <= DueSoonWindowDays:
		return Classification{Urgency: DueSoon, DaysUntilDue: days}
	default:
		return Classification{Urgency: Upcoming, DaysUntilDue: days}
	}
}
