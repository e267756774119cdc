package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
)

// BillStore is the persistence surface the bill services need.
type BillStore interface {
	CreateBill(ctx context.Context, b core.Bill) (core.Bill, error)
	UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error)
	DeleteBill(ctx context.Context, id string) error
	GetBill(ctx context.Context, id string) (core.Bill, error)
	// ListRecurringTemplates returns bills with the recurrence flag set and
	// no parent (templates, not generated instances).
	ListRecurringTemplates(ctx context.Context) ([]core.Bill, error)
	// FindGeneratedInstance returns the instance spawned from the template
	// for the given month, or nil if none exists yet.
	FindGeneratedInstance(ctx context.Context, parentID string, month core.Month) (*core.Bill, error)
}

// RecurringGenerator derives per-month bill instances from recurring
// templates. Generation is idempotent per (template, month) pair.
type RecurringGenerator struct {
	store BillStore
}

func NewRecurringGenerator(store BillStore) *RecurringGenerator {
	return &RecurringGenerator{store: store}
}

// InstanceForMonth derives the bill instance a template produces for the
// target month, without touching storage. The template's recurring day is
// clamped to the month's last valid day (day 31 in April becomes the 30th).
// Returns core.ErrNotRecurring if the template's recurrence flag is unset.
func InstanceForMonth(template core.Bill, month core.Month) (core.Bill, error) {
	if !template.IsRecurring {
		return core.Bill{}, core.ErrNotRecurring
	}
	day := template.RecurringDay
	if last := month.LastDay(); day > last {
		day = last
	}
	return core.Bill{
		Name:         template.Name,
		Amount:       template.Amount,
		DueDate:      core.NewDate(month.Year, month.Month, day),
		IsPaid:       false,
		Category:     template.Category,
		ReminderSet:  false,
		Source:       template.Source,
		IsRecurring:  false,
		ParentBillID: template.ID,
	}, nil
}

// GenerateForMonth persists the template's instance for the target month
// unless one already exists. It returns the instance and whether this call
// created it.
func (g *RecurringGenerator) GenerateForMonth(ctx context.Context, template core.Bill, month core.Month) (core.Bill, bool, error) {
	instance, err := InstanceForMonth(template, month)
	if err != nil {
		return core.Bill{}, false, err
	}

	existing, err := g.store.FindGeneratedInstance(ctx, template.ID, month)
	if err != nil {
		return core.Bill{}, false, fmt.Errorf("find generated instance: %w", err)
	}
	if existing != nil {
		return *existing, false, nil
	}

	created, err := g.store.CreateBill(ctx, instance)
	if err != nil {
		return core.Bill{}, false, fmt.Errorf("create bill instance: %w", err)
	}

	slog.InfoContext(ctx, "Generated bill from recurring template",
		"template_id", template.ID,
		"bill_id", created.ID,
		"name", created.Name,
		"due_date", created.DueDate.String(),
		"amount_cents", created.Amount.Cents)

	return created, true, nil
}

// ProcessDueBills generates the current month's instance for every recurring
// template, skipping templates that already have one. Individual failures are
// logged and do not stop the sweep.
func (g *RecurringGenerator) ProcessDueBills(ctx context.Context, now time.Time) (int, error) {
	templates, err := g.store.ListRecurringTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	month := core.MonthOf(now)
	slog.InfoContext(ctx, "Processing recurring bills",
		"total_templates", len(templates),
		"month", month.String())

	generated := 0
	for _, template := range templates {
		_, created, err := g.GenerateForMonth(ctx, template, month)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to generate bill from template",
				"template_id", template.ID,
				"name", template.Name,
				"error", err)
			continue
		}
		if created {
			generated++
		}
	}

	slog.InfoContext(ctx, "Recurring bill processing complete",
		"generated", generated,
		"total_templates", len(templates))

	return generated, nil
}
