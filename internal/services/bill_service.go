package services

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/core"
	"budget/internal/log"
)

// Bill event kinds published on mutations.
const (
	BillCreated = "created"
	BillUpdated = "updated"
	BillDeleted = "deleted"
)

// BillEventPublisher pushes bill change events to the message broker so the
// reminder worker can react to them.
type BillEventPublisher interface {
	PublishBillEvent(ctx context.Context, kind string, bill core.Bill) error
}

// BillService orchestrates bill mutations across storage and the broker.
// Publishing is best effort: a broker failure never fails the mutation.
type BillService struct {
	store     BillStore
	publisher BillEventPublisher
}

func NewBillService(store BillStore, publisher BillEventPublisher) *BillService {
	return &BillService{store: store, publisher: publisher}
}

func (s *BillService) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}

	created, err := s.store.CreateBill(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	s.publish(ctx, BillCreated, created)
	return created, nil
}

func (s *BillService) UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}

	updated, err := s.store.UpdateBill(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}

	s.publish(ctx, BillUpdated, updated)
	return updated, nil
}

func (s *BillService) DeleteBill(ctx context.Context, id string) error {
	bill, err := s.store.GetBill(ctx, id)
	if err != nil {
		return fmt.Errorf("get bill: %w", err)
	}

	if err := s.store.DeleteBill(ctx, id); err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}

	s.publish(ctx, BillDeleted, bill)
	return nil
}

func (s *BillService) publish(ctx context.Context, kind string, bill core.Bill) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBillEvent(ctx, kind, bill); err != nil {
		fields := log.NewFields().
			WithComponent(log.ComponentBill).
			WithBill(bill.ID, bill.Name, bill.Amount.Cents, bill.DueDate.String()).
			WithError(err)
		fields["kind"] = kind
		slog.ErrorContext(ctx, "Failed to publish bill event", fields.ToSlice()...)
	}
}
