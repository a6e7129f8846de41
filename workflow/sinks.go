package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/sirupsen/logrus"
)

// Event is a back-office notification: low stock, overdue EMI and the
// like. Delivery targets (SMS, print queue) plug in behind Notifier;
// the engine itself only emits.
type Event struct {
	Type     string `json:"type"`
	Entity   string `json:"entity"`
	EntityId int    `json:"entity_id"`
	Message  string `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier is the default sink: events land in the structured log.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	n.Logger.WithFields(logrus.Fields{
		"type":      event.Type,
		"entity":    event.Entity,
		"entity_id": event.EntityId,
	}).Info(event.Message)
	return nil
}

// NotifyLowStock emits one event per product at or below its reorder
// level. Run after receipts and sales, or on a schedule.
func NotifyLowStock(ctx context.Context, notifier Notifier) (int, error) {
	products, err := models.GetProductsBelowReorderLevel(ctx)
	if err != nil {
		return 0, err
	}
	for _, product := range products {
		event := Event{
			Type:     "low_stock",
			Entity:   "product",
			EntityId: product.ID,
			Message:  fmt.Sprintf("%s is at or below its reorder level of %d", product.Name, product.ReorderLevel),
		}
		if err := notifier.Notify(ctx, event); err != nil {
			return 0, err
		}
	}
	return len(products), nil
}

// NotifyOverdueEMIs emits one event per overdue installment.
func NotifyOverdueEMIs(ctx context.Context, notifier Notifier) (int, error) {
	entries, err := models.GetOverdueEMIEntries(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		event := Event{
			Type:     "emi_overdue",
			Entity:   "emi_schedule_entry",
			EntityId: entry.ID,
			Message: fmt.Sprintf("installment %d of order %d is overdue: %s outstanding",
				entry.InstallmentNo, entry.OrderId, entry.Outstanding().StringFixed(2)),
		}
		if err := notifier.Notify(ctx, event); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}
