package workflow

import (
	"context"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReleaseStaleReservations cancels pending orders older than the cutoff
// and returns their reserved units to the pool. There is no automatic
// reservation timeout; an operator runs this deliberately after walking
// the pending list.
func ReleaseStaleReservations(ctx context.Context, logger *logrus.Logger, olderThan time.Duration) (int, error) {
	createdBy := utils.GetUserName(ctx)
	cutoff := time.Now().UTC().Add(-olderThan)

	db := config.GetDB()
	var stale []models.Order
	err := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.OrderStatusPending, cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, order := range stale {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			released, err := ReleaseOrderUnits(tx, logger, order.ID, "stale reservation released", createdBy)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"order_id": order.ID,
				"released": released,
				"age":      time.Since(order.CreatedAt).String(),
			}).Info("stale order cancelled")
			return tx.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Update("status", models.OrderStatusCancelled).Error
		})
		if err != nil {
			config.LogError(logger, "workflow", "ReleaseStaleReservations", "cancelling stale order", order.ID, err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
