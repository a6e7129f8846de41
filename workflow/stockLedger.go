package workflow

import (
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func recordMovement(tx *gorm.DB, item *models.StockItem, movementType models.StockMovementType,
	fromStatus models.StockItemStatus, orderId *int, reference, notes, createdBy string) error {
	movement := models.StockMovement{
		StockItemId: item.ID,
		ProductId:   item.ProductId,
		Type:        movementType,
		FromStatus:  fromStatus,
		ToStatus:    item.Status,
		OrderId:     orderId,
		Reference:   reference,
		Notes:       notes,
		CreatedBy:   createdBy,
	}
	return tx.Create(&movement).Error
}

// AllocateStockItems reserves `quantity` available units of a product
// for one order detail line, oldest lot first: candidates are ordered
// by the lot's received date, ties broken by unit id, so a backdated
// receipt still sells before a newer one. Rows are locked with FOR
// UPDATE so two orders can never reserve the same unit; the per-item
// guarded update is a second line of defense that turns any
// interleaving into ErrAllocationConflict instead of a double-sell.
//
// Callers must hold the product allocation lock and run inside a
// transaction.
func AllocateStockItems(tx *gorm.DB, logger *logrus.Logger, productId int, orderId int, orderDetailId int, quantity int, createdBy string) ([]models.StockItem, error) {
	var candidates []models.StockItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("stock_items.*").
		Joins("JOIN stocks ON stocks.id = stock_items.stock_id").
		Where("stock_items.product_id = ? AND stock_items.status = ?", productId, models.StockItemStatusAvailable).
		Order("stocks.received_date, stock_items.id").
		Limit(quantity).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	if len(candidates) < quantity {
		var available int64
		if err := tx.Model(&models.StockItem{}).
			Where("product_id = ? AND status = ?", productId, models.StockItemStatusAvailable).
			Count(&available).Error; err != nil {
			return nil, err
		}
		return nil, &InsufficientStockError{
			ProductId: productId,
			Requested: quantity,
			Available: int(available),
		}
	}

	reserved := make([]models.StockItem, 0, quantity)
	for _, item := range candidates {
		result := tx.Model(&models.StockItem{}).
			Where("id = ? AND status = ?", item.ID, models.StockItemStatusAvailable).
			Updates(map[string]interface{}{
				"status":          models.StockItemStatusReserved,
				"order_id":        orderId,
				"order_detail_id": orderDetailId,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			logger.WithFields(logrus.Fields{
				"stock_item_id": item.ID,
				"product_id":    productId,
				"order_id":      orderId,
			}).Warn("stock item slipped away during allocation")
			return nil, ErrAllocationConflict
		}

		item.Status = models.StockItemStatusReserved
		item.OrderId = &orderId
		item.OrderDetailId = &orderDetailId
		if err := recordMovement(tx, &item, models.StockMovementTypeSale,
			models.StockItemStatusAvailable, &orderId, "", "reserved for order", createdBy); err != nil {
			return nil, err
		}
		reserved = append(reserved, item)
	}
	return reserved, nil
}

// ConfirmStockItemsSold finalizes an order's reservations. Every unit
// the order holds moves Reserved -> Sold; the order reference stays on
// the unit.
func ConfirmStockItemsSold(tx *gorm.DB, logger *logrus.Logger, orderId int, createdBy string) error {
	var items []models.StockItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND status = ?", orderId, models.StockItemStatusReserved).
		Find(&items).Error
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := tx.Model(&models.StockItem{}).
			Where("id = ?", item.ID).
			Update("status", models.StockItemStatusSold).Error; err != nil {
			return err
		}
		item.Status = models.StockItemStatusSold
		if err := recordMovement(tx, &item, models.StockMovementTypeSale,
			models.StockItemStatusReserved, &orderId, "", "sold", createdBy); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseOrderUnits returns every unit an order holds, Reserved or
// Sold, to the available pool and clears the order reference. Used by
// order cancellation and by the stale-reservation sweep.
func ReleaseOrderUnits(tx *gorm.DB, logger *logrus.Logger, orderId int, notes, createdBy string) (int, error) {
	var items []models.StockItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND status IN ?", orderId,
			[]models.StockItemStatus{models.StockItemStatusReserved, models.StockItemStatusSold}).
		Find(&items).Error
	if err != nil {
		return 0, err
	}

	for _, item := range items {
		fromStatus := item.Status
		if err := tx.Model(&models.StockItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"status":          models.StockItemStatusAvailable,
				"order_id":        nil,
				"order_detail_id": nil,
			}).Error; err != nil {
			return 0, err
		}
		item.Status = models.StockItemStatusAvailable
		item.OrderId = nil
		item.OrderDetailId = nil
		if err := recordMovement(tx, &item, models.StockMovementTypeReturn,
			fromStatus, &orderId, "", notes, createdBy); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

// ReturnSoldItem processes a customer return of one sold unit. The unit
// becomes Returned (a terminal status), the order reference is cleared
// and the movement keeps the trail back to the order.
func ReturnSoldItem(tx *gorm.DB, logger *logrus.Logger, stockItemId int, notes, createdBy string) (*models.StockItem, error) {
	var item models.StockItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ?", stockItemId, models.StockItemStatusSold).
		First(&item).Error
	if err != nil {
		return nil, err
	}

	orderId := item.OrderId
	if err := tx.Model(&models.StockItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"status":          models.StockItemStatusReturned,
			"order_id":        nil,
			"order_detail_id": nil,
		}).Error; err != nil {
		return nil, err
	}
	item.Status = models.StockItemStatusReturned
	item.OrderId = nil
	item.OrderDetailId = nil
	if err := recordMovement(tx, &item, models.StockMovementTypeReturn,
		models.StockItemStatusSold, orderId, "", notes, createdBy); err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkStockItemDamaged writes off one available unit.
func MarkStockItemDamaged(tx *gorm.DB, logger *logrus.Logger, stockItemId int, notes, createdBy string) (*models.StockItem, error) {
	var item models.StockItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ?", stockItemId, models.StockItemStatusAvailable).
		First(&item).Error
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&models.StockItem{}).
		Where("id = ?", item.ID).
		Update("status", models.StockItemStatusDamaged).Error; err != nil {
		return nil, err
	}
	item.Status = models.StockItemStatusDamaged
	if err := recordMovement(tx, &item, models.StockMovementTypeDamage,
		models.StockItemStatusAvailable, nil, "", notes, createdBy); err != nil {
		return nil, err
	}
	return &item, nil
}
