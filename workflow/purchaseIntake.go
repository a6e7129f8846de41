package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const opReceivePurchaseOrder = "ReceivePurchaseOrder"

type ReceiveItemsLine struct {
	PurchaseOrderItemId int `json:"purchase_order_item_id" binding:"required"`
	Quantity            int `json:"quantity" binding:"required"`
}

type ReceiveItemsInput struct {
	PurchaseOrderId  int                `json:"purchase_order_id" binding:"required"`
	ReceivedDate     *time.Time         `json:"received_date"`
	Lines            []ReceiveItemsLine `json:"lines" binding:"required"`
	IdempotencyToken string             `json:"idempotency_token" binding:"required"`
}

// ReceivePurchaseOrder books a goods receipt: for each line it creates
// a stock lot, mints tagged units and advances the purchase order's
// received quantities. The whole receipt is one transaction; a replay
// with the same idempotency token returns the already-received order
// without minting anything twice.
func ReceivePurchaseOrder(ctx context.Context, logger *logrus.Logger, input *ReceiveItemsInput) (*models.PurchaseOrder, error) {
	if len(input.Lines) == 0 {
		return nil, models.ValidationError{Field: "Lines", Message: "must not be empty"}
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, models.ValidationError{Field: "Quantity", Message: "must be positive"}
		}
	}
	if input.IdempotencyToken == "" {
		return nil, models.ValidationError{Field: "IdempotencyToken", Message: "is required"}
	}

	receivedDate := time.Now().UTC()
	if input.ReceivedDate != nil {
		receivedDate = *input.ReceivedDate
	}
	createdBy := utils.GetUserName(ctx)

	db := config.GetDB()
	var poId int

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, resourceId, err := BeginIdempotency(tx, opReceivePurchaseOrder, input.IdempotencyToken)
		if err != nil {
			return err
		}
		if skip {
			if resourceId != nil {
				poId = *resourceId
			} else {
				poId = input.PurchaseOrderId
			}
			return nil
		}

		var po models.PurchaseOrder
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Where("id = ?", input.PurchaseOrderId).
			First(&po).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		if po.Status != models.PurchaseOrderStatusConfirmed && po.Status != models.PurchaseOrderStatusPartiallyReceived {
			return fmt.Errorf("purchase order %s is %s, receiving needs a confirmed order", po.OrderNumber, po.Status)
		}

		itemsById := make(map[int]*models.PurchaseOrderItem, len(po.Items))
		for i := range po.Items {
			itemsById[po.Items[i].ID] = &po.Items[i]
		}

		for _, line := range input.Lines {
			poItem, ok := itemsById[line.PurchaseOrderItemId]
			if !ok || poItem.PurchaseOrderId != po.ID {
				return utils.ErrorRecordNotFound
			}
			if poItem.ReceivedQuantity+line.Quantity > poItem.Quantity {
				return &OverReceiptError{
					PurchaseOrderItemId: poItem.ID,
					Ordered:             poItem.Quantity,
					AlreadyReceived:     poItem.ReceivedQuantity,
					Attempted:           line.Quantity,
				}
			}

			if err := receiveLine(tx, logger, &po, poItem, line.Quantity, receivedDate, createdBy); err != nil {
				return err
			}
		}

		if err := advanceReceiptStatus(tx, &po); err != nil {
			return err
		}

		poId = po.ID
		return MarkIdempotencySucceeded(tx, opReceivePurchaseOrder, input.IdempotencyToken, po.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrIdempotencyInProgress) {
			markReceiveFailed(db, input.IdempotencyToken, err)
		}
		return nil, err
	}

	return models.GetPurchaseOrder(ctx, poId)
}

// receiveLine creates the lot, mints the unit tags and bumps the line's
// received quantity. Runs inside the receipt transaction.
func receiveLine(tx *gorm.DB, logger *logrus.Logger, po *models.PurchaseOrder,
	poItem *models.PurchaseOrderItem, quantity int, receivedDate time.Time, createdBy string) error {

	var product models.Product
	if err := tx.Where("id = ?", poItem.ProductId).First(&product).Error; err != nil {
		return err
	}

	lot := models.Stock{
		ProductId:       poItem.ProductId,
		PurchaseOrderId: po.ID,
		Quantity:        quantity,
		UnitCost:        poItem.UnitCost,
		ReceivedDate:    receivedDate,
	}
	if err := tx.Create(&lot).Error; err != nil {
		return err
	}

	tags, err := models.NextStockTags(tx, &product, quantity)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		item := models.StockItem{
			Tag:       tag,
			StockId:   lot.ID,
			ProductId: poItem.ProductId,
			Status:    models.StockItemStatusAvailable,
			UnitCost:  poItem.UnitCost,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if err := recordMovement(tx, &item, models.StockMovementTypePurchase,
			"", nil, po.OrderNumber, "received into stock", createdBy); err != nil {
			return err
		}
	}

	poItem.ReceivedQuantity += quantity
	receiptStatus := models.ReceiptStatusPartial
	if poItem.ReceivedQuantity == poItem.Quantity {
		receiptStatus = models.ReceiptStatusDelivered
	}
	poItem.ReceiptStatus = receiptStatus

	if err := tx.Model(&models.PurchaseOrderItem{}).
		Where("id = ?", poItem.ID).
		Updates(map[string]interface{}{
			"received_quantity": poItem.ReceivedQuantity,
			"receipt_status":    receiptStatus,
		}).Error; err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"purchase_order": po.OrderNumber,
		"product_id":     poItem.ProductId,
		"quantity":       quantity,
		"lot_id":         lot.ID,
	}).Info("stock received")

	return nil
}

// advanceReceiptStatus recomputes the order-level status from its
// lines: everything delivered -> Delivered, anything received ->
// Partially Received.
func advanceReceiptStatus(tx *gorm.DB, po *models.PurchaseOrder) error {
	allDelivered := true
	anyReceived := false
	for _, item := range po.Items {
		if item.ReceiptStatus != models.ReceiptStatusDelivered {
			allDelivered = false
		}
		if item.ReceivedQuantity > 0 {
			anyReceived = true
		}
	}

	status := po.Status
	if allDelivered {
		status = models.PurchaseOrderStatusDelivered
	} else if anyReceived {
		status = models.PurchaseOrderStatusPartiallyReceived
	}
	if status == po.Status {
		return nil
	}
	po.Status = status
	return tx.Model(&models.PurchaseOrder{}).
		Where("id = ?", po.ID).
		Update("status", status).Error
}

func markReceiveFailed(db *gorm.DB, token string, cause error) {
	_ = db.Transaction(func(tx *gorm.DB) error {
		return MarkIdempotencyFailed(tx, opReceivePurchaseOrder, token, cause)
	})
}
