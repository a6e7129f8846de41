package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const opPlaceOrder = "PlaceOrder"

// PlaceOrder runs the whole sale as one transaction: price every line
// off the current rate board, create the order and its details, reserve
// stock FIFO under per-product locks and derive the money block. If two
// orders race for the last units, the loser is retried once before the
// conflict reaches the caller.
func PlaceOrder(ctx context.Context, logger *logrus.Logger, input *models.NewOrder) (*models.Order, error) {
	if err := input.Validate(ctx); err != nil {
		return nil, err
	}

	order, err := placeOrderOnce(ctx, logger, input)
	if errors.Is(err, ErrAllocationConflict) {
		logger.WithFields(logrus.Fields{
			"customer_id": input.CustomerId,
		}).Warn("allocation conflict, retrying order once")
		order, err = placeOrderOnce(ctx, logger, input)
	}
	return order, err
}

func placeOrderOnce(ctx context.Context, logger *logrus.Logger, input *models.NewOrder) (*models.Order, error) {
	createdBy := utils.GetUserName(ctx)

	// Distinct product ids in a fixed order so concurrent orders take
	// their locks in the same sequence.
	productIds := utils.UniqueSlice(collectProductIds(input.Details))
	sort.Ints(productIds)

	// Best-effort cross-instance fence. Correctness comes from the
	// advisory locks and row locks inside the transaction; this only
	// cuts down lock contention between app instances.
	if locker := config.GetRedisLock(); locker != nil {
		for _, productId := range productIds {
			lock, err := locker.Obtain(ctx, fmt.Sprintf("placeOrder:product:%d", productId), 30*time.Second, nil)
			if err == nil {
				defer lock.Release(context.Background())
			}
		}
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	db := config.GetDB()
	var orderId int

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IdempotencyToken != "" {
			skip, resourceId, err := BeginIdempotency(tx, opPlaceOrder, input.IdempotencyToken)
			if err != nil {
				return err
			}
			if skip && resourceId != nil {
				orderId = *resourceId
				return nil
			}
		}

		for _, productId := range productIds {
			if err := AcquireProductAllocationLock(tx, productId); err != nil {
				return err
			}
			defer ReleaseProductAllocationLock(tx, productId)
		}

		details := make([]models.OrderDetail, 0, len(input.Details))
		for _, line := range input.Details {
			unitPrice := line.UnitPrice
			if unitPrice.IsZero() {
				breakdown, err := priceLine(ctx, tx, line.ProductId)
				if err != nil {
					return err
				}
				unitPrice = breakdown.Total
			}
			details = append(details, models.OrderDetail{
				ProductId:  line.ProductId,
				Quantity:   line.Quantity,
				UnitPrice:  unitPrice,
				TotalPrice: LineTotal(unitPrice, line.Quantity),
			})
		}

		totals := ComputeOrderTotals(details, input.DiscountAmount)

		number, err := models.NextOrderNumber(tx)
		if err != nil {
			return err
		}

		order := models.Order{
			OrderNumber:    number,
			CustomerId:     input.CustomerId,
			OrderDate:      orderDate,
			Status:         models.OrderStatusPending,
			TotalItems:     totals.TotalItems,
			TotalAmount:    totals.TotalAmount,
			DiscountAmount: totals.DiscountAmount,
			PriceBeforeTax: totals.PriceBeforeTax,
			TaxAmount:      totals.TaxAmount,
			GrandTotal:     totals.GrandTotal,
			PaymentStatus:  models.PaymentStatusPending,
			Notes:          input.Notes,
			Details:        details,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Reserve after the order exists so each unit can point at the
		// order and the detail line it was picked for. Within a line
		// FIFO picks the oldest lot's units first.
		for _, detail := range order.Details {
			if _, err := AllocateStockItems(tx, logger, detail.ProductId, order.ID, detail.ID, detail.Quantity, createdBy); err != nil {
				return err
			}
		}

		// A counter sale confirms and takes money in the same
		// transaction; a hold stops at Reserved/Pending.
		if !input.HoldOnly {
			if err := ConfirmStockItemsSold(tx, logger, order.ID, createdBy); err != nil {
				return err
			}
			if input.PaymentMode != nil && input.AmountPaid.IsPositive() {
				payment := &NewPayment{
					Amount:      input.AmountPaid,
					PaymentMode: *input.PaymentMode,
					Date:        &orderDate,
				}
				if _, err := applyOrderPayment(tx, &order, payment, createdBy); err != nil {
					return err
				}
			}
			order.Status = models.OrderStatusCompleted
			if err := tx.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Update("status", models.OrderStatusCompleted).Error; err != nil {
				return err
			}
		}

		orderId = order.ID
		if input.IdempotencyToken != "" {
			return MarkIdempotencySucceeded(tx, opPlaceOrder, input.IdempotencyToken, order.ID)
		}
		return nil
	})
	if err != nil {
		if input.IdempotencyToken != "" && !errors.Is(err, ErrIdempotencyInProgress) && !errors.Is(err, ErrAllocationConflict) {
			_ = db.Transaction(func(tx *gorm.DB) error {
				return MarkIdempotencyFailed(tx, opPlaceOrder, input.IdempotencyToken, err)
			})
		}
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"order_id":    orderId,
		"customer_id": input.CustomerId,
	}).Info("order placed")

	return models.GetOrder(ctx, orderId)
}

func collectProductIds(details []models.NewOrderDetail) []int {
	ids := make([]int, 0, len(details))
	for _, detail := range details {
		ids = append(ids, detail.ProductId)
	}
	return ids
}

// priceLine prices one product inside the order transaction off the
// current rate board.
func priceLine(ctx context.Context, tx *gorm.DB, productId int) (*PriceBreakdown, error) {
	var product models.Product
	if err := tx.Where("id = ?", productId).First(&product).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	rate, err := models.GetCurrentRate(ctx, product.MetalType, product.Purity)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, &RateNotFoundError{MetalType: product.MetalType, Purity: product.Purity}
		}
		return nil, err
	}

	breakdown := breakdownForRate(&product, rate, time.Now().UTC())
	return &breakdown, nil
}

// CompleteOrder finalizes a fully paid pending order: reserved units
// become Sold and the order closes.
func CompleteOrder(ctx context.Context, logger *logrus.Logger, orderId int) (*models.Order, error) {
	createdBy := utils.GetUserName(ctx)
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderId).
			First(&order).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("order %s is %s, only Pending orders can be completed", order.OrderNumber, order.Status)
		}
		if order.PaymentStatus != models.PaymentStatusPaid {
			return fmt.Errorf("order %s is not fully paid", order.OrderNumber)
		}

		if err := ConfirmStockItemsSold(tx, logger, order.ID, createdBy); err != nil {
			return err
		}
		return tx.Model(&order).Update("status", models.OrderStatusCompleted).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{"order_id": orderId}).Info("order completed")
	return models.GetOrder(ctx, orderId)
}

// CancelOrder voids an order: every unit it holds, Reserved or Sold,
// returns to the available pool, money already taken is reversed with a
// refund entry and the order closes as Cancelled. Already-cancelled
// orders are rejected.
func CancelOrder(ctx context.Context, logger *logrus.Logger, orderId int, reason string) (*models.Order, error) {
	createdBy := utils.GetUserName(ctx)
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderId).
			First(&order).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		if order.Status == models.OrderStatusCancelled {
			return models.ErrOrderNotCancellable
		}

		released, err := ReleaseOrderUnits(tx, logger, order.ID, reason, createdBy)
		if err != nil {
			return err
		}

		if order.PaidAmount.IsPositive() {
			refund := &NewPayment{
				Amount:      order.PaidAmount,
				PaymentMode: models.PaymentModeRefund,
				Reference:   order.OrderNumber,
				Notes:       "order cancelled",
			}
			if _, err := applyOrderPayment(tx, &order, refund, createdBy); err != nil {
				return err
			}
		}

		logger.WithFields(logrus.Fields{
			"order_id": orderId,
			"released": released,
		}).Info("order units released")

		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", models.OrderStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	return models.GetOrder(ctx, orderId)
}
