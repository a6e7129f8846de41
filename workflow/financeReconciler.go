package workflow

import (
	"context"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NewPayment struct {
	Amount      decimal.Decimal    `json:"amount" binding:"required"`
	PaymentMode models.PaymentMode `json:"payment_mode" binding:"required"`
	Date        *time.Time         `json:"date"`
	Reference   string             `json:"reference"`
	Notes       string             `json:"notes"`
}

func (input *NewPayment) validate() error {
	if input.Amount.IsZero() || input.Amount.IsNegative() {
		return models.ValidationError{Field: "Amount", Message: "must be positive"}
	}
	return nil
}

func paymentDate(input *NewPayment) time.Time {
	if input.Date != nil {
		return *input.Date
	}
	return time.Now().UTC()
}

func paymentStatusFor(paid, grandTotal decimal.Decimal) models.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(grandTotal):
		return models.PaymentStatusPaid
	case paid.IsPositive():
		return models.PaymentStatusPartial
	default:
		return models.PaymentStatusPending
	}
}

// applyOrderPayment posts one finance entry against an order row the
// caller has locked and bumps its paid amount. Shared by the standalone
// payment endpoint and the place-order transaction.
func applyOrderPayment(tx *gorm.DB, order *models.Order, input *NewPayment, createdBy string) (*models.FinanceEntry, error) {
	if !input.PaymentMode.IsReversing() {
		outstanding := order.RemainingBalance()
		if input.Amount.GreaterThan(outstanding) {
			return nil, &OverpaymentError{
				DocumentType: "order",
				DocumentId:   order.ID,
				Outstanding:  outstanding,
				Attempted:    input.Amount,
			}
		}
	}

	amount := input.Amount
	transactionType := models.FinanceTransactionTypeIncome
	if input.PaymentMode.IsReversing() {
		amount = amount.Neg()
		transactionType = models.FinanceTransactionTypeRefund
	}

	entry := models.FinanceEntry{
		TransactionType: transactionType,
		Amount:          amount,
		PaymentMode:     input.PaymentMode,
		Status:          models.FinanceStatusCompleted,
		TransactionDate: paymentDate(input),
		OrderId:         &order.ID,
		Reference:       input.Reference,
		Notes:           input.Notes,
		CreatedBy:       createdBy,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	newPaid := order.PaidAmount.Add(amount)
	order.PaidAmount = newPaid
	order.PaymentStatus = paymentStatusFor(newPaid, order.GrandTotal)
	err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"paid_amount":    newPaid,
		"payment_status": order.PaymentStatus,
	}).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PostOrderPayment records a customer payment against an order. The
// order row is locked, the overpayment guard compares against the
// outstanding balance, and the finance entry plus the bumped PaidAmount
// commit together.
func PostOrderPayment(ctx context.Context, logger *logrus.Logger, orderId int, input *NewPayment) (*models.FinanceEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	createdBy := utils.GetUserName(ctx)
	db := config.GetDB()
	var entry *models.FinanceEntry

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderId).
			First(&order).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		entry, err = applyOrderPayment(tx, &order, input, createdBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"order_id": orderId,
		"amount":   input.Amount.StringFixed(2),
		"mode":     input.PaymentMode,
	}).Info("order payment posted")

	return entry, nil
}

// PostPurchasePayment records a payment to a supplier against a
// purchase order. Mirror of PostOrderPayment on the expense side.
func PostPurchasePayment(ctx context.Context, logger *logrus.Logger, purchaseOrderId int, input *NewPayment) (*models.FinanceEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	createdBy := utils.GetUserName(ctx)
	db := config.GetDB()
	var entry models.FinanceEntry

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var po models.PurchaseOrder
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", purchaseOrderId).
			First(&po).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		if !input.PaymentMode.IsReversing() {
			outstanding := po.RemainingBalance()
			if input.Amount.GreaterThan(outstanding) {
				return &OverpaymentError{
					DocumentType: "purchase order",
					DocumentId:   po.ID,
					Outstanding:  outstanding,
					Attempted:    input.Amount,
				}
			}
		}

		amount := input.Amount
		transactionType := models.FinanceTransactionTypeMetalPurchase
		if input.PaymentMode.IsReversing() {
			amount = amount.Neg()
			transactionType = models.FinanceTransactionTypeAdjustment
		}

		entry = models.FinanceEntry{
			TransactionType: transactionType,
			Amount:          amount,
			PaymentMode:     input.PaymentMode,
			Status:          models.FinanceStatusCompleted,
			TransactionDate: paymentDate(input),
			PurchaseOrderId: &po.ID,
			Reference:       input.Reference,
			Notes:           input.Notes,
			CreatedBy:       createdBy,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		newPaid := po.PaidAmount.Add(amount)
		return tx.Model(&po).Updates(map[string]interface{}{
			"paid_amount":    newPaid,
			"payment_status": paymentStatusFor(newPaid, po.GrandTotal),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"purchase_order_id": purchaseOrderId,
		"amount":            input.Amount.StringFixed(2),
		"mode":              input.PaymentMode,
	}).Info("purchase payment posted")

	return &entry, nil
}

// SplitEMI divides a balance into n installments: every installment is
// the truncated even share and the division remainder lands on the last
// one, so the schedule sums exactly to the balance. 10000 over 3 gives
// 3333.33, 3333.33, 3333.34.
func SplitEMI(balance decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	count := decimal.NewFromInt(int64(n))
	base := balance.Div(count).Truncate(2)

	amounts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		amounts[i] = base
	}
	amounts[n-1] = balance.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	return amounts
}

// NextPaymentDue returns the due date of the earliest installment that
// is not fully paid, or nil when the plan is settled.
func NextPaymentDue(entries []*models.EMIScheduleEntry) *time.Time {
	var next *time.Time
	for _, e := range entries {
		if e.Status == models.EMIStatusCompleted {
			continue
		}
		if next == nil || e.DueDate.Before(*next) {
			due := e.DueDate
			next = &due
		}
	}
	return next
}

// GenerateEMISchedule creates the installment plan for an order's
// outstanding balance. One schedule per order; regenerating replaces an
// untouched plan but refuses once any installment has been paid.
func GenerateEMISchedule(ctx context.Context, logger *logrus.Logger, orderId int, installments int, firstDueDate time.Time) ([]*models.EMIScheduleEntry, error) {
	if installments <= 0 {
		return nil, models.ValidationError{Field: "Installments", Message: "must be positive"}
	}

	db := config.GetDB()
	var entries []*models.EMIScheduleEntry

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderId).
			First(&order).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		balance := order.RemainingBalance()
		if !balance.IsPositive() {
			return models.ValidationError{Field: "OrderId", Message: "order has no outstanding balance"}
		}

		var existing []models.EMIScheduleEntry
		if err := tx.Where("order_id = ?", orderId).Find(&existing).Error; err != nil {
			return err
		}
		for _, e := range existing {
			if e.PaidAmount.IsPositive() {
				return models.ValidationError{Field: "OrderId", Message: "schedule already has payments, cannot regenerate"}
			}
		}
		if len(existing) > 0 {
			if err := tx.Where("order_id = ?", orderId).Delete(&models.EMIScheduleEntry{}).Error; err != nil {
				return err
			}
		}

		amounts := SplitEMI(balance, installments)
		for i, amount := range amounts {
			entry := &models.EMIScheduleEntry{
				OrderId:       orderId,
				InstallmentNo: i + 1,
				DueDate:       utils.AddMonths(firstDueDate, i),
				Amount:        amount,
				Status:        models.EMIStatusPending,
			}
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", orderId).
			Update("next_payment_date", entries[0].DueDate).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"order_id":     orderId,
		"installments": installments,
	}).Info("EMI schedule generated")

	return entries, nil
}

// RecordEMIPayment posts a payment against one installment. The amount
// may cover the installment partially; paying past the installment's
// own outstanding is rejected (the next installment is a separate
// posting).
func RecordEMIPayment(ctx context.Context, logger *logrus.Logger, emiEntryId int, input *NewPayment) (*models.FinanceEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	createdBy := utils.GetUserName(ctx)
	db := config.GetDB()
	var financeEntry models.FinanceEntry

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var emi models.EMIScheduleEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", emiEntryId).
			First(&emi).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		outstanding := emi.Outstanding()
		if input.Amount.GreaterThan(outstanding) {
			return &OverpaymentError{
				DocumentType: "EMI installment",
				DocumentId:   emi.ID,
				Outstanding:  outstanding,
				Attempted:    input.Amount,
			}
		}

		var order models.Order
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", emi.OrderId).
			First(&order).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		financeEntry = models.FinanceEntry{
			TransactionType: models.FinanceTransactionTypeEMI,
			Amount:          input.Amount,
			PaymentMode:     input.PaymentMode,
			Status:          models.FinanceStatusCompleted,
			TransactionDate: paymentDate(input),
			OrderId:         &emi.OrderId,
			EMIEntryId:      &emi.ID,
			Reference:       input.Reference,
			Notes:           input.Notes,
			CreatedBy:       createdBy,
		}
		if err := tx.Create(&financeEntry).Error; err != nil {
			return err
		}

		newPaid := emi.PaidAmount.Add(input.Amount)
		status := models.EMIStatusPartiallyPaid
		if newPaid.GreaterThanOrEqual(emi.Amount) {
			status = models.EMIStatusCompleted
		}
		if err := tx.Model(&emi).Updates(map[string]interface{}{
			"paid_amount": newPaid,
			"status":      status,
		}).Error; err != nil {
			return err
		}

		// Advance the order's next payment date past installments that
		// are now settled.
		var schedule []*models.EMIScheduleEntry
		if err := tx.Where("order_id = ?", emi.OrderId).
			Order("installment_no").
			Find(&schedule).Error; err != nil {
			return err
		}

		orderPaid := order.PaidAmount.Add(input.Amount)
		return tx.Model(&order).Updates(map[string]interface{}{
			"paid_amount":       orderPaid,
			"payment_status":    paymentStatusFor(orderPaid, order.GrandTotal),
			"next_payment_date": NextPaymentDue(schedule),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"emi_entry_id": emiEntryId,
		"amount":       input.Amount.StringFixed(2),
	}).Info("EMI payment recorded")

	return &financeEntry, nil
}
