package models

import (
	"context"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
)

// FinanceEntry is one money movement in the shop's cash book. Entries
// against an order or purchase order carry that reference; the posting
// workflow keeps the document's PaidAmount equal to the sum of its
// completed entries.
type FinanceEntry struct {
	ID              int                    `gorm:"primary_key" json:"id"`
	TransactionType FinanceTransactionType `gorm:"type:enum('Income','Expense','EMI','Metal_Purchase','Refund','Adjustment');not null" json:"transaction_type"`
	Amount          decimal.Decimal        `gorm:"type:decimal(20,2);not null" json:"amount"`
	PaymentMode     PaymentMode            `gorm:"type:enum('Cash','Card','UPI','Bank Transfer','Cheque','Refund','Adjustment');not null" json:"payment_mode"`
	Status          FinanceStatus          `gorm:"type:enum('Completed','Pending','Failed','In Progress');not null;default:Completed" json:"status"`
	TransactionDate time.Time              `gorm:"not null;index" json:"transaction_date"`
	OrderId         *int                   `gorm:"index;default:null" json:"order_id"`
	PurchaseOrderId *int                   `gorm:"index;default:null" json:"purchase_order_id"`
	EMIEntryId      *int                   `gorm:"index;default:null" json:"emi_entry_id"`
	Reference       string                 `gorm:"size:100;default:null" json:"reference"`
	Notes           string                 `gorm:"size:255;default:null" json:"notes"`
	CreatedBy       string                 `gorm:"size:100;default:null" json:"created_by"`
	CreatedAt       time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

// EMIScheduleEntry is one installment of an order's EMI plan. The plan
// splits the outstanding balance evenly with the division remainder
// folded into the last installment, so the installments sum exactly to
// the balance.
type EMIScheduleEntry struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrderId       int             `gorm:"index:idx_emi_order,priority:1;not null" json:"order_id"`
	InstallmentNo int             `gorm:"index:idx_emi_order,priority:2;not null" json:"installment_no"`
	DueDate       time.Time       `gorm:"not null" json:"due_date"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"paid_amount"`
	Status        EMIStatus       `gorm:"type:enum('Pending','Partially Paid','Completed');not null;default:Pending" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *EMIScheduleEntry) Outstanding() decimal.Decimal {
	return e.Amount.Sub(e.PaidAmount)
}

func GetFinanceEntry(ctx context.Context, id int) (*FinanceEntry, error) {
	return utils.FetchModel[FinanceEntry](ctx, id)
}

func GetFinanceEntries(ctx context.Context, orderId *int, purchaseOrderId *int) ([]*FinanceEntry, error) {
	db := config.GetDB()
	var results []*FinanceEntry

	dbCtx := db.WithContext(ctx)
	if orderId != nil {
		dbCtx = dbCtx.Where("order_id = ?", *orderId)
	}
	if purchaseOrderId != nil {
		dbCtx = dbCtx.Where("purchase_order_id = ?", *purchaseOrderId)
	}
	err := dbCtx.Order("transaction_date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetEMISchedule(ctx context.Context, orderId int) ([]*EMIScheduleEntry, error) {
	db := config.GetDB()
	var results []*EMIScheduleEntry
	err := db.WithContext(ctx).
		Where("order_id = ?", orderId).
		Order("installment_no").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetOverdueEMIEntries lists unpaid installments whose due date has
// passed, oldest first.
func GetOverdueEMIEntries(ctx context.Context, asOf time.Time) ([]*EMIScheduleEntry, error) {
	db := config.GetDB()
	var results []*EMIScheduleEntry
	err := db.WithContext(ctx).
		Where("status <> ? AND due_date < ?", EMIStatusCompleted, asOf).
		Order("due_date, order_id, installment_no").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
