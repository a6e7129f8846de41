package models

import (
	"context"
	"fmt"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a customer sale. Monetary fields are derived by the totals
// calculator and written together in one transaction; they are never
// patched individually.
type Order struct {
	ID          int         `gorm:"primary_key" json:"id"`
	OrderNumber string      `gorm:"size:100;not null;uniqueIndex" json:"order_number"`
	CustomerId  int         `gorm:"index;not null" json:"customer_id"`
	OrderDate   time.Time   `gorm:"not null" json:"order_date"`
	Status      OrderStatus `gorm:"type:enum('Pending','Completed','Cancelled');not null;default:Pending" json:"status"`
	// TotalItems is the unit count across all detail lines.
	TotalItems int `gorm:"default:0" json:"total_items"`
	// TotalAmount is the sum of detail line totals.
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"total_amount"`
	// DiscountAmount is signed: a discount is stored negative, a
	// surcharge positive. PriceBeforeTax = max(0, TotalAmount + DiscountAmount).
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"discount_amount"`
	PriceBeforeTax decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"price_before_tax"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"tax_amount"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"grand_total"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"paid_amount"`
	PaymentStatus  PaymentStatus   `gorm:"type:enum('Pending','Partial','Paid');not null;default:Pending" json:"payment_status"`
	// NextPaymentDate is the due date of the earliest open EMI
	// installment; nil when the order has no plan or the plan is
	// settled.
	NextPaymentDate *time.Time `gorm:"default:null" json:"next_payment_date"`
	Notes           string     `gorm:"type:text;default:null" json:"notes"`
	Details        []OrderDetail   `gorm:"foreignKey:OrderId" json:"details"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderDetail struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	// TotalPrice = UnitPrice * Quantity, rounded to 2 places.
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_price"`
}

type NewOrder struct {
	CustomerId     int              `json:"customer_id" binding:"required" validate:"required"`
	OrderDate      time.Time        `json:"order_date"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	Notes          string           `json:"notes"`
	Details        []NewOrderDetail `json:"details" binding:"required" validate:"required,dive"`
	// HoldOnly keeps the units Reserved and the order Pending (an
	// advance booking). The default is a completed counter sale.
	HoldOnly bool `json:"hold_only"`
	// PaymentMode with AmountPaid posts the money taken at the counter
	// in the same transaction as the sale.
	PaymentMode *PaymentMode    `json:"payment_mode"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	// IdempotencyToken lets retries of the same submission collapse to
	// one order.
	IdempotencyToken string `json:"idempotency_token"`
}

type NewOrderDetail struct {
	ProductId int `json:"product_id" binding:"required" validate:"required"`
	Quantity  int `json:"quantity" binding:"required" validate:"required,gt=0"`
	// UnitPrice overrides the product's current price when set; zero
	// means "use the pricing engine".
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (input *NewOrder) Validate(ctx context.Context) error {
	if errs := ValidateStruct(input); len(errs) > 0 {
		return errs[0]
	}
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return err
	}
	productIds := make([]int, 0, len(input.Details))
	for _, detail := range input.Details {
		if detail.UnitPrice.IsNegative() {
			return ValidationError{Field: "UnitPrice", Message: "must not be negative"}
		}
		productIds = append(productIds, detail.ProductId)
	}
	if input.AmountPaid.IsNegative() {
		return ValidationError{Field: "AmountPaid", Message: "must not be negative"}
	}
	if input.AmountPaid.IsPositive() && input.PaymentMode == nil {
		return ValidationError{Field: "PaymentMode", Message: "is required when amount paid is set"}
	}
	return utils.ValidateResourcesId[Product](ctx, productIds)
}

func NextOrderNumber(tx *gorm.DB) (string, error) {
	var maxId int
	if err := tx.Model(&Order{}).Select("COALESCE(MAX(id), 0)").Scan(&maxId).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%06d", maxId+1), nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	return utils.FetchModel[Order](ctx, id, "Details")
}

func GetOrders(ctx context.Context, customerId *int, status *OrderStatus) ([]*Order, error) {
	db := config.GetDB()
	var results []*Order

	dbCtx := db.WithContext(ctx)
	if customerId != nil {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Preload("Details").Order("order_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Order) RemainingBalance() decimal.Decimal {
	return o.GrandTotal.Sub(o.PaidAmount)
}
