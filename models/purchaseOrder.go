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

type PurchaseOrder struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	OrderNumber    string              `gorm:"size:100;not null;uniqueIndex" json:"order_number"`
	SupplierId     int                 `gorm:"index;not null" json:"supplier_id" binding:"required"`
	OrderDate      time.Time           `gorm:"not null" json:"order_date" binding:"required"`
	Status         PurchaseOrderStatus `gorm:"type:enum('Pending','Confirmed','Partially Received','Delivered','Cancelled');not null;default:Pending" json:"status"`
	PaymentStatus  PaymentStatus       `gorm:"type:enum('Pending','Partial','Paid');not null;default:Pending" json:"payment_status"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"total_amount"`
	DiscountAmount decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"tax_amount"`
	// GrandTotal = TotalAmount - DiscountAmount + TaxAmount
	GrandTotal decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"grand_total"`
	// PaidAmount never exceeds GrandTotal.
	PaidAmount decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"paid_amount"`
	Notes      string              `gorm:"type:text;default:null" json:"notes"`
	Items      []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderId" json:"items"`
	CreatedAt  time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	ProductId       int             `gorm:"index;not null" json:"product_id" binding:"required"`
	Quantity        int             `gorm:"not null" json:"quantity" binding:"required"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_cost" binding:"required"`
	// 0 <= ReceivedQuantity <= Quantity, advanced only by the receiving
	// workflow.
	ReceivedQuantity int           `gorm:"not null;default:0" json:"received_quantity"`
	ReceiptStatus    ReceiptStatus `gorm:"type:enum('Pending','Partial','Delivered');not null;default:Pending" json:"receipt_status"`
}

type NewPurchaseOrder struct {
	SupplierId     int                    `json:"supplier_id" binding:"required" validate:"required"`
	OrderDate      time.Time              `json:"order_date" binding:"required"`
	DiscountAmount decimal.Decimal        `json:"discount_amount"`
	TaxAmount      decimal.Decimal        `json:"tax_amount"`
	Notes          string                 `json:"notes"`
	Items          []NewPurchaseOrderItem `json:"items" binding:"required" validate:"required,dive"`
}

type NewPurchaseOrderItem struct {
	ProductId int             `json:"product_id" binding:"required" validate:"required"`
	Quantity  int             `json:"quantity" binding:"required" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" binding:"required"`
}

func (po *PurchaseOrder) RemainingBalance() decimal.Decimal {
	return po.GrandTotal.Sub(po.PaidAmount)
}

// validate input for create. Purchase orders are append-only once
// confirmed; edits are restricted to the Pending status by the caller.
func (input *NewPurchaseOrder) validate(ctx context.Context) error {
	if errs := ValidateStruct(input); len(errs) > 0 {
		return errs[0]
	}
	if err := utils.ValidateResourceId[Supplier](ctx, input.SupplierId); err != nil {
		return err
	}
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		if item.UnitCost.IsNegative() {
			return ValidationError{Field: "UnitCost", Message: "must not be negative"}
		}
		productIds = append(productIds, item.ProductId)
	}
	if err := utils.ValidateResourcesId[Product](ctx, productIds); err != nil {
		return err
	}
	if input.DiscountAmount.IsNegative() || input.TaxAmount.IsNegative() {
		return ValidationError{Field: "DiscountAmount", Message: "must not be negative"}
	}
	return nil
}

func nextPurchaseOrderNumber(tx *gorm.DB) (string, error) {
	var maxId int
	if err := tx.Model(&PurchaseOrder{}).Select("COALESCE(MAX(id), 0)").Scan(&maxId).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%06d", maxId+1), nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	items := make([]PurchaseOrderItem, 0, len(input.Items))
	totalAmount := decimal.Zero
	for _, item := range input.Items {
		lineTotal := item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity)))
		totalAmount = totalAmount.Add(lineTotal)
		items = append(items, PurchaseOrderItem{
			ProductId:     item.ProductId,
			Quantity:      item.Quantity,
			UnitCost:      item.UnitCost,
			ReceiptStatus: ReceiptStatusPending,
		})
	}
	totalAmount = utils.RoundMoney(totalAmount)
	grandTotal := utils.RoundMoney(totalAmount.Sub(input.DiscountAmount).Add(input.TaxAmount))

	po := PurchaseOrder{
		SupplierId:     input.SupplierId,
		OrderDate:      input.OrderDate,
		Status:         PurchaseOrderStatusPending,
		PaymentStatus:  PaymentStatusPending,
		TotalAmount:    totalAmount,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		GrandTotal:     grandTotal,
		Notes:          input.Notes,
		Items:          items,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextPurchaseOrderNumber(tx)
		if err != nil {
			return err
		}
		po.OrderNumber = number
		return tx.Create(&po).Error
	})
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// ConfirmPurchaseOrder moves a pending order to Confirmed so receiving
// can begin.
func ConfirmPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	po, err := utils.FetchModel[PurchaseOrder](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	if po.Status != PurchaseOrderStatusPending {
		return nil, fmt.Errorf("purchase order %s is %s, only Pending orders can be confirmed", po.OrderNumber, po.Status)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&po).Update("status", PurchaseOrderStatusConfirmed).Error; err != nil {
		return nil, err
	}
	return po, nil
}

// CancelPurchaseOrder cancels an order that has not received any stock.
func CancelPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	po, err := utils.FetchModel[PurchaseOrder](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	for _, item := range po.Items {
		if item.ReceivedQuantity > 0 {
			return nil, ErrPurchaseOrderNotEmpty
		}
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&po).Update("status", PurchaseOrderStatusCancelled).Error; err != nil {
		return nil, err
	}
	return po, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return utils.FetchModel[PurchaseOrder](ctx, id, "Items")
}

func GetPurchaseOrders(ctx context.Context, status *PurchaseOrderStatus) ([]*PurchaseOrder, error) {
	db := config.GetDB()
	var results []*PurchaseOrder

	dbCtx := db.WithContext(ctx)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Preload("Items").Order("order_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
