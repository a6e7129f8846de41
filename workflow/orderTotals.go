package workflow

import (
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// taxMultiplier is the flat 3% GST applied at the order level.
var taxMultiplier = decimal.NewFromFloat(1.03)

// OrderTotals is the full derived money block of an order. All four
// numbers are written together; the invariant
// GrandTotal = PriceBeforeTax + TaxAmount holds exactly.
type OrderTotals struct {
	TotalItems     int
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	PriceBeforeTax decimal.Decimal
	TaxAmount      decimal.Decimal
	GrandTotal     decimal.Decimal
}

// ComputeOrderTotals derives the money block from detail lines and a
// signed discount (negative = discount, positive = surcharge):
//
//	TotalItems     = sum(qty)
//	TotalAmount    = sum(round(unitPrice * qty, 2))
//	PriceBeforeTax = max(0, TotalAmount + DiscountAmount)
//	GrandTotal     = round(PriceBeforeTax * 1.03, 2)
//	TaxAmount      = GrandTotal - PriceBeforeTax
//
// Deterministic and DB-free.
func ComputeOrderTotals(details []models.OrderDetail, discountAmount decimal.Decimal) OrderTotals {
	totalItems := 0
	totalAmount := decimal.Zero
	for _, detail := range details {
		totalItems += detail.Quantity
		totalAmount = totalAmount.Add(detail.TotalPrice)
	}
	totalAmount = utils.RoundMoney(totalAmount)

	priceBeforeTax := totalAmount.Add(discountAmount)
	if priceBeforeTax.IsNegative() {
		priceBeforeTax = decimal.Zero
	}
	priceBeforeTax = utils.RoundMoney(priceBeforeTax)

	grandTotal := utils.RoundMoney(priceBeforeTax.Mul(taxMultiplier))
	taxAmount := grandTotal.Sub(priceBeforeTax)

	return OrderTotals{
		TotalItems:     totalItems,
		TotalAmount:    totalAmount,
		DiscountAmount: discountAmount,
		PriceBeforeTax: priceBeforeTax,
		TaxAmount:      taxAmount,
		GrandTotal:     grandTotal,
	}
}

// LineTotal prices one detail line.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return utils.RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// RecalculateOrderTotals re-derives and persists the money block of an
// order from its stored detail lines. Used after any detail mutation so
// the stored numbers can never drift from the formula.
func RecalculateOrderTotals(tx *gorm.DB, order *models.Order) error {
	var details []models.OrderDetail
	if err := tx.Where("order_id = ?", order.ID).Find(&details).Error; err != nil {
		return err
	}

	totals := ComputeOrderTotals(details, order.DiscountAmount)

	order.TotalItems = totals.TotalItems
	order.TotalAmount = totals.TotalAmount
	order.PriceBeforeTax = totals.PriceBeforeTax
	order.TaxAmount = totals.TaxAmount
	order.GrandTotal = totals.GrandTotal

	return tx.Model(order).Updates(map[string]interface{}{
		"total_items":      totals.TotalItems,
		"total_amount":     totals.TotalAmount,
		"price_before_tax": totals.PriceBeforeTax,
		"tax_amount":       totals.TaxAmount,
		"grand_total":      totals.GrandTotal,
	}).Error
}
