package workflow

import (
	"errors"
	"fmt"

	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/shopspring/decimal"
)

// ErrAllocationConflict signals that two orders raced for the same
// units. PlaceOrder retries once before surfacing it to the caller.
var ErrAllocationConflict = errors.New("stock allocation conflict, please retry")

// RateNotFoundError means no rate window covers "now" for the metal and
// purity. Pricing never falls back to a stale or zero rate.
type RateNotFoundError struct {
	MetalType models.MetalType
	Purity    string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no current rate for %s %s", e.MetalType, e.Purity)
}

type InsufficientStockError struct {
	ProductId int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductId, e.Requested, e.Available)
}

// OverReceiptError rejects receiving more units against a purchase
// order line than were ordered.
type OverReceiptError struct {
	PurchaseOrderItemId int
	Ordered             int
	AlreadyReceived     int
	Attempted           int
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("over-receipt on purchase order item %d: ordered %d, received %d, attempted %d more",
		e.PurchaseOrderItemId, e.Ordered, e.AlreadyReceived, e.Attempted)
}

// OverpaymentError rejects a payment that would push a document's paid
// amount past its grand total.
type OverpaymentError struct {
	DocumentType string
	DocumentId   int
	Outstanding  decimal.Decimal
	Attempted    decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds outstanding balance %s on %s %d",
		e.Attempted.StringFixed(2), e.Outstanding.StringFixed(2), e.DocumentType, e.DocumentId)
}
