package models

import "errors"

var (
	ErrCustomerHasOrders      = errors.New("customer has orders on file")
	ErrSupplierHasPurchases   = errors.New("supplier has purchase orders on file")
	ErrRateWindowOverlap      = errors.New("an active rate already covers this validity window")
	ErrPurchaseOrderNotEmpty  = errors.New("purchase order has received stock")
	ErrProductHasStock        = errors.New("product has stock items on file")
	ErrLotHasActiveItems      = errors.New("stock lot still has items that are not sold or damaged")
	ErrOrderNotCancellable    = errors.New("order cannot be cancelled in its current status")
	ErrStockMovementImmutable = errors.New("stock movements are append-only")
)
