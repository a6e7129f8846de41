package models

type MetalType string

const (
	MetalTypeGold     MetalType = "Gold"
	MetalTypeSilver   MetalType = "Silver"
	MetalTypePlatinum MetalType = "Platinum"
	MetalTypeDiamond  MetalType = "Diamond"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending           PurchaseOrderStatus = "Pending"
	PurchaseOrderStatusConfirmed         PurchaseOrderStatus = "Confirmed"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "Partially Received"
	PurchaseOrderStatusDelivered         PurchaseOrderStatus = "Delivered"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// ReceiptStatus tracks how much of one purchase-order line has arrived.
type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "Pending"
	ReceiptStatusPartial   ReceiptStatus = "Partial"
	ReceiptStatusDelivered ReceiptStatus = "Delivered"
)

type StockItemStatus string

const (
	StockItemStatusAvailable StockItemStatus = "Available"
	StockItemStatusReserved  StockItemStatus = "Reserved"
	StockItemStatusSold      StockItemStatus = "Sold"
	StockItemStatusReturned  StockItemStatus = "Returned"
	StockItemStatusDamaged   StockItemStatus = "Damaged"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type StockMovementType string

const (
	StockMovementTypePurchase StockMovementType = "Purchase"
	StockMovementTypeSale     StockMovementType = "Sale"
	StockMovementTypeReturn   StockMovementType = "Return"
	StockMovementTypeExchange StockMovementType = "Exchange"
	StockMovementTypeDamage   StockMovementType = "Damage"
)

type FinanceTransactionType string

const (
	FinanceTransactionTypeIncome        FinanceTransactionType = "Income"
	FinanceTransactionTypeExpense       FinanceTransactionType = "Expense"
	FinanceTransactionTypeEMI           FinanceTransactionType = "EMI"
	FinanceTransactionTypeMetalPurchase FinanceTransactionType = "Metal_Purchase"
	FinanceTransactionTypeRefund        FinanceTransactionType = "Refund"
	FinanceTransactionTypeAdjustment    FinanceTransactionType = "Adjustment"
)

type FinanceStatus string

const (
	FinanceStatusCompleted  FinanceStatus = "Completed"
	FinanceStatusPending    FinanceStatus = "Pending"
	FinanceStatusFailed     FinanceStatus = "Failed"
	FinanceStatusInProgress FinanceStatus = "In Progress"
)

type EMIStatus string

const (
	EMIStatusPending       EMIStatus = "Pending"
	EMIStatusPartiallyPaid EMIStatus = "Partially Paid"
	EMIStatusCompleted     EMIStatus = "Completed"
)

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeCard         PaymentMode = "Card"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeBankTransfer PaymentMode = "Bank Transfer"
	PaymentModeCheque       PaymentMode = "Cheque"
	PaymentModeRefund       PaymentMode = "Refund"
	PaymentModeAdjustment   PaymentMode = "Adjustment"
)

// IsReversing reports whether a payment mode moves money back to the
// customer; such postings are exempt from the overpayment guard.
func (m PaymentMode) IsReversing() bool {
	return m == PaymentModeRefund || m == PaymentModeAdjustment
}

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
