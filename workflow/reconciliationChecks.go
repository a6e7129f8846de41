package workflow

import (
	"context"
	"fmt"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/sirupsen/logrus"
)

// ReconciliationFinding is one mismatch surfaced by the audit checks.
// An empty findings list means the books and the ledger agree.
type ReconciliationFinding struct {
	Check    string `json:"check"`
	Entity   string `json:"entity"`
	EntityId int    `json:"entity_id"`
	Detail   string `json:"detail"`
}

// RunReconciliationChecks cross-checks the stock ledger and the cash
// book against the documents they mirror. Intended to be run nightly or
// via an admin trigger; it reads, never repairs.
func RunReconciliationChecks(ctx context.Context, logger *logrus.Logger) ([]ReconciliationFinding, error) {
	findings := make([]ReconciliationFinding, 0)

	lotFindings, err := checkLotConservation(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, lotFindings...)

	reservationFindings, err := checkReservationLinkage(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, reservationFindings...)

	detailFindings, err := checkDetailAllocation(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, detailFindings...)

	paymentFindings, err := checkOrderPayments(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, paymentFindings...)

	receiptFindings, err := checkReceiptBounds(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, receiptFindings...)

	logger.WithFields(logrus.Fields{
		"findings": len(findings),
	}).Info("reconciliation checks completed")

	return findings, nil
}

// checkLotConservation verifies stock conservation per lot: the lot's
// received quantity equals the number of units minted from it,
// whatever status those units are in now.
func checkLotConservation(ctx context.Context) ([]ReconciliationFinding, error) {
	db := config.GetDB()

	type row struct {
		LotId    int
		Quantity int
		Units    int
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT s.id AS lot_id, s.quantity, COUNT(si.id) AS units
		FROM stocks s
		LEFT JOIN stock_items si ON si.stock_id = s.id
		GROUP BY s.id, s.quantity
		HAVING s.quantity <> COUNT(si.id)`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	findings := make([]ReconciliationFinding, 0, len(rows))
	for _, r := range rows {
		findings = append(findings, ReconciliationFinding{
			Check:    "lot_conservation",
			Entity:   "stock",
			EntityId: r.LotId,
			Detail:   fmt.Sprintf("lot received %d units but %d exist in the ledger", r.Quantity, r.Units),
		})
	}
	return findings, nil
}

// checkReservationLinkage verifies the at-most-one-order invariant's
// observable shape: Reserved/Sold units reference an order that exists
// and is not cancelled.
func checkReservationLinkage(ctx context.Context) ([]ReconciliationFinding, error) {
	db := config.GetDB()

	type row struct {
		StockItemId int
		Tag         string
		Status      string
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT si.id AS stock_item_id, si.tag, si.status
		FROM stock_items si
		LEFT JOIN orders o ON o.id = si.order_id
		WHERE si.status IN ('Reserved', 'Sold')
		  AND (o.id IS NULL OR o.status = 'Cancelled')`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	findings := make([]ReconciliationFinding, 0, len(rows))
	for _, r := range rows {
		findings = append(findings, ReconciliationFinding{
			Check:    "reservation_linkage",
			Entity:   "stock_item",
			EntityId: r.StockItemId,
			Detail:   fmt.Sprintf("unit %s is %s but its order is missing or cancelled", r.Tag, r.Status),
		})
	}
	return findings, nil
}

// checkDetailAllocation verifies the unit/detail linkage: a detail line
// never holds more units than its quantity, and a unit never points at
// a detail line that does not exist.
func checkDetailAllocation(ctx context.Context) ([]ReconciliationFinding, error) {
	db := config.GetDB()

	type row struct {
		DetailId int
		Quantity int
		Units    int
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT od.id AS detail_id, od.quantity, COUNT(si.id) AS units
		FROM order_details od
		JOIN stock_items si ON si.order_detail_id = od.id
		GROUP BY od.id, od.quantity
		HAVING COUNT(si.id) > od.quantity`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	findings := make([]ReconciliationFinding, 0, len(rows))
	for _, r := range rows {
		findings = append(findings, ReconciliationFinding{
			Check:    "detail_allocation",
			Entity:   "order_detail",
			EntityId: r.DetailId,
			Detail:   fmt.Sprintf("detail line for %d units holds %d stock items", r.Quantity, r.Units),
		})
	}

	type orphan struct {
		StockItemId   int
		Tag           string
		OrderDetailId int
	}
	var orphans []orphan
	err = db.WithContext(ctx).Raw(`
		SELECT si.id AS stock_item_id, si.tag, si.order_detail_id
		FROM stock_items si
		LEFT JOIN order_details od ON od.id = si.order_detail_id
		WHERE si.order_detail_id IS NOT NULL AND od.id IS NULL`).Scan(&orphans).Error
	if err != nil {
		return nil, err
	}
	for _, o := range orphans {
		findings = append(findings, ReconciliationFinding{
			Check:    "detail_allocation",
			Entity:   "stock_item",
			EntityId: o.StockItemId,
			Detail:   fmt.Sprintf("unit %s references missing order detail %d", o.Tag, o.OrderDetailId),
		})
	}
	return findings, nil
}

// checkOrderPayments verifies the cash book: an order's PaidAmount must
// equal the sum of its completed finance entries.
func checkOrderPayments(ctx context.Context) ([]ReconciliationFinding, error) {
	db := config.GetDB()

	type row struct {
		OrderId     int
		OrderNumber string
		PaidAmount  string
		EntrySum    string
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT o.id AS order_id, o.order_number, o.paid_amount,
		       COALESCE(SUM(fe.amount), 0) AS entry_sum
		FROM orders o
		LEFT JOIN finance_entries fe
		  ON fe.order_id = o.id AND fe.status = 'Completed'
		GROUP BY o.id, o.order_number, o.paid_amount
		HAVING o.paid_amount <> COALESCE(SUM(fe.amount), 0)`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	findings := make([]ReconciliationFinding, 0, len(rows))
	for _, r := range rows {
		findings = append(findings, ReconciliationFinding{
			Check:    "order_payments",
			Entity:   "order",
			EntityId: r.OrderId,
			Detail:   fmt.Sprintf("order %s paid_amount %s disagrees with posted entries %s", r.OrderNumber, r.PaidAmount, r.EntrySum),
		})
	}
	return findings, nil
}

// checkReceiptBounds verifies no purchase order line has received more
// than was ordered.
func checkReceiptBounds(ctx context.Context) ([]ReconciliationFinding, error) {
	db := config.GetDB()

	type row struct {
		ItemId           int
		Quantity         int
		ReceivedQuantity int
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT id AS item_id, quantity, received_quantity
		FROM purchase_order_items
		WHERE received_quantity > quantity OR received_quantity < 0`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	findings := make([]ReconciliationFinding, 0, len(rows))
	for _, r := range rows {
		findings = append(findings, ReconciliationFinding{
			Check:    "receipt_bounds",
			Entity:   "purchase_order_item",
			EntityId: r.ItemId,
			Detail:   fmt.Sprintf("received %d of %d ordered", r.ReceivedQuantity, r.Quantity),
		})
	}
	return findings, nil
}
