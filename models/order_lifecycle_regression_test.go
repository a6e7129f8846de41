package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/SaravananKiruba/boolapos-sub001/workflow"
	"github.com/shopspring/decimal"
)

func TestOrderLifecycle_ReceiveSellCancel(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "boolapos_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	logger := config.GetLogger()

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Bullion House"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in Customer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	ring, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:              "Gold Ring",
		Barcode:           "RING-001",
		MetalType:         models.MetalTypeGold,
		Purity:            "22K",
		NetWeight:         decimal.RequireFromString("10.000"),
		WastagePercentage: decimal.RequireFromString("3.5"),
		MakingCharge:      decimal.RequireFromString("1200.00"),
		SupplierId:        supplier.ID,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	_, err = models.CreateRateMaster(ctx, &models.NewRateMaster{
		MetalType:     models.MetalTypeGold,
		Purity:        "22K",
		RatePerGram:   decimal.RequireFromString("6000.00"),
		EffectiveDate: time.Now().UTC().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateRateMaster: %v", err)
	}

	// Buy 3 rings from the supplier and receive them.
	po, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId: supplier.ID,
		OrderDate:  time.Now().UTC(),
		Items: []models.NewPurchaseOrderItem{
			{ProductId: ring.ID, Quantity: 3, UnitCost: decimal.RequireFromString("55000.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if _, err := models.ConfirmPurchaseOrder(ctx, po.ID); err != nil {
		t.Fatalf("ConfirmPurchaseOrder: %v", err)
	}

	po, err = workflow.ReceivePurchaseOrder(ctx, logger, &workflow.ReceiveItemsInput{
		PurchaseOrderId:  po.ID,
		Lines:            []workflow.ReceiveItemsLine{{PurchaseOrderItemId: po.Items[0].ID, Quantity: 3}},
		IdempotencyToken: "receipt-1",
	})
	if err != nil {
		t.Fatalf("ReceivePurchaseOrder: %v", err)
	}
	if po.Status != models.PurchaseOrderStatusDelivered {
		t.Fatalf("purchase order status = %s, want Delivered", po.Status)
	}

	available, err := models.AvailableCount(ctx, ring.ID)
	if err != nil || available != 3 {
		t.Fatalf("available = %d (err=%v), want 3", available, err)
	}

	// Replaying the receipt must not mint more units.
	if _, err := workflow.ReceivePurchaseOrder(ctx, logger, &workflow.ReceiveItemsInput{
		PurchaseOrderId:  po.ID,
		Lines:            []workflow.ReceiveItemsLine{{PurchaseOrderItemId: po.Items[0].ID, Quantity: 3}},
		IdempotencyToken: "receipt-1",
	}); err != nil {
		t.Fatalf("replayed ReceivePurchaseOrder: %v", err)
	}
	if available, _ = models.AvailableCount(ctx, ring.ID); available != 3 {
		t.Fatalf("available after replay = %d, want 3", available)
	}

	// A fourth unit cannot be received.
	_, err = workflow.ReceivePurchaseOrder(ctx, logger, &workflow.ReceiveItemsInput{
		PurchaseOrderId:  po.ID,
		Lines:            []workflow.ReceiveItemsLine{{PurchaseOrderItemId: po.Items[0].ID, Quantity: 1}},
		IdempotencyToken: "receipt-2",
	})
	if _, ok := err.(*workflow.OverReceiptError); !ok {
		t.Fatalf("expected OverReceiptError, got %v", err)
	}

	// Sell 2 rings for cash. Price comes off the rate board:
	// 10.000g * 1.035 * 6000 + 1200 = 63300 per ring.
	cash := models.PaymentModeCash
	order, err := workflow.PlaceOrder(ctx, logger, &models.NewOrder{
		CustomerId:  customer.ID,
		Details:     []models.NewOrderDetail{{ProductId: ring.ID, Quantity: 2}},
		PaymentMode: &cash,
		AmountPaid:  decimal.RequireFromString("130398.00"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("126600.00")) {
		t.Fatalf("TotalAmount = %s, want 126600.00", order.TotalAmount)
	}
	if !order.GrandTotal.Equal(decimal.RequireFromString("130398.00")) {
		t.Fatalf("GrandTotal = %s, want 130398.00", order.GrandTotal)
	}
	if order.Status != models.OrderStatusCompleted {
		t.Fatalf("order status = %s, want Completed", order.Status)
	}
	if order.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want Paid", order.PaymentStatus)
	}

	if available, _ = models.AvailableCount(ctx, ring.ID); available != 1 {
		t.Fatalf("available after sale = %d, want 1", available)
	}

	sold, err := models.GetStockItems(ctx, &ring.ID, nil)
	if err != nil {
		t.Fatalf("GetStockItems: %v", err)
	}
	soldCount := 0
	for _, item := range sold {
		if item.Status == models.StockItemStatusSold {
			soldCount++
			if item.OrderId == nil || *item.OrderId != order.ID {
				t.Fatalf("sold unit %s does not reference order %d", item.Tag, order.ID)
			}
			if item.OrderDetailId == nil || *item.OrderDetailId != order.Details[0].ID {
				t.Fatalf("sold unit %s does not reference detail line %d", item.Tag, order.Details[0].ID)
			}
		}
	}
	if soldCount != 2 {
		t.Fatalf("sold units = %d, want 2", soldCount)
	}

	// The books must agree before we cancel.
	findings, err := workflow.RunReconciliationChecks(ctx, logger)
	if err != nil {
		t.Fatalf("RunReconciliationChecks: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected clean reconciliation, got %+v", findings)
	}

	// Cancel: units return, money reverses.
	order, err = workflow.CancelOrder(ctx, logger, order.ID, "customer changed mind")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if order.Status != models.OrderStatusCancelled {
		t.Fatalf("order status = %s, want Cancelled", order.Status)
	}
	if !order.PaidAmount.IsZero() {
		t.Fatalf("paid amount after cancel = %s, want 0", order.PaidAmount)
	}
	if available, _ = models.AvailableCount(ctx, ring.ID); available != 3 {
		t.Fatalf("available after cancel = %d, want 3", available)
	}

	entries, err := models.GetFinanceEntries(ctx, &order.ID, nil)
	if err != nil {
		t.Fatalf("GetFinanceEntries: %v", err)
	}
	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(entry.Amount)
	}
	if !sum.IsZero() {
		t.Fatalf("finance entries for cancelled order sum to %s, want 0", sum)
	}
}

func TestAllocation_OldestLotFirst(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "boolapos_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserNameInContext(ctx, "Test")
	logger := config.GetLogger()

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Lot Supplier"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Lot Customer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	bangle, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:              "Gold Bangle",
		Barcode:           "BANGLE-001",
		MetalType:         models.MetalTypeGold,
		Purity:            "22K",
		NetWeight:         decimal.RequireFromString("12.000"),
		WastagePercentage: decimal.RequireFromString("4"),
		MakingCharge:      decimal.RequireFromString("900.00"),
		SupplierId:        supplier.ID,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if _, err := models.CreateRateMaster(ctx, &models.NewRateMaster{
		MetalType:     models.MetalTypeGold,
		Purity:        "22K",
		RatePerGram:   decimal.RequireFromString("6000.00"),
		EffectiveDate: time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("CreateRateMaster: %v", err)
	}

	// Receive two lots: the first booked today, the second booked later
	// in wall-clock time but backdated a month. The backdated lot is the
	// older stock and must sell first.
	receive := func(receivedDate time.Time, token string) {
		t.Helper()
		po, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
			SupplierId: supplier.ID,
			OrderDate:  receivedDate,
			Items: []models.NewPurchaseOrderItem{
				{ProductId: bangle.ID, Quantity: 2, UnitCost: decimal.RequireFromString("70000.00")},
			},
		})
		if err != nil {
			t.Fatalf("CreatePurchaseOrder: %v", err)
		}
		if _, err := models.ConfirmPurchaseOrder(ctx, po.ID); err != nil {
			t.Fatalf("ConfirmPurchaseOrder: %v", err)
		}
		if _, err := workflow.ReceivePurchaseOrder(ctx, logger, &workflow.ReceiveItemsInput{
			PurchaseOrderId:  po.ID,
			ReceivedDate:     &receivedDate,
			Lines:            []workflow.ReceiveItemsLine{{PurchaseOrderItemId: po.Items[0].ID, Quantity: 2}},
			IdempotencyToken: token,
		}); err != nil {
			t.Fatalf("ReceivePurchaseOrder: %v", err)
		}
	}
	receive(time.Now().UTC(), "lot-today")
	receive(time.Now().UTC().AddDate(0, -1, 0), "lot-backdated")

	lots, err := models.GetStockLots(ctx, &bangle.ID)
	if err != nil || len(lots) != 2 {
		t.Fatalf("lots = %d (err=%v), want 2", len(lots), err)
	}
	oldestLot := lots[0] // sorted by received_date

	order, err := workflow.PlaceOrder(ctx, logger, &models.NewOrder{
		CustomerId: customer.ID,
		Details:    []models.NewOrderDetail{{ProductId: bangle.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	items, err := models.GetStockItems(ctx, &bangle.ID, nil)
	if err != nil {
		t.Fatalf("GetStockItems: %v", err)
	}
	soldUnits := 0
	for _, item := range items {
		if item.Status != models.StockItemStatusSold {
			continue
		}
		soldUnits++
		if item.StockId != oldestLot.ID {
			t.Fatalf("sold unit %s came from lot %d, want oldest lot %d", item.Tag, item.StockId, oldestLot.ID)
		}
		if item.OrderId == nil || *item.OrderId != order.ID {
			t.Fatalf("sold unit %s does not reference order %d", item.Tag, order.ID)
		}
	}
	if soldUnits != 1 {
		t.Fatalf("sold units = %d, want 1", soldUnits)
	}
}

func TestEMISchedule_Integration(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "boolapos_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	logger := config.GetLogger()

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "EMI Customer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// An order with a 10000 balance, taken on EMI over 3 months.
	db := config.GetDB()
	order := models.Order{
		OrderNumber:    "ORD-EMI-1",
		CustomerId:     customer.ID,
		OrderDate:      time.Now().UTC(),
		Status:         models.OrderStatusCompleted,
		TotalAmount:    decimal.RequireFromString("9708.74"),
		PriceBeforeTax: decimal.RequireFromString("9708.74"),
		TaxAmount:      decimal.RequireFromString("291.26"),
		GrandTotal:     decimal.RequireFromString("10000.00"),
		PaymentStatus:  models.PaymentStatusPending,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	firstDue := time.Now().UTC().Truncate(time.Second).AddDate(0, 1, 0)
	entries, err := workflow.GenerateEMISchedule(ctx, logger, order.ID, 3, firstDue)
	if err != nil {
		t.Fatalf("GenerateEMISchedule: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("installments = %d, want 3", len(entries))
	}
	if !entries[2].Amount.Equal(decimal.RequireFromString("3333.34")) {
		t.Fatalf("last installment = %s, want 3333.34", entries[2].Amount)
	}

	reloaded, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reloaded.NextPaymentDate == nil || !reloaded.NextPaymentDate.Equal(entries[0].DueDate) {
		t.Fatalf("next payment date = %v, want first due date %s", reloaded.NextPaymentDate, entries[0].DueDate)
	}

	// Pay the first installment in full.
	if _, err := workflow.RecordEMIPayment(ctx, logger, entries[0].ID, &workflow.NewPayment{
		Amount:      decimal.RequireFromString("3333.33"),
		PaymentMode: models.PaymentModeUPI,
	}); err != nil {
		t.Fatalf("RecordEMIPayment: %v", err)
	}

	schedule, err := models.GetEMISchedule(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetEMISchedule: %v", err)
	}
	if schedule[0].Status != models.EMIStatusCompleted {
		t.Fatalf("installment 1 status = %s, want Completed", schedule[0].Status)
	}

	// Settling the first installment advances the next payment date.
	reloaded, err = models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reloaded.NextPaymentDate == nil || !reloaded.NextPaymentDate.Equal(entries[1].DueDate) {
		t.Fatalf("next payment date = %v, want second due date %s", reloaded.NextPaymentDate, entries[1].DueDate)
	}

	// Overpaying an installment is rejected.
	_, err = workflow.RecordEMIPayment(ctx, logger, entries[1].ID, &workflow.NewPayment{
		Amount:      decimal.RequireFromString("5000.00"),
		PaymentMode: models.PaymentModeUPI,
	})
	if _, ok := err.(*workflow.OverpaymentError); !ok {
		t.Fatalf("expected OverpaymentError, got %v", err)
	}

	// A schedule with payments cannot be regenerated.
	if _, err := workflow.GenerateEMISchedule(ctx, logger, order.ID, 6, time.Now().UTC()); err == nil {
		t.Fatal("expected regeneration with payments to be rejected")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("boolapos-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("boolapos-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=boolapos_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
