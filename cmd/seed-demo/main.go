package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/SaravananKiruba/boolapos-sub001/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// seed-demo loads a small demo catalog: a supplier, a customer, today's
// gold and silver rates, a handful of products and one received
// purchase order so the shop can sell immediately.
func main() {
	goldRate := flag.String("gold-rate", "6000.00", "22K gold rate per gram")
	silverRate := flag.String("silver-rate", "75.00", "925 silver rate per gram")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	models.MigrateTable()
	logger := logrus.New()

	ctx := utils.SetUserNameInContext(context.Background(), "seed-demo")

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{
		Name:          "Chennai Bullion House",
		ContactPerson: "R. Krishnan",
		GSTIN:         "33AAAAA0000A1Z5",
	})
	if err != nil {
		fatal("create supplier", err)
	}

	if _, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in Customer"}); err != nil {
		fatal("create customer", err)
	}

	rates := []models.NewRateMaster{
		{MetalType: models.MetalTypeGold, Purity: "22K", RatePerGram: mustDec(*goldRate), EffectiveDate: time.Now().UTC()},
		{MetalType: models.MetalTypeSilver, Purity: "925", RatePerGram: mustDec(*silverRate), EffectiveDate: time.Now().UTC()},
	}
	for i := range rates {
		if _, err := models.CreateRateMaster(ctx, &rates[i]); err != nil {
			fatal("create rate", err)
		}
	}

	products := []models.NewProduct{
		{Name: "Gold Ring 22K", Barcode: "GR-22K-001", MetalType: models.MetalTypeGold, Purity: "22K",
			NetWeight: mustDec("8.500"), WastagePercentage: mustDec("3.5"), MakingCharge: mustDec("1200"),
			ReorderLevel: 2, SupplierId: supplier.ID, HUIDPrefix: "GR22"},
		{Name: "Gold Chain 22K", Barcode: "GC-22K-001", MetalType: models.MetalTypeGold, Purity: "22K",
			NetWeight: mustDec("23.450"), WastagePercentage: mustDec("3.5"), MakingCharge: mustDec("2800"),
			ReorderLevel: 1, SupplierId: supplier.ID, HUIDPrefix: "GC22"},
		{Name: "Silver Anklet", Barcode: "SA-925-001", MetalType: models.MetalTypeSilver, Purity: "925",
			NetWeight: mustDec("42.000"), WastagePercentage: mustDec("5"), MakingCharge: mustDec("350"),
			ReorderLevel: 5, SupplierId: supplier.ID, HUIDPrefix: "SA92"},
	}
	productIds := make([]int, 0, len(products))
	for i := range products {
		p, err := models.CreateProduct(ctx, &products[i])
		if err != nil {
			fatal("create product", err)
		}
		productIds = append(productIds, p.ID)
	}

	po, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId: supplier.ID,
		OrderDate:  time.Now().UTC(),
		Items: []models.NewPurchaseOrderItem{
			{ProductId: productIds[0], Quantity: 5, UnitCost: mustDec("48000")},
			{ProductId: productIds[1], Quantity: 2, UnitCost: mustDec("135000")},
			{ProductId: productIds[2], Quantity: 10, UnitCost: mustDec("3200")},
		},
	})
	if err != nil {
		fatal("create purchase order", err)
	}
	if _, err := models.ConfirmPurchaseOrder(ctx, po.ID); err != nil {
		fatal("confirm purchase order", err)
	}

	lines := make([]workflow.ReceiveItemsLine, 0, len(po.Items))
	for _, item := range po.Items {
		lines = append(lines, workflow.ReceiveItemsLine{PurchaseOrderItemId: item.ID, Quantity: item.Quantity})
	}
	if _, err := workflow.ReceivePurchaseOrder(ctx, logger, &workflow.ReceiveItemsInput{
		PurchaseOrderId:  po.ID,
		Lines:            lines,
		IdempotencyToken: fmt.Sprintf("seed-demo-%d", po.ID),
	}); err != nil {
		fatal("receive purchase order", err)
	}

	fmt.Println("demo data seeded")
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		fatal("parse decimal "+s, err)
	}
	return d
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
