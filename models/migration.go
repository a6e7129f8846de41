package models

import (
	"log"

	"github.com/SaravananKiruba/boolapos-sub001/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Customer{}, &Supplier{}, &Setting{},
		&Product{}, &RateMaster{},
		&PurchaseOrder{}, &PurchaseOrderItem{},
		&Stock{}, &StockItem{}, &StockMovement{}, &StockTagSequence{},
		&Order{}, &OrderDetail{},
		&FinanceEntry{}, &EMIScheduleEntry{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
