package models

import (
	"context"
	"fmt"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Stock is a lot: the batch of identical units received against one
// purchase order line. Individual sellable units live in StockItem.
type Stock struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_cost"`
	ReceivedDate    time.Time       `gorm:"not null" json:"received_date"`
	Items           []StockItem     `gorm:"foreignKey:StockId" json:"items"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// StockItem is one physical unit with a unique tag. Its status walks
// Available -> Reserved -> Sold (with Returned/Damaged as terminal side
// exits); OrderId and OrderDetailId are set exactly while the unit is
// Reserved or Sold, tying the unit to the detail line it was picked
// for.
type StockItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Tag           string          `gorm:"size:100;not null;uniqueIndex" json:"tag"`
	StockId       int             `gorm:"index;not null" json:"stock_id"`
	ProductId     int             `gorm:"index:idx_stock_pick,priority:1;not null" json:"product_id"`
	Status        StockItemStatus `gorm:"type:enum('Available','Reserved','Sold','Returned','Damaged');not null;default:Available;index:idx_stock_pick,priority:2" json:"status"`
	OrderId       *int            `gorm:"index;default:null" json:"order_id"`
	OrderDetailId *int            `gorm:"index;default:null" json:"order_detail_id"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_cost"`
	HUID          string          `gorm:"size:50;default:null" json:"huid"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeSave keeps the unit/order linkage honest: the order and detail
// references are present exactly when the unit is Reserved or Sold.
func (item *StockItem) BeforeSave(tx *gorm.DB) error {
	switch item.Status {
	case StockItemStatusReserved, StockItemStatusSold:
		if item.OrderId == nil {
			return fmt.Errorf("stock item %s is %s without an order reference", item.Tag, item.Status)
		}
		if item.OrderDetailId == nil {
			return fmt.Errorf("stock item %s is %s without an order detail reference", item.Tag, item.Status)
		}
	default:
		if item.OrderId != nil {
			return fmt.Errorf("stock item %s is %s but still references order %d", item.Tag, item.Status, *item.OrderId)
		}
		if item.OrderDetailId != nil {
			return fmt.Errorf("stock item %s is %s but still references order detail %d", item.Tag, item.Status, *item.OrderDetailId)
		}
	}
	return nil
}

// StockMovement is the append-only audit ledger. Rows are written in
// the same transaction as the state change they record and are never
// updated or deleted afterwards.
type StockMovement struct {
	ID          int               `gorm:"primary_key" json:"id"`
	StockItemId int               `gorm:"index;not null" json:"stock_item_id"`
	ProductId   int               `gorm:"index;not null" json:"product_id"`
	Type        StockMovementType `gorm:"type:enum('Purchase','Sale','Return','Exchange','Damage');not null" json:"type"`
	FromStatus  StockItemStatus   `gorm:"size:20;default:null" json:"from_status"`
	ToStatus    StockItemStatus   `gorm:"size:20;not null" json:"to_status"`
	OrderId     *int              `gorm:"index;default:null" json:"order_id"`
	Reference   string            `gorm:"size:100;default:null" json:"reference"`
	Notes       string            `gorm:"size:255;default:null" json:"notes"`
	CreatedBy   string            `gorm:"size:100;default:null" json:"created_by"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	return ErrStockMovementImmutable
}

func (m *StockMovement) BeforeDelete(tx *gorm.DB) error {
	return ErrStockMovementImmutable
}

// StockTagSequence backs tag generation: one row per product, bumped
// under a row lock so tags are unique and monotonic per product even
// under concurrent receipts.
type StockTagSequence struct {
	ProductId int `gorm:"primary_key" json:"product_id"`
	LastSeq   int `gorm:"not null;default:0" json:"last_seq"`
}

// NextStockTags reserves n consecutive sequence numbers for a product
// and returns the formatted tags. Must run inside a transaction; the
// FOR UPDATE row lock serializes concurrent receivers of the same
// product.
func NextStockTags(tx *gorm.DB, product *Product, n int) ([]string, error) {
	var seq StockTagSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", product.ID).
		First(&seq).Error
	if err == gorm.ErrRecordNotFound {
		seq = StockTagSequence{ProductId: product.ID, LastSeq: 0}
		if err := tx.Create(&seq).Error; err != nil {
			return nil, err
		}
		// Re-acquire under lock; another receiver may have created the
		// row first.
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", product.ID).
			First(&seq).Error
	}
	if err != nil {
		return nil, err
	}

	prefix := product.HUIDPrefix
	if prefix == "" {
		prefix = fmt.Sprintf("P%04d", product.ID)
	}

	tags := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		tags = append(tags, fmt.Sprintf("%s-%06d", prefix, seq.LastSeq+i))
	}
	if err := tx.Model(&seq).Update("last_seq", seq.LastSeq+n).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func GetStockItem(ctx context.Context, id int) (*StockItem, error) {
	return utils.FetchModel[StockItem](ctx, id)
}

func GetStockItemByTag(ctx context.Context, tag string) (*StockItem, error) {
	db := config.GetDB()
	var item StockItem
	err := db.WithContext(ctx).Where("tag = ?", tag).First(&item).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &item, nil
}

func GetStockItems(ctx context.Context, productId *int, status *StockItemStatus) ([]*StockItem, error) {
	db := config.GetDB()
	var results []*StockItem

	dbCtx := db.WithContext(ctx)
	if productId != nil {
		dbCtx = dbCtx.Where("product_id = ?", *productId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// AvailableCount returns how many sellable units exist for a product.
func AvailableCount(ctx context.Context, productId int) (int64, error) {
	return utils.ResourceCountWhere[StockItem](ctx, "product_id = ? AND status = ?", productId, StockItemStatusAvailable)
}

func GetStockMovements(ctx context.Context, stockItemId *int, orderId *int) ([]*StockMovement, error) {
	db := config.GetDB()
	var results []*StockMovement

	dbCtx := db.WithContext(ctx)
	if stockItemId != nil {
		dbCtx = dbCtx.Where("stock_item_id = ?", *stockItemId)
	}
	if orderId != nil {
		dbCtx = dbCtx.Where("order_id = ?", *orderId)
	}
	err := dbCtx.Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetStockLot(ctx context.Context, id int) (*Stock, error) {
	return utils.FetchModel[Stock](ctx, id, "Items")
}

func GetStockLots(ctx context.Context, productId *int) ([]*Stock, error) {
	db := config.GetDB()
	var results []*Stock

	dbCtx := db.WithContext(ctx)
	if productId != nil {
		dbCtx = dbCtx.Where("product_id = ?", *productId)
	}
	err := dbCtx.Preload("Items").Order("received_date").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
