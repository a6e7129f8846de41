package models

import (
	"context"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Barcode   string    `gorm:"size:100;uniqueIndex;default:null" json:"barcode"`
	MetalType MetalType `gorm:"type:enum('Gold','Silver','Platinum','Diamond');not null" json:"metal_type" binding:"required"`
	Purity    string    `gorm:"size:20;not null" json:"purity" binding:"required"`
	// NetWeight is the metal weight billed to the customer (grams).
	NetWeight          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"net_weight"`
	GrossWeight        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_weight"`
	WastagePercentage  decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"wastage_percentage"`
	MakingCharge       decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"making_charge"`
	// CurrentPrice is a cache of the pricing formula, refreshed when the
	// rate board changes. It is never edited by hand; the formula in the
	// pricing engine is the source of truth.
	CurrentPrice decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"current_price"`
	ReorderLevel int             `gorm:"default:0" json:"reorder_level"`
	SupplierId   int             `gorm:"index;default:null" json:"supplier_id"`
	HUIDPrefix   string          `gorm:"size:20;default:null" json:"huid_prefix"`
	Description  string          `gorm:"type:text;default:null" json:"description"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name              string          `json:"name" binding:"required" validate:"required"`
	Barcode           string          `json:"barcode"`
	MetalType         MetalType       `json:"metal_type" binding:"required" validate:"required"`
	Purity            string          `json:"purity" binding:"required" validate:"required"`
	NetWeight         decimal.Decimal `json:"net_weight" binding:"required"`
	GrossWeight       decimal.Decimal `json:"gross_weight"`
	WastagePercentage decimal.Decimal `json:"wastage_percentage"`
	MakingCharge      decimal.Decimal `json:"making_charge"`
	ReorderLevel      int             `json:"reorder_level"`
	SupplierId        int             `json:"supplier_id"`
	HUIDPrefix        string          `json:"huid_prefix"`
	Description       string          `json:"description"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, id int) error {
	if errs := ValidateStruct(input); len(errs) > 0 {
		return errs[0]
	}
	if input.NetWeight.IsNegative() || input.NetWeight.IsZero() {
		return ValidationError{Field: "NetWeight", Message: "must be positive"}
	}
	if input.WastagePercentage.IsNegative() {
		return ValidationError{Field: "WastagePercentage", Message: "must not be negative"}
	}
	if input.MakingCharge.IsNegative() {
		return ValidationError{Field: "MakingCharge", Message: "must not be negative"}
	}
	if input.Barcode != "" {
		if err := utils.ValidateUnique[Product](ctx, "barcode", input.Barcode, id); err != nil {
			return err
		}
	}
	if input.SupplierId != 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, input.SupplierId); err != nil {
			return err
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	product := Product{
		Name:              input.Name,
		Barcode:           input.Barcode,
		MetalType:         input.MetalType,
		Purity:            input.Purity,
		NetWeight:         input.NetWeight,
		GrossWeight:       input.GrossWeight,
		WastagePercentage: input.WastagePercentage,
		MakingCharge:      input.MakingCharge,
		ReorderLevel:      input.ReorderLevel,
		SupplierId:        input.SupplierId,
		HUIDPrefix:        input.HUIDPrefix,
		Description:       input.Description,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// CurrentPrice is intentionally absent: only the pricing engine
	// writes it.
	err = db.WithContext(ctx).Model(&product).Updates(map[string]interface{}{
		"Name":              input.Name,
		"Barcode":           input.Barcode,
		"MetalType":         input.MetalType,
		"Purity":            input.Purity,
		"NetWeight":         input.NetWeight,
		"GrossWeight":       input.GrossWeight,
		"WastagePercentage": input.WastagePercentage,
		"MakingCharge":      input.MakingCharge,
		"ReorderLevel":      input.ReorderLevel,
		"SupplierId":        input.SupplierId,
		"HUIDPrefix":        input.HUIDPrefix,
		"Description":       input.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[StockItem](ctx, "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProductHasStock
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchModel[Product](ctx, id)
}

func GetProducts(ctx context.Context, name *string) ([]*Product, error) {
	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetProductsBelowReorderLevel lists products whose available unit count
// has fallen to or below their reorder level.
func GetProductsBelowReorderLevel(ctx context.Context) ([]*Product, error) {
	db := config.GetDB()
	var results []*Product
	err := db.WithContext(ctx).Raw(`
		SELECT p.* FROM products p
		LEFT JOIN (
			SELECT product_id, COUNT(*) AS available_count
			FROM stock_items WHERE status = 'Available'
			GROUP BY product_id
		) s ON s.product_id = p.id
		WHERE COALESCE(s.available_count, 0) <= p.reorder_level
		ORDER BY p.name`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
