package models

import (
	"context"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
)

type Supplier struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name" binding:"required"`
	ContactPerson string    `gorm:"size:100;default:null" json:"contact_person"`
	Phone         string    `gorm:"size:20;index" json:"phone"`
	Email         string    `gorm:"size:100;default:null" json:"email"`
	Address       string    `gorm:"type:text;default:null" json:"address"`
	GSTIN         string    `gorm:"size:20;default:null" json:"gstin"`
	Notes         string    `gorm:"type:text;default:null" json:"notes"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name          string `json:"name" binding:"required" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address"`
	GSTIN         string `json:"gstin"`
	Notes         string `json:"notes"`
}

func (input *NewSupplier) validate(ctx context.Context, id int) error {
	if errs := ValidateStruct(input); len(errs) > 0 {
		return errs[0]
	}
	if err := utils.ValidatePhoneNumber(input.Phone, "IN"); err != nil {
		return err
	}
	return utils.ValidateUnique[Supplier](ctx, "name", input.Name, id)
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	supplier := Supplier{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
		GSTIN:         input.GSTIN,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&supplier).Updates(map[string]interface{}{
		"Name":          input.Name,
		"ContactPerson": input.ContactPerson,
		"Phone":         input.Phone,
		"Email":         input.Email,
		"Address":       input.Address,
		"GSTIN":         input.GSTIN,
		"Notes":         input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {

	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[PurchaseOrder](ctx, "supplier_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSupplierHasPurchases
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	return utils.FetchModel[Supplier](ctx, id)
}

func GetSuppliers(ctx context.Context, name *string) ([]*Supplier, error) {
	db := config.GetDB()
	var results []*Supplier

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
