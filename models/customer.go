package models

import (
	"context"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
)

type Customer struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone       string    `gorm:"size:20;index" json:"phone"`
	Email       string    `gorm:"size:100;default:null" json:"email"`
	Address     string    `gorm:"type:text;default:null" json:"address"`
	City        string    `gorm:"size:100;default:null" json:"city"`
	IDProofType string    `gorm:"size:50;default:null" json:"id_proof_type"`
	IDProofNo   string    `gorm:"size:50;default:null" json:"id_proof_no"`
	Notes       string    `gorm:"type:text;default:null" json:"notes"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name        string `json:"name" binding:"required" validate:"required"`
	Phone       string `json:"phone"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address"`
	City        string `json:"city"`
	IDProofType string `json:"id_proof_type"`
	IDProofNo   string `json:"id_proof_no"`
	Notes       string `json:"notes"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, id int) error {
	if errs := ValidateStruct(input); len(errs) > 0 {
		return errs[0]
	}
	if err := utils.ValidatePhoneNumber(input.Phone, "IN"); err != nil {
		return err
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		Name:        input.Name,
		Phone:       input.Phone,
		Email:       input.Email,
		Address:     input.Address,
		City:        input.City,
		IDProofType: input.IDProofType,
		IDProofNo:   input.IDProofNo,
		Notes:       input.Notes,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Phone":       input.Phone,
		"Email":       input.Email,
		"Address":     input.Address,
		"City":        input.City,
		"IDProofType": input.IDProofType,
		"IDProofNo":   input.IDProofNo,
		"Notes":       input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {

	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	// Do not delete a customer with orders on file.
	count, err := utils.ResourceCountWhere[Order](ctx, "customer_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCustomerHasOrders
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return utils.FetchModel[Customer](ctx, id)
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {
	db := config.GetDB()
	var results []*Customer

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
