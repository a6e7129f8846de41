package models

import (
	"context"
	"fmt"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateMaster is one row of the shop's rate board. For a given
// (metal type, purity) at most one row is active with a validity window
// containing "now"; activating a new rate closes the previous window.
type RateMaster struct {
	ID            int             `gorm:"primary_key" json:"id"`
	MetalType     MetalType       `gorm:"type:enum('Gold','Silver','Platinum','Diamond');not null;index:idx_rate_lookup" json:"metal_type" binding:"required"`
	Purity        string          `gorm:"size:20;not null;index:idx_rate_lookup" json:"purity" binding:"required"`
	RatePerGram   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"rate_per_gram" binding:"required"`
	EffectiveDate time.Time       `gorm:"not null;index:idx_rate_lookup" json:"effective_date" binding:"required"`
	ValidUntil    *time.Time      `gorm:"default:null" json:"valid_until"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRateMaster struct {
	MetalType     MetalType       `json:"metal_type" binding:"required" validate:"required"`
	Purity        string          `json:"purity" binding:"required" validate:"required"`
	RatePerGram   decimal.Decimal `json:"rate_per_gram" binding:"required"`
	EffectiveDate time.Time       `json:"effective_date" binding:"required"`
	ValidUntil    *time.Time      `json:"valid_until"`
}

func currentRateCacheKey(metalType MetalType, purity string) string {
	return fmt.Sprintf("currentRate:%s:%s", metalType, purity)
}

func (input *NewRateMaster) validate(ctx context.Context) error {
	if errs := ValidateStruct(input); len(errs) > 0 {
		return errs[0]
	}
	if input.RatePerGram.IsNegative() || input.RatePerGram.IsZero() {
		return ValidationError{Field: "RatePerGram", Message: "must be positive"}
	}
	if input.ValidUntil != nil && !input.ValidUntil.After(input.EffectiveDate) {
		return ValidationError{Field: "ValidUntil", Message: "must be after effective date"}
	}
	return nil
}

// CreateRateMaster activates a new rate. Any open active window for the
// same (metal type, purity) is closed at the new effective date so the
// at-most-one-current invariant holds by construction.
func CreateRateMaster(ctx context.Context, input *NewRateMaster) (*RateMaster, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	rate := RateMaster{
		MetalType:     input.MetalType,
		Purity:        input.Purity,
		RatePerGram:   input.RatePerGram,
		EffectiveDate: input.EffectiveDate,
		ValidUntil:    input.ValidUntil,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&RateMaster{}).
			Where("metal_type = ? AND purity = ? AND is_active = 1", input.MetalType, input.Purity).
			Where("valid_until IS NULL OR valid_until > ?", input.EffectiveDate).
			Update("valid_until", input.EffectiveDate).Error; err != nil {
			return err
		}
		return tx.Create(&rate).Error
	})
	if err != nil {
		return nil, err
	}

	// Drop the cached rate so the next lookup sees the new board.
	_ = config.RemoveRedisKey(currentRateCacheKey(input.MetalType, input.Purity))

	return &rate, nil
}

// DeactivateRate retires a rate row without deleting it.
func DeactivateRate(ctx context.Context, id int) (*RateMaster, error) {
	rate, err := utils.FetchModel[RateMaster](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&rate).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	_ = config.RemoveRedisKey(currentRateCacheKey(rate.MetalType, rate.Purity))
	return rate, nil
}

// GetCurrentRate returns the single rate whose validity window contains
// "now" for the given metal and purity. Redis is consulted first with a
// short TTL; a miss or a cold cache falls through to the database.
// Returns RecordNotFound when no current rate exists — callers must
// surface that, never default to a stale or zero rate.
func GetCurrentRate(ctx context.Context, metalType MetalType, purity string) (*RateMaster, error) {
	cacheKey := currentRateCacheKey(metalType, purity)

	var cached RateMaster
	exists, err := config.GetRedisObject(cacheKey, &cached)
	if err == nil && exists {
		return &cached, nil
	}

	now := time.Now().UTC()
	db := config.GetDB()
	var rate RateMaster
	err = db.WithContext(ctx).
		Where("metal_type = ? AND purity = ? AND is_active = 1", metalType, purity).
		Where("effective_date <= ?", now).
		Where("valid_until IS NULL OR valid_until > ?", now).
		Order("effective_date DESC").
		First(&rate).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	_ = config.SetRedisObject(cacheKey, &rate, 5*time.Minute)

	return &rate, nil
}

func GetRates(ctx context.Context, metalType *MetalType) ([]*RateMaster, error) {
	db := config.GetDB()
	var results []*RateMaster

	dbCtx := db.WithContext(ctx)
	if metalType != nil {
		dbCtx = dbCtx.Where("metal_type = ?", *metalType)
	}
	err := dbCtx.Order("effective_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
