package models

import (
	"context"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
)

// Setting is a shop-level key/value preference (shop name, invoice
// footer, default HUID prefix, ...). Pricing and tax rules are NOT
// settings; they live in RateMaster and the totals calculator.
type Setting struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Key       string    `gorm:"size:100;not null;uniqueIndex" json:"key" binding:"required"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetSetting(ctx context.Context, key string) (string, error) {
	db := config.GetDB()
	var setting Setting
	err := db.WithContext(ctx).Where("`key` = ?", key).First(&setting).Error
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// UpsertSetting writes a setting, inserting or overwriting by key.
func UpsertSetting(ctx context.Context, key string, value string) (*Setting, error) {
	db := config.GetDB()
	var setting Setting
	err := db.WithContext(ctx).Where("`key` = ?", key).First(&setting).Error
	if err != nil {
		setting = Setting{Key: key, Value: value}
		if err := db.WithContext(ctx).Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	}
	if err := db.WithContext(ctx).Model(&setting).Update("value", value).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func GetSettings(ctx context.Context) ([]*Setting, error) {
	db := config.GetDB()
	var results []*Setting
	if err := db.WithContext(ctx).Order("`key`").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
