package models

import "time"

// IdempotencyKey provides durable, DB-backed idempotency for
// whole-operation entry points. Unique constraint: (operation, token).
// ResourceId records the document the first successful run produced so
// replays can return it instead of doing the work again.
type IdempotencyKey struct {
	ID         int               `gorm:"primary_key" json:"id"`
	Operation  string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"operation"`
	Token      string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"token"`
	Status     IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	ResourceId *int              `gorm:"default:null" json:"resource_id"`
	LastError  *string           `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
