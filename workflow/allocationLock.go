package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireProductAllocationLock serializes stock allocation per product
// across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the
// same *gorm.DB that will do the allocation transaction.
func AcquireProductAllocationLock(tx *gorm.DB, productId int) error {
	lockName := fmt.Sprintf("allocation:%d", productId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire allocation lock for product_id=%d", productId)
	}
	return nil
}

func ReleaseProductAllocationLock(tx *gorm.DB, productId int) {
	lockName := fmt.Sprintf("allocation:%d", productId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
