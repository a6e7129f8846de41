package workflow

import (
	"errors"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// A STARTED row older than this is presumed abandoned (crashed worker)
// and may be reclaimed by a new attempt.
const idempotencyReclaimAfter = 5 * time.Minute

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// BeginIdempotency inserts STARTED for (operation, token). If a
// SUCCEEDED row exists, returns (true, resourceId, nil) meaning "skip
// safely and hand back the original result". A concurrent STARTED row
// younger than five minutes asks the caller to retry later; a stale or
// FAILED row is reclaimed for this attempt.
func BeginIdempotency(tx *gorm.DB, operation, token string) (skip bool, resourceId *int, err error) {
	key := models.IdempotencyKey{
		Operation: operation,
		Token:     token,
		Status:    models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return false, nil, nil
	} else if !isDuplicateKeyErr(err) {
		return false, nil, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("operation = ? AND token = ?", operation, token).
		First(&existing).Error; err != nil {
		return false, nil, err
	}

	skip, resourceId, reclaim, err := resolveIdempotencyConflict(&existing, time.Now())
	if err != nil || !reclaim {
		return skip, resourceId, err
	}

	// Reclaim under a status guard: if another transaction flipped the
	// row between our read and this update, it owns the attempt.
	result := tx.Model(&models.IdempotencyKey{}).
		Where("id = ? AND status = ?", existing.ID, existing.Status).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil})
	if result.Error != nil {
		return false, nil, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil, ErrIdempotencyInProgress
	}
	return false, nil, nil
}

// resolveIdempotencyConflict decides what an attempt finding an
// existing (operation, token) row should do: replay the recorded
// result, back off while another attempt runs, or reclaim an abandoned
// or failed row.
func resolveIdempotencyConflict(existing *models.IdempotencyKey, now time.Time) (skip bool, resourceId *int, reclaim bool, err error) {
	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return true, existing.ResourceId, false, nil
	case models.IdempotencyStatusStarted:
		if now.Sub(existing.UpdatedAt) < idempotencyReclaimAfter {
			return false, nil, false, ErrIdempotencyInProgress
		}
		return false, nil, true, nil
	default:
		return false, nil, true, nil
	}
}

func MarkIdempotencySucceeded(tx *gorm.DB, operation, token string, resourceId int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("operation = ? AND token = ?", operation, token).
		Updates(map[string]interface{}{
			"status":      models.IdempotencyStatusSucceeded,
			"resource_id": resourceId,
			"last_error":  nil,
		}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, operation, token string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("operation = ? AND token = ?", operation, token).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
