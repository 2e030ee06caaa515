package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-backend/models"
)

// IdempotencyStore keeps Idempotency-Key records in the idempotency_keys
// table. Each call is its own statement, never part of the handler's unit.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve inserts rec as pending. When the key exists the stored record is
// returned with created=false. The insert skips conflicting rows instead of
// failing, so concurrent reservations of one key never error.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec *models.IdempotencyKey) (*models.IdempotencyKey, bool, error) {
	db := s.db.WithContext(ctx)
	rec.ResponseStatus = 0
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return rec, true, nil
	}

	var existing models.IdempotencyKey
	if err := db.Where(&models.IdempotencyKey{Key: rec.Key}).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where(&models.IdempotencyKey{Key: key}).
		Updates(map[string]any{
			"response_status": status,
			"response_body":   body,
			"completed_at":    &now,
		}).Error
}

// Release forgets a pending key so the client may retry it.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where(&models.IdempotencyKey{Key: key}).
		Where("response_status = ?", 0).
		Delete(&models.IdempotencyKey{}).Error
}
