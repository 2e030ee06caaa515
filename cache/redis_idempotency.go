package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"inventory-backend/models"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// entry is the JSON form of a record; models.IdempotencyKey hides the body
// from JSON.
type entry struct {
	RequestHash    string     `json:"request_hash"`
	Method         string     `json:"method"`
	Path           string     `json:"path"`
	UserID         string     `json:"user_id"`
	ResponseStatus int        `json:"response_status"`
	ResponseBody   []byte     `json:"response_body,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (e entry) record(key string) *models.IdempotencyKey {
	return &models.IdempotencyKey{
		Key:            key,
		RequestHash:    e.RequestHash,
		Method:         e.Method,
		Path:           e.Path,
		UserID:         e.UserID,
		ResponseStatus: e.ResponseStatus,
		ResponseBody:   e.ResponseBody,
		CreatedAt:      e.CreatedAt,
		CompletedAt:    e.CompletedAt,
	}
}

// IdempotencyStore keeps Idempotency-Key records in redis with a 24h TTL.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyKeyTTL}
}

func (r *IdempotencyStore) Reserve(ctx context.Context, rec *models.IdempotencyKey) (*models.IdempotencyKey, bool, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry{
		RequestHash: rec.RequestHash,
		Method:      rec.Method,
		Path:        rec.Path,
		UserID:      rec.UserID,
		CreatedAt:   rec.CreatedAt,
	})
	if err != nil {
		return nil, false, err
	}

	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+rec.Key, payload, r.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		stored := *rec
		stored.ResponseStatus = 0
		return &stored, true, nil
	}

	existing, err := r.load(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	return existing.record(rec.Key), false, nil
}

func (r *IdempotencyStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	existing, err := r.load(ctx, key)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	existing.ResponseStatus = status
	existing.ResponseBody = body
	existing.CompletedAt = &now

	payload, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, idempotencyKeyPrefix+key, payload, redis.KeepTTL).Err()
}

func (r *IdempotencyStore) Release(ctx context.Context, key string) error {
	existing, err := r.load(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ResponseStatus != 0 {
		return nil
	}
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *IdempotencyStore) load(ctx context.Context, key string) (entry, error) {
	var e entry
	raw, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(raw, &e)
	return e, err
}
