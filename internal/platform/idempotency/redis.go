package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "idempotency:"

// RedisOption customises the RedisStore behaviour.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key prefix used for idempotency records.
func WithKeyPrefix(prefix string) RedisOption {
	return func(store *RedisStore) {
		if prefix != "" {
			store.prefix = prefix
		}
	}
}

// RedisStore implements Store backed by Redis. Record expiry is delegated to
// Redis key TTLs, so CleanupExpired is a no-op.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

// NewRedisStore constructs a Redis-backed idempotency store.
func NewRedisStore(client *goredis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *RedisStore) recordKey(key string) string {
	return s.prefix + storageKey(key)
}

// Reserve ensures the key is uniquely associated with the fingerprint and returns any stored response.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	pending := redisRecord{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      string(StatusPending),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	payload, err := json.Marshal(pending)
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: encode record: %w", err)
	}

	id := s.recordKey(key)
	ok, err := s.client.SetNX(ctx, id, payload, ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: reserve key: %w", err)
	}
	if ok {
		return Reservation{State: ReservationStateNew, Record: pending.toRecord()}, nil
	}

	data, err := s.client.Get(ctx, id).Bytes()
	if errors.Is(err, goredis.Nil) {
		// Record expired between SetNX and Get, claim it now.
		if err := s.client.Set(ctx, id, payload, ttl).Err(); err != nil {
			return Reservation{}, fmt.Errorf("idempotency: reserve key: %w", err)
		}
		return Reservation{State: ReservationStateNew, Record: pending.toRecord()}, nil
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: load record: %w", err)
	}

	var record redisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return Reservation{}, fmt.Errorf("idempotency: decode record: %w", err)
	}
	if record.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if record.Status == string(StatusCompleted) {
		return Reservation{State: ReservationStateCompleted, Record: record.toRecord()}, nil
	}
	return Reservation{State: ReservationStatePending, Record: record.toRecord()}, nil
}

// SaveResponse persists the completed HTTP response associated with the key.
func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	id := s.recordKey(key)
	record := redisRecord{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      string(StatusCompleted),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	data, err := s.client.Get(ctx, id).Bytes()
	if err == nil {
		var existing redisRecord
		if decodeErr := json.Unmarshal(data, &existing); decodeErr == nil {
			if existing.Fingerprint != fingerprint {
				return ErrFingerprintMismatch
			}
			if !existing.CreatedAt.IsZero() {
				record.CreatedAt = existing.CreatedAt
			}
		}
	} else if !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("idempotency: load record: %w", err)
	}

	record.ResponseStatus = resp.Status
	record.ResponseHeaders = sanitizeHeaders(resp.Headers)
	if len(resp.Body) > 0 {
		record.ResponseBody = append([]byte(nil), resp.Body...)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("idempotency: encode record: %w", err)
	}
	if err := s.client.Set(ctx, id, payload, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: save response: %w", err)
	}
	return nil
}

// CleanupExpired is a no-op because Redis evicts records via key TTLs.
func (s *RedisStore) CleanupExpired(_ context.Context, _ time.Time, _ int) (int, error) {
	return 0, nil
}

// Release removes the reservation to allow callers to retry.
func (s *RedisStore) Release(ctx context.Context, key, fingerprint string) error {
	if err := s.client.Del(ctx, s.recordKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release key: %w", err)
	}
	return nil
}

type redisRecord struct {
	Key             string              `json:"key"`
	Fingerprint     string              `json:"fingerprint"`
	Status          string              `json:"status"`
	ResponseStatus  int                 `json:"response_status,omitempty"`
	ResponseHeaders map[string][]string `json:"response_headers,omitempty"`
	ResponseBody    []byte              `json:"response_body,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	ExpiresAt       time.Time           `json:"expires_at"`
}

func (r redisRecord) toRecord() Record {
	return Record{
		Key:             r.Key,
		Fingerprint:     r.Fingerprint,
		Status:          Status(r.Status),
		ResponseStatus:  r.ResponseStatus,
		ResponseHeaders: r.ResponseHeaders,
		ResponseBody:    r.ResponseBody,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ExpiresAt:       r.ExpiresAt,
	}
}
