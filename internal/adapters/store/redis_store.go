package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/repositories"
	redisclient "github.com/zatekoja/foodinspector/internal/infrastructure/clients/redis"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
)

// RedisEstablishmentStore keeps all identities in one hash, one field per identity key
type RedisEstablishmentStore struct {
	client  *redisclient.Client
	hashKey string
	metrics *observability.Metrics
}

// NewRedisEstablishmentStore creates a Redis-backed establishment store
func NewRedisEstablishmentStore(client *redisclient.Client, hashKey string, metrics *observability.Metrics) repositories.EstablishmentRepository {
	if hashKey == "" {
		hashKey = "establishments"
	}
	return &RedisEstablishmentStore{
		client:  client,
		hashKey: hashKey,
		metrics: metrics,
	}
}

// Upsert writes each identity under its key, overwriting previous values.
// Entries whose fields are unchanged are left as stored.
func (s *RedisEstablishmentStore) Upsert(ctx context.Context, establishments []entities.Establishment) (int, error) {
	start := time.Now()
	defer func() { observability.RecordStoreMetric(ctx, s.metrics, "redis", "upsert", time.Since(start)) }()

	if err := s.client.Ping(ctx); err != nil {
		return 0, apperrors.NewStoreUnavailableError("redis establishment store unreachable", err)
	}

	logger := observability.LoggerFromContext(ctx)
	now := time.Now().UTC()
	written := 0
	for _, e := range establishments {
		key := e.Key()
		if key == "" {
			logger.Warn().
				Str("program_identifier", e.ProgramIdentifier).
				Str("city", e.City).
				Msg("Skipping establishment without identifier or city")
			continue
		}

		same, err := s.unchanged(ctx, key, e)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to read establishment")
			continue
		}
		if same {
			written++
			continue
		}

		e.UpdatedAt = now
		payload, err := json.Marshal(e)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Skipping establishment that could not be encoded")
			continue
		}

		if err := s.client.Client().HSet(ctx, s.hashKey, key, payload).Err(); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to write establishment")
			continue
		}
		written++
	}

	return written, nil
}

// unchanged reports whether the stored entry under key already matches e
func (s *RedisEstablishmentStore) unchanged(ctx context.Context, key string, e entities.Establishment) (bool, error) {
	raw, err := s.client.Client().HGet(ctx, s.hashKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var existing entities.Establishment
	if err := json.Unmarshal(raw, &existing); err != nil {
		// Unreadable entries are overwritten
		return false, nil
	}
	return existing.SameContent(e), nil
}

// ListAll returns every stored identity ordered by key
func (s *RedisEstablishmentStore) ListAll(ctx context.Context) ([]entities.Establishment, error) {
	start := time.Now()
	defer func() { observability.RecordStoreMetric(ctx, s.metrics, "redis", "list", time.Since(start)) }()

	fields, err := s.client.Client().HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("redis establishment store unreachable", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	logger := observability.LoggerFromContext(ctx)
	establishments := make([]entities.Establishment, 0, len(keys))
	for _, k := range keys {
		var e entities.Establishment
		if err := json.Unmarshal([]byte(fields[k]), &e); err != nil {
			logger.Warn().Err(err).Str("key", k).Msg("Skipping unreadable establishment entry")
			continue
		}
		establishments = append(establishments, e)
	}

	return establishments, nil
}
