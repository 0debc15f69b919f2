package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kapu/discord-dispatch-bot/internal/constants"
	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisBusyStore keeps busy flags in Redis so that several bot processes
// share one view of in-flight interactions.
type RedisBusyStore struct {
	client redis.Cmdable
	close  func() error
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisBusyStore(cfg RedisConfig, logger *zap.Logger) (*RedisBusyStore, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   constants.RedisConfig.MaxRetries,
		DialTimeout:  constants.RedisConfig.DialTimeout,
		ReadTimeout:  constants.RedisConfig.ReadTimeout,
		WriteTimeout: constants.RedisConfig.WriteTimeout,
		PoolSize:     constants.RedisConfig.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.RedisConfig.ReadyTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", addr),
		zap.Int("db", cfg.DB),
	)

	store := newRedisBusyStore(client, cfg, logger)
	store.close = client.Close
	return store, nil
}

func newRedisBusyStore(client redis.Cmdable, cfg RedisConfig, logger *zap.Logger) *RedisBusyStore {
	return &RedisBusyStore{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

func (s *RedisBusyStore) IsBusy(ctx context.Context, key string) (bool, error) {
	err := s.client.Get(ctx, s.prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		s.logger.Error("Busy lookup failed", zap.String("key", key), zap.Error(err))
		return false, apperrors.NewCacheError("get failed", "get", key, err)
	}
	return true, nil
}

// SetBusy stores the flag with the configured expiry; a zero ttl never
// expires. Clearing deletes the key.
func (s *RedisBusyStore) SetBusy(ctx context.Context, key string, busy bool) error {
	if !busy {
		if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
			s.logger.Error("Busy release failed", zap.String("key", key), zap.Error(err))
			return apperrors.NewCacheError("delete failed", "del", key, err)
		}
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+key, "1", s.ttl).Err(); err != nil {
		s.logger.Error("Busy acquire failed", zap.String("key", key), zap.Error(err))
		return apperrors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (s *RedisBusyStore) Close() error {
	if s.close == nil {
		return nil
	}
	if err := s.close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	s.logger.Info("Redis connection closed")
	return nil
}
