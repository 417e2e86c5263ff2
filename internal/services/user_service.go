/**
 * @description
 * User Service for the user-collection query.
 * Reads go through a short-lived Redis cache; change events published for
 * the user collection drop the cache, so subscribers recompute fresh.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9
 * - backend/internal/models
 */

package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	CacheKeyUsers = "users:all"
	UsersCacheTTL = 30 * time.Second
)

// UserService handles reads over the user collection
type UserService struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB, rdb *redis.Client) *UserService {
	return &UserService{
		db:    db,
		redis: rdb,
	}
}

// ListUsers returns the full user collection, cache-first
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	cached, err := getFromCache[[]models.User](ctx, s.redis, CacheKeyUsers)
	if err != nil {
		logger.Error("UserService: cache error: %v", err)
	}
	if cached != nil {
		return *cached, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	if err := setInCache(ctx, s.redis, CacheKeyUsers, users, UsersCacheTTL); err != nil {
		logger.Error("UserService: failed to cache users: %v", err)
	}

	return users, nil
}

// getFromCache attempts to get data from Redis cache
func getFromCache[T any](ctx context.Context, rdb *redis.Client, key string) (*T, error) {
	if rdb == nil {
		return nil, nil
	}

	data, err := rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// setInCache stores data in Redis cache with TTL
func setInCache(ctx context.Context, rdb *redis.Client, key string, data interface{}, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return rdb.Set(ctx, key, jsonData, ttl).Err()
}
