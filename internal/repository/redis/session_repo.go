package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	UserTokenPrefix = "login:person:token"
	UserTokenExpire = 30 * time.Minute
)

// SessionRepository 单点登录：每个用户只保留最后一次登录的 access token
type SessionRepository struct {
	rdb *redis.Client
}

func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

func (r *SessionRepository) key(personID uint64) string {
	return fmt.Sprintf("%s:%d", UserTokenPrefix, personID)
}

func (r *SessionRepository) AddToken(ctx context.Context, personID uint64, token string) error {
	if err := r.rdb.Set(ctx, r.key(personID), token, UserTokenExpire).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

func (r *SessionRepository) GetToken(ctx context.Context, personID uint64) (string, error) {
	token, err := r.rdb.Get(ctx, r.key(personID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return token, nil
}

// ExtendToken 校验通过后续期
func (r *SessionRepository) ExtendToken(ctx context.Context, personID uint64) error {
	return r.rdb.Expire(ctx, r.key(personID), UserTokenExpire).Err()
}

func (r *SessionRepository) DeleteToken(ctx context.Context, personID uint64) error {
	return r.rdb.Del(ctx, r.key(personID)).Err()
}
