package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errLoginRateLimited = errors.New("rate limit exceeded")
	errAccountLocked    = errors.New("account temporarily locked")
)

// SessionStore 保存登录限流、失败锁定与刷新令牌吊销状态。
type SessionStore interface {
	// CheckLogin 在校验密码前调用，返回 errLoginRateLimited 或 errAccountLocked 时拒绝登录。
	CheckLogin(ctx context.Context, ip, username string) error
	LoginFailed(ctx context.Context, username string) error
	LoginSucceeded(ctx context.Context, username string) error
	Revoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, until time.Time) error
}

// LoginLimits 控制登录限流与锁定。
type LoginLimits struct {
	PerHour       int
	LockThreshold int
	LockTTL       time.Duration
}

// RedisSessionStore 是 SessionStore 的 Redis 实现。
type RedisSessionStore struct {
	client redis.UniversalClient
	limits LoginLimits
	now    func() time.Time
}

func NewRedisSessionStore(client redis.UniversalClient, limits LoginLimits) *RedisSessionStore {
	return &RedisSessionStore{client: client, limits: limits, now: time.Now}
}

func loginRateKey(ip, username string, at time.Time) string {
	return fmt.Sprintf("hireloop:login:rate:%s:%s:%s", ip, username, at.UTC().Format("2006010215"))
}

func loginFailKey(username string) string { return "hireloop:login:fail:" + username }
func loginLockKey(username string) string { return "hireloop:login:lock:" + username }
func revokedKey(jti string) string        { return "hireloop:refresh:revoked:" + jti }

func (s *RedisSessionStore) CheckLogin(ctx context.Context, ip, username string) error {
	username = strings.ToLower(username)
	count, err := s.incr(ctx, loginRateKey(ip, username, s.now()), time.Hour)
	// Redis 不可用时不阻塞登录。
	if err == nil && s.limits.PerHour > 0 && count > int64(s.limits.PerHour) {
		return errLoginRateLimited
	}
	if ttl, _ := s.client.TTL(ctx, loginLockKey(username)).Result(); ttl > 0 {
		return errAccountLocked
	}
	return nil
}

func (s *RedisSessionStore) LoginFailed(ctx context.Context, username string) error {
	username = strings.ToLower(username)
	count, err := s.incr(ctx, loginFailKey(username), s.limits.LockTTL)
	if err != nil {
		return err
	}
	if s.limits.LockThreshold > 0 && count >= int64(s.limits.LockThreshold) {
		return s.client.Set(ctx, loginLockKey(username), "1", s.limits.LockTTL).Err()
	}
	return nil
}

func (s *RedisSessionStore) LoginSucceeded(ctx context.Context, username string) error {
	return s.client.Del(ctx, loginFailKey(strings.ToLower(username))).Err()
}

func (s *RedisSessionStore) Revoked(ctx context.Context, jti string) (bool, error) {
	err := s.client.Get(ctx, revokedKey(jti)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (s *RedisSessionStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.client.Set(ctx, revokedKey(jti), "revoked", ttl).Err()
}

// incr 自增计数，首次创建时设置过期时间。
func (s *RedisSessionStore) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 && ttl > 0 {
		_ = s.client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
