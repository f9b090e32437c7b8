package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock 基于 Redis SETNX 的下单去重锁。
// 每次加锁生成独立 token，释放/延期通过 Lua 脚本比对 token，
// 保证锁过期后被其他实例抢走时不会误删他人的锁。
type RedisLock struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string // key -> 本实例持有的 token
}

// NewRedisLock 创建 Redis 锁
func NewRedisLock(client *redis.Client, prefix string) *RedisLock {
	return &RedisLock{
		client: client,
		prefix: prefix,
		tokens: make(map[string]string),
	}
}

// generateToken 每把锁独立的随机 token
func generateToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Lock 获取锁，每 100ms 重试一次，直到成功或 ctx 取消
func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) error {
	lockKey := r.prefix + key
	token := generateToken()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
			if err != nil {
				return fmt.Errorf("redis setnx failed: %w", err)
			}
			if ok {
				r.remember(key, token)
				return nil
			}
		}
	}
}

// TryLock 尝试获取锁，立即返回
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := r.prefix + key
	token := generateToken()

	ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		r.remember(key, token)
	}
	return ok, nil
}

// Unlock 释放锁，仅当锁仍由本实例持有时生效
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	token, exists := r.heldToken(key)
	if !exists {
		return fmt.Errorf("lock not held: %s", key)
	}

	// Lua 保证"比对 token + 删除"原子完成
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{r.prefix + key}, token).Result()
	if err != nil {
		return fmt.Errorf("redis eval failed: %w", err)
	}
	if result.(int64) == 0 {
		r.forget(key)
		return fmt.Errorf("lock not held or expired: %s", key)
	}

	r.forget(key)
	return nil
}

// Extend 延长锁的过期时间，仅当锁仍由本实例持有时生效
func (r *RedisLock) Extend(ctx context.Context, key string, ttl time.Duration) error {
	token, exists := r.heldToken(key)
	if !exists {
		return fmt.Errorf("lock not held: %s", key)
	}

	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("expire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{r.prefix + key}, token, int(ttl.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("redis eval failed: %w", err)
	}
	if result.(int64) == 0 {
		return fmt.Errorf("lock not held or expired: %s", key)
	}
	return nil
}

// Close 关闭 Redis 连接
func (r *RedisLock) Close() error {
	return r.client.Close()
}

// Ping 检查 Redis 连通性
func (r *RedisLock) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisLock) remember(key, token string) {
	r.mu.Lock()
	r.tokens[key] = token
	r.mu.Unlock()
}

func (r *RedisLock) heldToken(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[key]
	return token, ok
}

func (r *RedisLock) forget(key string) {
	r.mu.Lock()
	delete(r.tokens, key)
	r.mu.Unlock()
}
