package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FlagKeyPrefix 令牌有效性标记 key 前缀
const FlagKeyPrefix = "token:login:token:"

// FlagStore 令牌标记存储；Get 不存在时 ok=false
type FlagStore interface {
	Set(ctx context.Context, token, flag string, ttl time.Duration) error
	Get(ctx context.Context, token string) (flag string, ok bool, err error)
	Del(ctx context.Context, token string) error
}

type RedisFlags struct {
	rdb redis.Cmdable
}

func NewRedisFlags(rdb redis.Cmdable) *RedisFlags { return &RedisFlags{rdb: rdb} }

func flagKey(token string) string { return FlagKeyPrefix + token }

func (r *RedisFlags) Set(ctx context.Context, token, flag string, ttl time.Duration) error {
	return r.rdb.Set(ctx, flagKey(token), flag, ttl).Err()
}

func (r *RedisFlags) Get(ctx context.Context, token string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, flagKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisFlags) Del(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, flagKey(token)).Err()
}

// MemFlags 进程内实现，未配置 Redis 或测试时使用；TTL 惰性检查
type MemFlags struct {
	mu  sync.Mutex
	m   map[string]memFlag
	now func() time.Time
}

type memFlag struct {
	v   string
	exp time.Time
}

func NewMemFlags() *MemFlags {
	return &MemFlags{m: make(map[string]memFlag), now: time.Now}
}

func (f *MemFlags) Set(_ context.Context, token, flag string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = f.now().Add(ttl)
	}
	f.m[token] = memFlag{v: flag, exp: exp}
	return nil
}

func (f *MemFlags) Get(_ context.Context, token string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.m[token]
	if !ok {
		return "", false, nil
	}
	if !e.exp.IsZero() && !f.now().Before(e.exp) {
		delete(f.m, token)
		return "", false, nil
	}
	return e.v, true, nil
}

func (f *MemFlags) Del(_ context.Context, token string) error {
	f.mu.Lock()
	delete(f.m, token)
	f.mu.Unlock()
	return nil
}
