package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// genTTL 代数 key 的存活时间，需远大于任何条目 TTL
const genTTL = 24 * time.Hour

// 仅当代数未变时写回；代数 key 不存在视为 "0"
var setIfGen = redis.NewScript(`
local g = redis.call('GET', KEYS[2]) or '0'
if g ~= ARGV[2] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

type Cache struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{RDB: rdb}
}

func (c *Cache) key(k string) string { return c.Prefix + k }

func (c *Cache) genKey(k string) string { return c.Prefix + k + ":gen" }

// generation 读当前代数；ok=false 表示 redis 不可用，此时不写回
func (c *Cache) generation(ctx context.Context, key string) (string, bool) {
	g, err := c.RDB.Get(ctx, c.genKey(key)).Result()
	switch {
	case err == nil:
		return g, true
	case errors.Is(err, redis.Nil):
		return "0", true
	default:
		return "", false
	}
}

// GetOrLoad 读缓存；未命中时 singleflight 合并回源并写回。redis 故障不影响回源结果。
// 回源前记下 key 的代数，回源期间若被 Invalidate 过则放弃写回。ttl<=0 不写回
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	k := c.key(key)
	if b, err := c.RDB.Get(ctx, k).Bytes(); err == nil {
		return b, nil
	}
	v, err, _ := c.sf.Do(k, func() (any, error) {
		gen, ok := c.generation(ctx, key)
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if ok && ttl > 0 {
			_ = setIfGen.Run(ctx, c.RDB, []string{k, c.genKey(key)}, b, gen, ttl.Milliseconds()).Err()
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 递增代数并删除 key；调用方一般忽略错误（TTL 兜底）
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, c.genKey(k))
			p.Expire(ctx, c.genKey(k), genTTL)
			p.Del(ctx, c.key(k))
		}
		return nil
	})
	return err
}

func (c *Cache) Close() error { return c.RDB.Close() }
