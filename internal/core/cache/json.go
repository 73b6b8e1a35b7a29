package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON GetOrLoad 的 JSON 版本。load 出错时不缓存；
// 缓存里的值解不开（结构变更后的旧条目）就删掉并直接回源
func GetOrLoadJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err == nil {
		return out, nil
	}
	_ = c.Invalidate(ctx, key)
	return load(ctx)
}
