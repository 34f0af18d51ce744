package cache

import (
	"context"
	"fmt"
)

// GetAs returns the value stored under key decoded as T.
func GetAs[T any](c *Cache, key string, opts ...Option) (T, bool, error) {
	var v T
	ok, err := c.Get(key, &v, opts...)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

// GetOrLoad returns the cached value for key or calls load and stores its
// result. Concurrent misses for the same key share one load.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	if v, ok, err := GetAs[T](c, key, opts...); err == nil && ok {
		return v, nil
	}

	res, err, _ := c.loads.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(key, v, opts...); err != nil {
			c.logger.Warn("Failed to cache loaded value", "key", key, "error", err)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("cache: loaded value for %s has unexpected type %T", key, res)
	}
	return v, nil
}
