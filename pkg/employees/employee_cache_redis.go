package employees

import (
	"context"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
)

// EmployeeCacheRedis is an EmployeeCacheInterface shared between instances
type EmployeeCacheRedis struct {
	Cache *cache.Cache
}

// NewEmployeeCacheRedis initializes a new EmployeeCacheRedis
func NewEmployeeCacheRedis(redisClient *redis.Client) *EmployeeCacheRedis {
	redisCache := cache.New(&cache.Options{
		Redis: redisClient,
	})

	return &EmployeeCacheRedis{Cache: redisCache}
}

// Add adds an employee
func (c *EmployeeCacheRedis) Add(ctx context.Context, key string, employee *Employee) error {
	err := c.Cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: employee,
		TTL:   time.Minute * 10,
	})
	if err != nil {
		return err
	}

	return nil
}

// Invalidate invalidates an entry
func (c *EmployeeCacheRedis) Invalidate(ctx context.Context, key string) error {
	err := c.Cache.Delete(ctx, key)
	if err != nil {
		return err
	}

	return nil
}

// Get retrieves an employee
func (c *EmployeeCacheRedis) Get(ctx context.Context, key string) (*Employee, error) {
	result := Employee{}
	err := c.Cache.Get(ctx, key, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}
