package employees

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// EmployeeCacheMemory is an in process EmployeeCacheInterface
type EmployeeCacheMemory struct {
	Cache *lru.Cache
}

// NewEmployeeCacheMemory initializes a new EmployeeCacheMemory
func NewEmployeeCacheMemory() (*EmployeeCacheMemory, error) {
	cache, err := lru.New(100)
	if err != nil {
		return nil, err
	}

	return &EmployeeCacheMemory{Cache: cache}, nil
}

// Add adds an employee to the cache
func (c *EmployeeCacheMemory) Add(_ context.Context, key string, employee *Employee) error {
	_ = c.Cache.Add(key, employee)
	return nil
}

// Invalidate removes an employee from the cache
func (c *EmployeeCacheMemory) Invalidate(_ context.Context, key string) error {
	c.Cache.Remove(key)
	return nil
}

// Get retrieves an employee from the cache
func (c *EmployeeCacheMemory) Get(_ context.Context, key string) (*Employee, error) {
	result, ok := c.Cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("could not find key %s in employee cache", key)
	}

	employee, ok := result.(*Employee)
	if !ok {
		return nil, fmt.Errorf("cache entry was not an employee")
	}

	return employee, nil
}
