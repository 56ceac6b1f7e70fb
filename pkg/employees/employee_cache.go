package employees

import "context"

// EmployeeCacheInterface caches employee profiles, keyed by email. Rate
// snapshot lookups hit this on every timesheet edit, so profiles are not
// fetched from the database each time.
type EmployeeCacheInterface interface {
	Add(ctx context.Context, key string, employee *Employee) error
	Invalidate(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*Employee, error)
}
