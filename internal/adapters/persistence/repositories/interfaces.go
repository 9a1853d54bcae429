package repositories

import "context"

// StorageRepository is the persistent key/value storage behind the session
// store. Values are grouped by namespace, one namespace per device.
type StorageRepository interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// SetMany writes all values or none
	SetMany(ctx context.Context, namespace string, values map[string]string) error
	Delete(ctx context.Context, namespace string, keys ...string) error
	Ping(ctx context.Context) error
}
