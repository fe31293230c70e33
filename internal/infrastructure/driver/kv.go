package driver

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotExist returned by Get when the key is missing or expired
var ErrKeyNotExist = errors.New("key does not exist")

// KeyValueDB define a key-value storage interface
type KeyValueDB interface {
	SetEX(ctx context.Context, key string, value string, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
