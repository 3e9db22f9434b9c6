package redis

import (
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "huddle:"

// Option configures the Redis adapters.
type Option func(*options)

type options struct {
	prefix      string
	snapshotTTL time.Duration
}

func newOptions(opts []Option) options {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithSnapshotTTL expires room snapshots that stop being refreshed.
// Zero (the default) keeps them until the activity ends.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.snapshotTTL = ttl
	}
}

// Connect creates a client for the given server.
func Connect(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}
