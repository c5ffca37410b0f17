package agrifun

import (
	redisstore "github.com/agrifun/agrifun/storage/redis"
)

// WorldOption augments world creation.
type WorldOption func(*World)

// WithSnapshotStorage replaces the environment-configured snapshot store.
// Tests use this to point the world at a miniredis instance.
func WithSnapshotStorage(store *redisstore.Storage) WorldOption {
	return func(w *World) {
		w.snapshots = store
	}
}
