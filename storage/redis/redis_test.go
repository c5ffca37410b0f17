package redis_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/agrifun/agrifun/assert"
	redisstore "github.com/agrifun/agrifun/storage/redis"
	"github.com/agrifun/agrifun/types"
)

func newStorageForTest(t *testing.T) redisstore.Storage {
	t.Helper()
	s := miniredis.RunT(t)
	return redisstore.NewRedisStorage(redisstore.Options{Addr: s.Addr()}, "test")
}

func record(id types.EntityID) types.EntityRecord {
	return types.EntityRecord{
		EntityID: id,
		Components: map[string]json.RawMessage{
			"transform": json.RawMessage(`{"x":1,"y":2}`),
			"employee":  json.RawMessage(`{"first_name":"Jo"}`),
		},
	}
}

func TestSaveAndLoadEntity(t *testing.T) {
	storage := newStorageForTest(t)
	ctx := context.Background()

	rec := record("plot-1")
	assert.NilError(t, storage.SaveEntity(ctx, rec))

	got, err := storage.LoadEntity(ctx, "plot-1")
	assert.NilError(t, err)
	assert.Equal(t, rec.EntityID, got.EntityID)
	assert.DeepEqual(t, rec.Components, got.Components)
}

func TestLoadMissingEntity(t *testing.T) {
	storage := newStorageForTest(t)
	_, err := storage.LoadEntity(context.Background(), "missing")
	assert.ErrorIs(t, err, redisstore.ErrEntityRecordNotFound)
}

func TestDeleteEntity(t *testing.T) {
	storage := newStorageForTest(t)
	ctx := context.Background()

	assert.NilError(t, storage.SaveEntity(ctx, record("plot-1")))
	assert.NilError(t, storage.DeleteEntity(ctx, "plot-1"))
	_, err := storage.LoadEntity(ctx, "plot-1")
	assert.ErrorIs(t, err, redisstore.ErrEntityRecordNotFound)

	// Deleting again is not an error.
	assert.NilError(t, storage.DeleteEntity(ctx, "plot-1"))
}

func TestEntityIDsListsPersistedRecords(t *testing.T) {
	storage := newStorageForTest(t)
	ctx := context.Background()

	ids, err := storage.EntityIDs(ctx)
	assert.NilError(t, err)
	assert.Len(t, ids, 0)

	assert.NilError(t, storage.SaveEntity(ctx, record("plot-1")))
	assert.NilError(t, storage.SaveEntity(ctx, record("plot-2")))

	ids, err = storage.EntityIDs(ctx)
	assert.NilError(t, err)
	assert.ElementsMatch(t, []types.EntityID{"plot-1", "plot-2"}, ids)
}

func TestSnapshotRoundTrip(t *testing.T) {
	storage := newStorageForTest(t)
	ctx := context.Background()

	recs := []types.EntityRecord{record("plot-1"), record("plot-2"), record("plot-3")}
	assert.NilError(t, storage.SaveSnapshot(ctx, recs))

	got, err := storage.LoadSnapshot(ctx)
	assert.NilError(t, err)
	assert.Len(t, got, 3)

	gotIDs := make([]types.EntityID, 0, len(got))
	for _, rec := range got {
		gotIDs = append(gotIDs, rec.EntityID)
	}
	assert.ElementsMatch(t, []types.EntityID{"plot-1", "plot-2", "plot-3"}, gotIDs)
}

func TestClearRemovesOnlyThisNamespace(t *testing.T) {
	s := miniredis.RunT(t)
	farm := redisstore.NewRedisStorage(redisstore.Options{Addr: s.Addr()}, "farm")
	town := redisstore.NewRedisStorage(redisstore.Options{Addr: s.Addr()}, "town")
	ctx := context.Background()

	assert.NilError(t, farm.SaveEntity(ctx, record("plot-1")))
	assert.NilError(t, town.SaveEntity(ctx, record("shop-1")))

	assert.NilError(t, farm.Clear(ctx))

	ids, err := farm.EntityIDs(ctx)
	assert.NilError(t, err)
	assert.Len(t, ids, 0)

	ids, err = town.EntityIDs(ctx)
	assert.NilError(t, err)
	assert.ElementsMatch(t, []types.EntityID{"shop-1"}, ids)
}
