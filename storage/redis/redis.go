// Package redis implements the save/load collaborator: entity records are
// persisted as JSON under namespaced keys so a game session can be
// snapshotted and restored.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agrifun/agrifun/codec"
	"github.com/agrifun/agrifun/types"
)

var ErrEntityRecordNotFound = eris.New("entity record not found")

type Options = redis.Options

type Storage struct {
	Namespace string
	Client    *redis.Client
	tracer    trace.Tracer
}

func NewRedisStorage(options Options, namespace string) Storage {
	return Storage{
		Namespace: namespace,
		Client:    redis.NewClient(&options),
		tracer:    otel.Tracer("redis"),
	}
}

// entityKey maps an entity ID to the key its serialized record lives under.
func (r *Storage) entityKey(id types.EntityID) string {
	return fmt.Sprintf("%s:ENTITY:%s", r.Namespace, id)
}

func (r *Storage) entityKeyPrefix() string {
	return fmt.Sprintf("%s:ENTITY:", r.Namespace)
}

// SaveEntity persists one serialized entity record.
func (r *Storage) SaveEntity(ctx context.Context, rec types.EntityRecord) error {
	bz, err := codec.Encode(rec)
	if err != nil {
		return eris.Wrapf(err, "failed to encode entity %q", rec.EntityID)
	}
	return eris.Wrap(r.Client.Set(ctx, r.entityKey(rec.EntityID), bz, 0).Err(), "")
}

// LoadEntity fetches one serialized entity record.
func (r *Storage) LoadEntity(ctx context.Context, id types.EntityID) (types.EntityRecord, error) {
	bz, err := r.Client.Get(ctx, r.entityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.EntityRecord{}, eris.Wrapf(ErrEntityRecordNotFound, "entity %q", id)
		}
		return types.EntityRecord{}, eris.Wrap(err, "")
	}
	return codec.Decode[types.EntityRecord](bz)
}

// DeleteEntity removes one persisted record. Deleting a missing record is
// not an error.
func (r *Storage) DeleteEntity(ctx context.Context, id types.EntityID) error {
	return eris.Wrap(r.Client.Del(ctx, r.entityKey(id)).Err(), "")
}

// EntityIDs lists every entity ID with a persisted record.
func (r *Storage) EntityIDs(ctx context.Context) ([]types.EntityID, error) {
	keys, err := r.Client.Keys(ctx, r.entityKeyPrefix()+"*").Result()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	prefix := r.entityKeyPrefix()
	ids := make([]types.EntityID, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, types.EntityID(strings.TrimPrefix(key, prefix)))
	}
	return ids, nil
}

// SaveSnapshot persists a batch of entity records in one atomic
// transaction.
func (r *Storage) SaveSnapshot(ctx context.Context, recs []types.EntityRecord) (err error) {
	ctx, span := r.tracer.Start(ctx, "redis.snapshot.save")
	defer span.End()

	pipeline := r.Client.TxPipeline()
	for _, rec := range recs {
		bz, encErr := codec.Encode(rec)
		if encErr != nil {
			err = eris.Wrapf(encErr, "failed to encode entity %q", rec.EntityID)
			span.SetStatus(codes.Error, eris.ToString(err, true))
			span.RecordError(err)
			return err
		}
		pipeline.Set(ctx, r.entityKey(rec.EntityID), bz, 0)
	}
	if _, execErr := pipeline.Exec(ctx); execErr != nil {
		err = eris.Wrap(execErr, "")
		span.SetStatus(codes.Error, eris.ToString(err, true))
		span.RecordError(err)
		return err
	}
	return nil
}

// LoadSnapshot fetches every persisted entity record.
func (r *Storage) LoadSnapshot(ctx context.Context) ([]types.EntityRecord, error) {
	ids, err := r.EntityIDs(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]types.EntityRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.LoadEntity(ctx, id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Clear removes every persisted record in this namespace.
func (r *Storage) Clear(ctx context.Context) error {
	ids, err := r.EntityIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.DeleteEntity(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Storage) Close() error {
	return eris.Wrap(r.Client.Close(), "")
}
