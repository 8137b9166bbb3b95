package snapshot

import (
	"context"
	"encoding/json"

	snapshotv1 "github.com/muhammadchandra19/exchange-core/internal/domain/snapshot/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/redis"
)

// Store keeps the latest engine snapshot as JSON under a single Redis key.
type Store struct {
	key         string
	logger      logger.Interface
	redisclient redis.Client
}

// NewSnapshotStore creates a store writing to key.
func NewSnapshotStore(redisclient redis.Client, key string, log logger.Interface) *Store {
	return &Store{
		key:         key,
		redisclient: redisclient,
		logger:      log,
	}
}

// Store overwrites the stored snapshot.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "key", Value: s.key})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key, buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err,
			logger.Field{Key: "key", Value: s.key},
			logger.Field{Key: "command_offset", Value: snapshot.CommandOffset},
		)
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.InfoContext(ctx, "snapshot stored",
		logger.Field{Key: "key", Value: s.key},
		logger.Field{Key: "command_offset", Value: snapshot.CommandOffset},
		logger.Field{Key: "instruments", Value: len(snapshot.Instruments)},
		logger.Field{Key: "bytes", Value: len(buf)},
	)
	return nil
}

// LoadStore returns the stored snapshot, or nil when none exists.
func (s *Store) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "key", Value: s.key}, logger.Field{Key: "action", Value: "load snapshot"})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, "no snapshot found", logger.Field{Key: "key", Value: s.key})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "key", Value: s.key}, logger.Field{Key: "action", Value: "unmarshal snapshot"})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	s.logger.InfoContext(ctx, "snapshot loaded",
		logger.Field{Key: "key", Value: s.key},
		logger.Field{Key: "command_offset", Value: snapshot.CommandOffset},
	)
	return &snapshot, nil
}

var _ snapshotv1.Store = (*Store)(nil)
