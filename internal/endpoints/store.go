// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/google/renameio/v2"
	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot is returned by Store.Load when nothing was persisted yet.
var ErrNoSnapshot = errors.New("endpoints: no persisted snapshot")

// Store persists the last known-good list so a restart can serve requests
// before the first refresh completes.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

type storedSnapshot struct {
	Endpoints []string  `json:"endpoints"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(storedSnapshot{
		Endpoints: s.List.Strings(),
		Source:    s.Source,
		UpdatedAt: s.UpdatedAt.UTC(),
	})
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var st storedSnapshot
	if err := json.Unmarshal(data, &st); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	list := Normalize(st.Endpoints)
	if len(list) == 0 {
		return Snapshot{}, ErrEmptyList
	}
	return Snapshot{List: list, Source: st.Source, UpdatedAt: st.UpdatedAt}, nil
}

// FileStore keeps the snapshot in a JSON file replaced atomically on save.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(context.Context) (Snapshot, error) {
	// #nosec G304 -- snapshot path comes from operator config
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending snapshot file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			vglog.FromContext(ctx).Debug().Err(err).Msg("cleanup pending snapshot file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace snapshot: %w", err)
	}
	return nil
}

// DefaultRedisKey is where RedisStore keeps the snapshot.
const DefaultRedisKey = "vidgate:endpoints:snapshot"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore shares the snapshot between replicas through Redis.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger := vglog.WithComponent("endpoints")
	logger.Info().
		Str(vglog.FieldEvent, "endpoints.redis_connected").
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis snapshot store")

	return newRedisStore(client, cfg.Key), nil
}

func newRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis get snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
