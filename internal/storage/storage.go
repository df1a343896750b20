package storage

import (
	"context"
	"fmt"
	"strings"
)

// Keys used by the session engine. The names are kept stable so data written
// by earlier versions is found on load.
const (
	KeyGallery   = "qs_album_v2"
	KeyAnalysis  = "qs_analysis_v2"
	KeyAssets    = "qs_assets_v2"
	KeyHistory   = "qs_history_v2"
	KeyCropQueue = "qs_crop_queue_v2"
	KeyAPIKey    = "qs_api_key"
)

// Store is a durable key-value store for serialized session state.
// A missing key is reported with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Clear removes every key owned by this store.
	Clear(ctx context.Context) error
	// Usage reports the number of bytes held across all keys.
	Usage(ctx context.Context) (int64, error)
	Close() error
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Options struct {
	Backend string
	DataDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return NewFile(opts.DataDir)
	case BackendSQLite:
		return NewSQLite(ctx, opts.DataDir)
	case BackendRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}
