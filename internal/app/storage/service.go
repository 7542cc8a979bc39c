package storage

import (
	"context"
	"fmt"

	"erlobby/internal/app/db"
	"erlobby/internal/pkg/logx"
)

// ServiceConfig selects and configures the persistence backend.
type ServiceConfig struct {
	// DataDir holds the JSON snapshot files and is where legacy files are looked up.
	DataDir string

	// DatabaseDSN, when set, selects the PostgreSQL backend instead of JSON files.
	DatabaseDSN string

	// S3, when BucketName is set, mirrors every snapshot to an S3-compatible bucket.
	S3 S3Config

	// ReadOnly opens the JSON file store without touching DataDir. It has no effect on PostgreSQL.
	ReadOnly bool
}

// Open builds the Store described by cfg.
func Open(ctx context.Context, cfg ServiceConfig) (Store, error) {
	var store Store

	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		store = NewPostgresStore(pool)
		logx.Info("Using PostgreSQL store")
	} else if cfg.ReadOnly {
		store = NewReadOnlyFileStore(cfg.DataDir)
		logx.Info("Using read-only JSON file store", "dir", cfg.DataDir)
	} else {
		fileStore, err := NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		store = fileStore
		logx.Info("Using JSON file store", "dir", cfg.DataDir)
	}

	if cfg.S3.BucketName == "" {
		return store, nil
	}

	uploader, err := NewS3Uploader(ctx, cfg.S3)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("opening S3 mirror: %w", err)
	}

	logx.Info("Mirroring snapshots to S3", "bucket", cfg.S3.BucketName, "prefix", cfg.S3.Prefix)
	return NewMirror(store, uploader, cfg.S3.BucketName, cfg.S3.Prefix), nil
}
