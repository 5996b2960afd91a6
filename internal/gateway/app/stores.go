package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	projectcache "ghimport/internal/cache/project"
	snapshotcache "ghimport/internal/cache/snapshot"
	"ghimport/internal/gateway/config"
	projectrepo "ghimport/internal/gateway/repository/project"
	"ghimport/internal/gateway/repository/snapshot"
)

type gatewayStores struct {
	projects  projectrepo.Repository
	snapshots *snapshot.Store
}

func initStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gatewayStores, error) {
	origin, err := openProjectStore(ctx, cfg.Projects, log)
	if err != nil {
		return nil, err
	}
	blobs, err := chooseSnapshotBlobs(cfg.Snapshot, log)
	if err != nil {
		_ = origin.Close()
		return nil, err
	}
	snaps, err := snapshot.NewStore(blobs)
	if err != nil {
		_ = origin.Close()
		return nil, fmt.Errorf("failed to init snapshot store: %w", err)
	}
	return &gatewayStores{
		projects:  projectcache.NewCachedStore(origin, projectcache.DefaultCacheConfig()),
		snapshots: snaps,
	}, nil
}

func openProjectStore(ctx context.Context, cfg config.ProjectStoreConfig, log *zap.Logger) (projectrepo.Repository, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		log.Info("project store: json file", zap.String("path", cfg.Path))
		return projectrepo.NewFileStore(cfg.Path), nil
	}
	store, err := projectrepo.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open project store: %w", err)
	}
	log.Info("project store: sql", zap.String("dialect", string(store.Dialect())))
	return store, nil
}

func chooseSnapshotBlobs(cfg config.SnapshotConfig, log *zap.Logger) (snapshot.Blobs, error) {
	if !cfg.CanUseS3() {
		if cfg.Enabled {
			log.Warn("snapshot store: using in-memory fallback (s3 config incomplete)")
		}
		return snapshot.NewMemoryBlobs(), nil
	}
	blobs, err := snapshot.NewS3Blobs(snapshot.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot s3 store: %w", err)
	}
	log.Info("snapshot store: s3", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))
	if cfg.CacheDir == "" {
		return blobs, nil
	}
	cached, err := snapshotcache.NewDiskBlobs(blobs, snapshotcache.DiskConfig{
		Dir:      cfg.CacheDir,
		MaxBytes: cfg.CacheMaxBytes,
		TTL:      24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot disk cache: %w", err)
	}
	log.Info("snapshot store: disk cache", zap.String("dir", cfg.CacheDir))
	return cached, nil
}
