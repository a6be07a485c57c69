package thumbnail

import (
	"fmt"
	"path/filepath"

	"newslk/internal/config"
	"newslk/internal/logger"
)

// NewBackend builds the backend named by STORAGE_BACKEND. Outside
// production a misconfigured remote backend falls back to local disk.
func NewBackend(cfg config.Config) (Backend, error) {
	log := logger.New("ThumbnailStore")

	var (
		b   Backend
		err error
	)
	switch cfg.StorageBackend {
	case "supabase":
		b, err = NewSupabaseBackend(SupabaseConfig{
			URL:          cfg.SupabaseURL,
			ServiceKey:   cfg.SupabaseServiceKey,
			Bucket:       cfg.SupabaseBucket,
			Public:       cfg.SupabasePublicBucket,
			CacheSeconds: cfg.ThumbnailCacheDuration,
			AppEnv:       cfg.AppEnv,
		})
	case "s3", "minio":
		b, err = NewS3Backend(S3Config{
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			UseSSL:       cfg.S3UseSSL,
			PublicURL:    cfg.S3PublicURL,
			CacheSeconds: cfg.ThumbnailCacheDuration,
		})
	case "local":
		return NewLocalBackend(filepath.Clean(cfg.DataDir), cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if err == nil {
		return b, nil
	}
	if cfg.IsProduction() {
		return nil, err
	}
	log.LogWarnf("%s storage unavailable (%v), using local storage under %s", cfg.StorageBackend, err, cfg.DataDir)
	return NewLocalBackend(filepath.Clean(cfg.DataDir), cfg.PublicBaseURL)
}
