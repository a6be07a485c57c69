package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"newslk/internal/logger"

	"github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"
)

type SupabaseConfig struct {
	URL        string
	ServiceKey string
	Bucket     string
	// Public buckets hand out stable public URLs; private buckets get
	// signed URLs valid for CacheSeconds.
	Public       bool
	CacheSeconds int
	AppEnv       string
}

// SupabaseBackend stores thumbnails in a Supabase storage bucket.
type SupabaseBackend struct {
	cfg    SupabaseConfig
	client *supabase.Client
	http   *http.Client
	log    *logger.Logger
}

func NewSupabaseBackend(cfg SupabaseConfig) (*SupabaseBackend, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: supabase url, service key and bucket are required", ErrBucketNotInitialized)
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &SupabaseBackend{
		cfg:    cfg,
		client: client,
		http:   &http.Client{Timeout: 15 * time.Second},
		log:    logger.New("SupabaseStorage"),
	}, nil
}

func (b *SupabaseBackend) Name() string { return "supabase" }

// Stat issues a HEAD against the storage REST API with the service key,
// which works for public and private buckets alike.
func (b *SupabaseBackend) Stat(ctx context.Context, p string) (string, bool, error) {
	objURL := fmt.Sprintf("%s/storage/v1/object/authenticated/%s/%s", b.cfg.URL, b.cfg.Bucket, p)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, objURL, nil)
	if err != nil {
		return "", false, err
	}
	b.authorize(req)

	resp, err := b.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("stat %s: %w", p, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		url, err := b.objectURL(ctx, p)
		if err != nil {
			return "", false, err
		}
		return url, true, nil
	// storage answers 400 with an embedded 404 for missing objects
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("stat %s: status %d", p, resp.StatusCode)
	}
}

func (b *SupabaseBackend) Put(ctx context.Context, p string, data []byte, contentType string) (string, error) {
	upsert := true
	cacheControl := CacheControl(b.cfg.CacheSeconds)
	_, err := b.client.Storage.UploadFile(b.cfg.Bucket, p, bytes.NewReader(data), storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return "", classifySupabaseError(err)
	}
	return b.objectURL(ctx, p)
}

func (b *SupabaseBackend) List(_ context.Context, prefix string, limit int) ([]Object, error) {
	const page = 100
	var out []Object
	for offset := 0; ; offset += page {
		files, err := b.client.Storage.ListFiles(b.cfg.Bucket, prefix, storage_go.FileSearchOptions{
			Limit:  page,
			Offset: offset,
		})
		if err != nil {
			return nil, classifySupabaseError(err)
		}
		for _, f := range files {
			if f.Name == "" || strings.HasPrefix(f.Name, ".") {
				continue
			}
			out = append(out, Object{Path: prefix + "/" + f.Name})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if len(files) < page {
			return out, nil
		}
	}
}

func (b *SupabaseBackend) Delete(_ context.Context, p string) error {
	if _, err := b.client.Storage.RemoveFile(b.cfg.Bucket, []string{p}); err != nil {
		return classifySupabaseError(err)
	}
	return nil
}

func (b *SupabaseBackend) Check(_ context.Context) error {
	if _, err := b.client.Storage.GetBucket(b.cfg.Bucket); err != nil {
		return classifySupabaseError(err)
	}
	return nil
}

func (b *SupabaseBackend) objectURL(ctx context.Context, p string) (string, error) {
	if b.cfg.Public {
		return b.client.Storage.GetPublicUrl(b.cfg.Bucket, p).SignedURL, nil
	}
	return b.signedURL(ctx, p, b.cfg.CacheSeconds)
}

func (b *SupabaseBackend) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.cfg.ServiceKey)
	req.Header.Set("apikey", b.cfg.ServiceKey)
}

// signedURL signs an object through the REST API directly so the request
// carries fresh service-key headers.
func (b *SupabaseBackend) signedURL(ctx context.Context, p string, expiresIn int) (string, error) {
	signURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", b.cfg.URL, b.cfg.Bucket, p)
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(map[string]int{"expiresIn": expiresIn}); err != nil {
		return "", fmt.Errorf("failed to encode sign body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signURL, buf)
	if err != nil {
		return "", fmt.Errorf("failed to build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	b.authorize(req)

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request signed URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: bucket %s", ErrBucketNotInitialized, b.cfg.Bucket)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to create signed URL: status %d", resp.StatusCode)
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("failed to decode signed URL response: %w", err)
	}

	path := signed.SignedURL
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasPrefix(path, "/storage/v1/") {
		path = "/storage/v1" + path
	}
	finalURL := b.cfg.URL + path
	if b.cfg.AppEnv == "local" || b.cfg.AppEnv == "development" {
		finalURL = strings.Replace(finalURL, "host.docker.internal", "127.0.0.1", 1)
	}
	b.log.LogDebugf("Signed %s for %ds", p, expiresIn)
	return finalURL, nil
}

// CacheControl is the Cache-Control value attached to uploaded thumbnails.
func CacheControl(seconds int) string {
	if seconds <= 0 {
		seconds = 2592000
	}
	return "public, max-age=" + strconv.Itoa(seconds)
}

func classifySupabaseError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "bucket not found") || strings.Contains(msg, "invalid jwt") {
		return fmt.Errorf("%w: %v", ErrBucketNotInitialized, err)
	}
	return err
}
