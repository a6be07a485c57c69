package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBackend stores thumbnails on disk under a root that the HTTP server
// exposes at /files.
type LocalBackend struct {
	root    string
	baseURL string
}

// NewLocalBackend stores objects under root. baseURL is prefixed to the
// /files/<path> URLs it returns and may be empty for relative URLs.
func NewLocalBackend(root, baseURL string) (*LocalBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: local root is empty", ErrBucketNotInitialized)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", root, err)
	}
	return &LocalBackend{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) resolve(p string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, p)
	}
	return filepath.Join(b.root, clean), nil
}

func (b *LocalBackend) url(p string) string {
	return b.baseURL + "/files/" + strings.TrimLeft(filepath.ToSlash(p), "/")
}

func (b *LocalBackend) Stat(_ context.Context, p string) (string, bool, error) {
	full, err := b.resolve(p)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, nil
	}
	return b.url(p), true, nil
}

func (b *LocalBackend) Put(_ context.Context, p string, data []byte, _ string) (string, error) {
	full, err := b.resolve(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	// write-then-rename so readers never see a partial file
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return b.url(p), nil
}

func (b *LocalBackend) List(_ context.Context, prefix string, limit int) ([]Object, error) {
	dir, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Object
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Object{
			Path:      prefix + "/" + e.Name(),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *LocalBackend) Delete(_ context.Context, p string) error {
	full, err := b.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (b *LocalBackend) Check(_ context.Context) error {
	info, err := os.Stat(b.root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBucketNotInitialized, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrBucketNotInitialized, b.root)
	}
	return nil
}
