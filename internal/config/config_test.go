package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("IMAGE_PROVIDERS", "")
	t.Setenv("RECREATION_COOLDOWN", "")
	t.Setenv("THUMBNAIL_CACHE_DURATION", "")

	cfg := Load()
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, DefaultProviders, cfg.ImageProviders)
	assert.Equal(t, time.Second, cfg.RecreationCooldown)
	assert.Equal(t, 2592000, cfg.ThumbnailCacheDuration)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IMAGE_PROVIDERS", " Pollinations, ,flux-dev ")
	t.Setenv("RECREATION_COOLDOWN", "2")
	t.Setenv("NEWS_API_TIMEOUT", "500ms")
	t.Setenv("USE_IMAGE_RECREATION", "true")
	t.Setenv("IMAGE_RECREATION_METHOD", "ai-generation")
	t.Setenv("S3_USE_SSL", "not-a-bool")

	cfg := Load()
	assert.Equal(t, []string{"pollinations", "flux-dev"}, cfg.ImageProviders)
	assert.Equal(t, 2*time.Second, cfg.RecreationCooldown)
	assert.Equal(t, 500*time.Millisecond, cfg.NewsAPITimeout)
	assert.True(t, cfg.S3UseSSL)
	assert.True(t, cfg.RecreationEnabled())
}

func TestRecreationEnabledRequiresAIMethod(t *testing.T) {
	cfg := Config{UseImageRecreation: true, ImageRecreationMethod: "overlay"}
	assert.False(t, cfg.RecreationEnabled())
}

func TestLoadProductionRequiresSupabase(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BACKEND", "supabase")
	t.Setenv("NEXT_PUBLIC_SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	require.Panics(t, func() { Load() })
}
