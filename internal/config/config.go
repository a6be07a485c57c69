package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	PublicBaseURL string
	RedisAddr     string
	RedisPassword string
	DataDir       string

	// Thumbnail storage
	StorageBackend         string
	ThumbnailCacheDuration int

	SupabaseURL          string
	SupabaseServiceKey   string
	SupabaseBucket       string
	SupabasePublicBucket bool

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3PublicURL string

	// Recreation pipeline
	UseImageRecreation    bool
	ImageRecreationMethod string
	RecreationCooldown    time.Duration
	ImageProviders        []string
	ReplicateAPIKey       string
	HuggingFaceAPIKey     string
	DeepAIAPIKey          string

	LLMProvider     string
	GeminiAPIKey    string
	DefaultLLMModel string
	VisionModel     string
	ImagenModel     string

	// News source
	NewsAPIBaseURL   string
	NewsAPITimeout   time.Duration
	NewsCacheTTL     int
	AICategorization bool
	WarmCron         string
	WarmLimit        int
	TaskMaxRetries   int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvDuration accepts Go durations ("1500ms") or a bare number of seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// DefaultProviders is the generation order used when IMAGE_PROVIDERS is unset:
// keyless and fast backends first, paid and slow ones last.
var DefaultProviders = []string{
	"pollinations", "deepai", "craiyon", "flux-schnell",
	"huggingface", "flux-dev", "imagen", "sdxl",
}

func Load() Config {
	// .env.local overrides .env; neither is required.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       getenv("DATA_DIR", "./data"),

		StorageBackend:         strings.ToLower(getenv("STORAGE_BACKEND", "supabase")),
		ThumbnailCacheDuration: getenvInt("THUMBNAIL_CACHE_DURATION", 2592000),

		SupabaseURL:          os.Getenv("NEXT_PUBLIC_SUPABASE_URL"),
		SupabaseServiceKey:   os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:       getenv("SUPABASE_STORAGE_BUCKET", "thumbnails"),
		SupabasePublicBucket: getenvBool("SUPABASE_PUBLIC_BUCKET", true),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    getenv("S3_BUCKET", "thumbnails"),
		S3UseSSL:    getenvBool("S3_USE_SSL", true),
		S3PublicURL: strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),

		UseImageRecreation:    getenvBool("USE_IMAGE_RECREATION", false),
		ImageRecreationMethod: getenv("IMAGE_RECREATION_METHOD", "ai-generation"),
		RecreationCooldown:    getenvDuration("RECREATION_COOLDOWN", time.Second),
		ImageProviders:        getenvList("IMAGE_PROVIDERS", DefaultProviders),
		ReplicateAPIKey:       os.Getenv("REPLICATE_API_KEY"),
		HuggingFaceAPIKey:     os.Getenv("HUGGINGFACE_API_KEY"),
		DeepAIAPIKey:          os.Getenv("DEEPAI_API_KEY"),

		LLMProvider:     getenv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		DefaultLLMModel: getenv("DEFAULT_LLM_MODEL", "gemini-1.5-flash"),
		VisionModel:     getenv("VISION_MODEL", "gemini-1.5-pro"),
		ImagenModel:     getenv("IMAGEN_MODEL", "imagen-3.0-generate-002"),

		NewsAPIBaseURL:   strings.TrimRight(getenv("NEWS_API_BASE_URL", "https://hirunews.vercel.app/api"), "/"),
		NewsAPITimeout:   getenvDuration("NEWS_API_TIMEOUT", 15*time.Second),
		NewsCacheTTL:     getenvInt("NEWS_CACHE_TTL", 300),
		AICategorization: getenvBool("AI_CATEGORIZATION", false),
		WarmCron:         getenv("WARM_CRON", "@every 15m"),
		WarmLimit:        getenvInt("WARM_LIMIT", 10),
		TaskMaxRetries:   getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	if cfg.IsProduction() && cfg.StorageBackend == "supabase" {
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" || cfg.SupabaseBucket == "" {
			panic(fmt.Errorf("supabase storage requires NEXT_PUBLIC_SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY and SUPABASE_STORAGE_BUCKET in production"))
		}
	}
	return cfg
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }

// RecreationEnabled reports whether reads should feed the recreation queue.
func (c Config) RecreationEnabled() bool {
	return c.UseImageRecreation && c.ImageRecreationMethod == "ai-generation"
}
