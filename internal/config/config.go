package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	UploadDir   string
	TemplateDir string
	Timeout     time.Duration

	LLM      LLMConfig
	Manifest ManifestConfig
	Archive  ArchiveStoreConfig

	FileCacheEntries int
	MaxFileBytes     int64
	// MaxExtractBytes caps the uncompressed size of one uploaded archive.
	MaxExtractBytes int64
}

type LLMConfig struct {
	Provider   string // gemini | groq | fake
	APIKey     string // Gemini
	GroqAPIKey string
	Model      string
	ToolMode   string // native | envelope; Groq always uses envelope
	MaxTurns   int
	RPS        float64
	Burst      int
}

type ManifestConfig struct {
	IgnoreDirs []string
}

// ArchiveStoreConfig points at an S3-compatible bucket that archives can be
// fetched from by key. Disabled when Endpoint is empty.
type ArchiveStoreConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

const (
	ToolModeNative   = "native"
	ToolModeEnvelope = "envelope"

	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderFake   = "fake"
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() *Config {
	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	provider := normalizeProvider(os.Getenv("LLM_PROVIDER"))
	defaultModel := "gemini-2.5-flash"
	if provider == ProviderGroq {
		defaultModel = "llama-3.3-70b-versatile"
	}
	return &Config{
		Port:        NormalizePort(firstNonEmpty(strings.TrimSpace(os.Getenv("PORT")), "3000")),
		Env:         env,
		UploadDir:   firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_DIR")), "file_upload"),
		TemplateDir: strings.TrimSpace(os.Getenv("PROMPT_TEMPLATE_DIR")),
		Timeout:     envDuration("ANALYSIS_TIMEOUT", 10*time.Minute),
		LLM: LLMConfig{
			Provider:   provider,
			APIKey:     firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
			GroqAPIKey: strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			Model:      firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_MODEL")), defaultModel),
			ToolMode:   normalizeToolMode(os.Getenv("LLM_TOOL_MODE")),
			MaxTurns:   envInt("LLM_MAX_TURNS", 32),
			RPS:        envFloat("LLM_RPS", 0),
			Burst:      envInt("LLM_BURST", 0),
		},
		Manifest: ManifestConfig{
			IgnoreDirs: envList("MANIFEST_IGNORE_DIRS", []string{".git", "__MACOSX", "node_modules"}),
		},
		Archive:          loadArchiveStoreConfig(),
		FileCacheEntries: envInt("FILE_CACHE_ENTRIES", 256),
		MaxFileBytes:     int64(envInt("MAX_FILE_BYTES", 1<<20)),
		MaxExtractBytes:  int64(envInt("MAX_EXTRACT_BYTES", 512<<20)),
	}
}

func loadArchiveStoreConfig() ArchiveStoreConfig {
	endpoint := strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT"))
	return ArchiveStoreConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "codescout-archives"),
		UseSSL:    envBool("ARCHIVE_S3_USE_SSL", true),
	}
}

// NormalizePort turns "8080" into ":8080" and leaves host:port forms alone.
func NormalizePort(p string) string {
	p = strings.TrimSpace(p)
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func normalizeToolMode(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), ToolModeEnvelope) {
		return ToolModeEnvelope
	}
	return ToolModeNative
}

func normalizeProvider(raw string) string {
	switch p := strings.ToLower(strings.TrimSpace(raw)); p {
	case ProviderFake, ProviderGroq:
		return p
	}
	return ProviderGemini
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// envList splits a comma-separated value. An explicitly empty value ("-")
// disables the default list.
func envList(key string, def []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	if strings.TrimSpace(raw) == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
