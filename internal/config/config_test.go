package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "UPLOAD_DIR", "LLM_PROVIDER", "LLM_MODEL", "GROQ_API_KEY", "LLM_TOOL_MODE", "LLM_MAX_TURNS", "ANALYSIS_TIMEOUT", "MANIFEST_IGNORE_DIRS", "MAX_EXTRACT_BYTES", "ARCHIVE_S3_ENDPOINT"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, ":3000", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "file_upload", cfg.UploadDir)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, ToolModeNative, cfg.LLM.ToolMode)
	assert.Equal(t, 32, cfg.LLM.MaxTurns)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.Equal(t, []string{".git", "__MACOSX", "node_modules"}, cfg.Manifest.IgnoreDirs)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, int64(512<<20), cfg.MaxExtractBytes)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("LLM_PROVIDER", "FAKE")
	t.Setenv("LLM_TOOL_MODE", "Envelope")
	t.Setenv("LLM_RPS", "0.5")
	t.Setenv("ANALYSIS_TIMEOUT", "90s")
	t.Setenv("MANIFEST_IGNORE_DIRS", "vendor, dist ,")
	t.Setenv("ARCHIVE_S3_ENDPOINT", "minio:9000")
	t.Setenv("ARCHIVE_S3_USE_SSL", "false")
	t.Setenv("MAX_EXTRACT_BYTES", "1048576")

	cfg := FromEnv()

	assert.Equal(t, ":8088", cfg.Port)
	assert.Equal(t, ProviderFake, cfg.LLM.Provider)
	assert.Equal(t, ToolModeEnvelope, cfg.LLM.ToolMode)
	assert.InDelta(t, 0.5, cfg.LLM.RPS, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"vendor", "dist"}, cfg.Manifest.IgnoreDirs)
	assert.True(t, cfg.Archive.Enabled)
	assert.False(t, cfg.Archive.UseSSL)
	assert.Equal(t, int64(1<<20), cfg.MaxExtractBytes)
}

func TestIgnoreDirsCanBeDisabled(t *testing.T) {
	t.Setenv("MANIFEST_IGNORE_DIRS", "-")
	assert.Nil(t, FromEnv().Manifest.IgnoreDirs)
}

func TestGroqProviderDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("GROQ_API_KEY", " gsk-test ")

	cfg := FromEnv()

	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, "gsk-test", cfg.LLM.GroqAPIKey)
}

func TestNormalizePort(t *testing.T) {
	assert.Equal(t, ":8080", NormalizePort("8080"))
	assert.Equal(t, ":8080", NormalizePort(":8080"))
	assert.Equal(t, "127.0.0.1:8080", NormalizePort(" 127.0.0.1:8080 "))
}
