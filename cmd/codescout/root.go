package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codescout/internal/analysis"
	"codescout/internal/archive"
	"codescout/internal/config"
	"codescout/internal/llm"
	"codescout/internal/llmclient"
	"codescout/internal/llmtool"
	"codescout/internal/logging"
	"codescout/internal/prompt"
)

var rootCmd = &cobra.Command{
	Use:   "codescout",
	Short: "Map a problem description onto the code of a repository",
	Long: `codescout reads a repository archive and a problem description and reports
which features matter, where they are implemented (file, function, lines),
and how to proceed.

It runs as an HTTP service (serve), an MCP stdio server (mcp), or a one-shot
command (analyze).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

// app is the wired service graph shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	service *analysis.Service
}

var modelOverride string

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if modelOverride != "" {
		cfg.LLM.Model = modelOverride
	}
	logging.Init()
	log := logging.L()

	prompts, err := prompt.LoadDefault(cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}
	conv, err := buildConverser(ctx, cfg.LLM, log)
	if err != nil {
		return nil, err
	}
	orch := analysis.NewOrchestrator(conv, prompts, analysis.Options{
		Logger:           log,
		IgnoreDirs:       cfg.Manifest.IgnoreDirs,
		MaxFileBytes:     cfg.MaxFileBytes,
		FileCacheEntries: cfg.FileCacheEntries,
	})
	svc := analysis.NewService(orch, newExtractor(cfg, log))
	log.Info("codescout ready",
		zap.String("env", cfg.Env),
		zap.String("llm", conv.Name()),
		zap.String("tool_mode", cfg.LLM.ToolMode))
	return &app{cfg: cfg, log: log, service: svc}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelOverride, "model", "", "model name (overrides LLM_MODEL)")
}

func newExtractor(cfg *config.Config, log *zap.Logger) *archive.ZipExtractor {
	return &archive.ZipExtractor{MaxTotalBytes: cfg.MaxExtractBytes, Logger: log}
}

// buildConverser picks the reasoning backend and decorates it as
// hooks -> rate limit -> logging -> backend.
func buildConverser(ctx context.Context, c config.LLMConfig, log *zap.Logger) (llm.Converser, error) {
	var base llm.Converser
	switch c.Provider {
	case config.ProviderFake:
		base = llm.NewFakeConverser(0)
	case config.ProviderGroq:
		g, err := llmclient.NewGroqClient(c.GroqAPIKey, c.Model)
		if err != nil {
			return nil, err
		}
		base = llmtool.NewConverser(g, c.MaxTurns)
	default:
		g, err := llmclient.NewGeminiClient(ctx, c.APIKey, c.Model, c.MaxTurns)
		if err != nil {
			return nil, err
		}
		if c.ToolMode == config.ToolModeEnvelope {
			base = llmtool.NewConverser(g, c.MaxTurns)
		} else {
			base = g
		}
	}
	return llm.Wrap(base,
		llm.WithHooks(),
		llm.RateLimit(c.RPS, c.Burst),
		llm.WithLogging(log),
	), nil
}
