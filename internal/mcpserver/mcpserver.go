// Package mcpserver exposes the analysis pipeline as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"codescout/internal/analysis"
	"codescout/internal/logging"
	"codescout/internal/util/jsonutil"
)

const ToolAnalyzeRepository = "analyze_repository"

// Analyzer is the subset of analysis.Service the tool needs.
type Analyzer interface {
	AnalyzeArchive(ctx context.Context, archivePath, problem string) (*analysis.AnalysisReport, error)
	AnalyzeDir(ctx context.Context, dir, problem string) (*analysis.AnalysisReport, error)
}

type handler struct {
	analyzer Analyzer
	timeout  time.Duration
	log      *zap.Logger
}

// New builds an MCP server with the analyze_repository tool registered.
func New(a Analyzer, version string, timeout time.Duration, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer("codescout", version, server.WithToolCapabilities(true))
	h := &handler{analyzer: a, timeout: timeout, log: logging.OrNop(logger)}
	s.AddTool(tool(), h.analyze)
	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func tool() mcp.Tool {
	return mcp.NewTool(ToolAnalyzeRepository,
		mcp.WithDescription("Map the features needed to solve a problem onto functions and line ranges of a repository, plus an execution plan."),
		mcp.WithString("problem_description", mcp.Required(), mcp.Description("The problem to solve, in natural language.")),
		mcp.WithString("archive_path", mcp.Description("Path to a zip archive of the repository.")),
		mcp.WithString("repo_dir", mcp.Description("Path to an already extracted repository directory.")),
	)
}

func (h *handler) analyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	problem, err := req.RequireString("problem_description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	archivePath := strings.TrimSpace(req.GetString("archive_path", ""))
	repoDir := strings.TrimSpace(req.GetString("repo_dir", ""))
	if (archivePath == "") == (repoDir == "") {
		return mcp.NewToolResultError("exactly one of archive_path or repo_dir is required"), nil
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	var report *analysis.AnalysisReport
	if archivePath != "" {
		report, err = h.analyzer.AnalyzeArchive(ctx, archivePath, problem)
	} else {
		report, err = h.analyzer.AnalyzeDir(ctx, repoDir, problem)
	}
	if err != nil {
		h.log.Warn("analyze_repository failed", zap.Error(err))
		return mcp.NewToolResultError(errorText(err)), nil
	}
	out, err := jsonutil.MarshalNoEscape(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorText(err error) string {
	var ae *analysis.Error
	if errors.As(err, &ae) {
		if b, mErr := json.Marshal(ae); mErr == nil {
			return string(b)
		}
	}
	return err.Error()
}
