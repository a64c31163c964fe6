package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"codescout/internal/analysis"
)

type fakeAnalyzer struct {
	archive, dir, problem string
	err                   error
}

func (f *fakeAnalyzer) AnalyzeArchive(_ context.Context, archivePath, problem string) (*analysis.AnalysisReport, error) {
	f.archive, f.problem = archivePath, problem
	return f.report()
}

func (f *fakeAnalyzer) AnalyzeDir(_ context.Context, dir, problem string) (*analysis.AnalysisReport, error) {
	f.dir, f.problem = dir, problem
	return f.report()
}

func (f *fakeAnalyzer) report() (*analysis.AnalysisReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.AnalysisReport{FeatureAnalysis: []analysis.Feature{}, ExecutionPlanSuggestion: "a < b"}, nil
}

func call(t *testing.T, h *handler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = ToolAnalyzeRepository
	req.Params.Arguments = args
	res, err := h.analyze(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestAnalyzeRepository(t *testing.T) {
	a := &fakeAnalyzer{}
	h := &handler{analyzer: a, log: zaptest.NewLogger(t)}

	res := call(t, h, map[string]any{"problem_description": "p", "repo_dir": "/tmp/repo"})
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"feature_analysis":[],"execution_plan_suggestion":"a < b"}`, text(t, res))
	assert.Contains(t, text(t, res), "a < b")
	assert.Equal(t, "/tmp/repo", a.dir)

	res = call(t, h, map[string]any{"problem_description": "p", "archive_path": "/tmp/repo.zip"})
	assert.False(t, res.IsError)
	assert.Equal(t, "/tmp/repo.zip", a.archive)
}

func TestAnalyzeRepository_BadArguments(t *testing.T) {
	h := &handler{analyzer: &fakeAnalyzer{}, log: zaptest.NewLogger(t)}
	for _, args := range []map[string]any{
		{"repo_dir": "/tmp/repo"},
		{"problem_description": "p"},
		{"problem_description": "p", "repo_dir": "/a", "archive_path": "/b.zip"},
	} {
		res := call(t, h, args)
		assert.True(t, res.IsError, args)
	}
}

func TestAnalyzeRepository_StageError(t *testing.T) {
	a := &fakeAnalyzer{err: &analysis.Error{Stage: analysis.StageIngestion, Err: errors.New("no such dir")}}
	h := &handler{analyzer: a, log: zaptest.NewLogger(t)}
	res := call(t, h, map[string]any{"problem_description": "p", "repo_dir": "/nope"})
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"error":{"stage":"ingestion","message":"no such dir"}}`, text(t, res))
}

func TestNew(t *testing.T) {
	s := New(&fakeAnalyzer{}, "test", 0, zaptest.NewLogger(t))
	require.NotNil(t, s)
	assert.Equal(t, ToolAnalyzeRepository, tool().Name)
	assert.Contains(t, tool().InputSchema.Required, "problem_description")
}
