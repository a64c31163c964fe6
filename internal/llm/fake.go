package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"codescout/internal/mcp"
)

// Phases used by the analysis pipeline.
const (
	PhaseAnalysis    = "analysis"
	PhaseAnalysisSub = "analysis_sub"
)

var (
	reListedFile   = regexp.MustCompile(`(?m)^- (\S+)$`)
	reNumberedLine = regexp.MustCompile(`(?m)^(\d+):  `)
)

// FakeConverser returns deterministic, minimal answers per phase for offline
// runs and tests. In the top-level phase it delegates the first MaxFiles
// listed files to the first tool and echoes the tool results as the report.
type FakeConverser struct {
	MaxFiles int
}

func NewFakeConverser(maxFiles int) *FakeConverser {
	if maxFiles <= 0 {
		maxFiles = 3
	}
	return &FakeConverser{MaxFiles: maxFiles}
}

func (f *FakeConverser) Name() string { return "FakeLLM" }

func (f *FakeConverser) Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, schema json.RawMessage) (json.RawMessage, error) {
	switch PhaseFrom(ctx) {
	case PhaseAnalysisSub:
		return f.sub(prompt)
	default:
		return f.top(ctx, prompt, tools)
	}
}

func (f *FakeConverser) sub(prompt string) (json.RawMessage, error) {
	lines := reNumberedLine.FindAllStringSubmatch(prompt, -1)
	last := "1"
	if len(lines) > 0 {
		last = lines[len(lines)-1][1]
	}
	return json.Marshal(map[string]any{
		"feature_analysis": []map[string]string{{
			"feature_description": "whole file",
			"function":            "(file)",
			"lines":               "1-" + last,
		}},
	})
}

type fakeSubResult struct {
	CodePath        string `json:"code_path"`
	FeatureAnalysis []struct {
		FeatureDescription string `json:"feature_description"`
		Function           string `json:"function"`
		Lines              string `json:"lines"`
	} `json:"feature_analysis"`
}

func (f *FakeConverser) top(ctx context.Context, prompt string, tools mcp.ToolProvider) (json.RawMessage, error) {
	type location struct {
		FilePath string `json:"file_path"`
		Function string `json:"function"`
		Lines    string `json:"lines"`
	}
	type feature struct {
		FeatureDescription string     `json:"feature_description"`
		Locations          []location `json:"implementation_location"`
	}
	report := struct {
		FeatureAnalysis []feature `json:"feature_analysis"`
		Plan            string    `json:"execution_plan_suggestion"`
	}{FeatureAnalysis: []feature{}, Plan: "fake plan"}

	if !mcp.HasTools(tools) {
		return json.Marshal(report)
	}
	var focus []map[string]string
	for _, m := range reListedFile.FindAllStringSubmatch(prompt, -1) {
		if len(focus) >= f.MaxFiles {
			break
		}
		focus = append(focus, map[string]string{"focus_feature": "overview", "code_path": m[1]})
	}
	if focus == nil {
		focus = []map[string]string{}
	}
	in, err := json.Marshal(map[string]any{"focus_file_list": focus})
	if err != nil {
		return nil, err
	}
	spec := tools.Specs()[0]
	out, err := tools.Call(ctx, spec.Name, in)
	if err != nil {
		return nil, fmt.Errorf("fake: tool %s: %w", spec.Name, err)
	}
	var results []fakeSubResult
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("fake: decode tool output: %w", err)
	}
	var paths []string
	for _, r := range results {
		feat := feature{FeatureDescription: "overview of " + r.CodePath, Locations: []location{}}
		for _, fa := range r.FeatureAnalysis {
			feat.Locations = append(feat.Locations, location{FilePath: r.CodePath, Function: fa.Function, Lines: fa.Lines})
		}
		report.FeatureAnalysis = append(report.FeatureAnalysis, feat)
		paths = append(paths, r.CodePath)
	}
	if len(paths) > 0 {
		report.Plan = "start with " + strings.Join(paths, ", ")
	}
	return json.Marshal(report)
}
