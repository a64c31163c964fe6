package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"codescout/internal/fanout"
	"codescout/internal/mcp"
	"codescout/internal/util/jsonutil"
)

const (
	// ToolName is the single tool the top-level model can call.
	ToolName = "code_file_analysis"
	// FanOutLimit caps concurrent sub-analyses per tool call.
	FanOutLimit = 5
)

// delegateTool runs sub-analyses over a focus file list for one request.
type delegateTool struct {
	worker *SubWorker
	scope  *requestScope
	log    *zap.Logger
}

var _ mcp.Tool = (*delegateTool)(nil)

func (t *delegateTool) Spec() mcp.ToolSpec {
	return mcp.ToolSpec{
		Name:         ToolName,
		Description:  "Analyse the code of files related to focus features. Returns the functions and line ranges implementing each feature.",
		InputSchema:  DelegateInputSchema,
		OutputSchema: DelegateOutputSchema,
	}
}

// Call decodes the focus list, analyses every item with bounded concurrency
// and returns the successful results as a JSON array. Failed items are logged
// and left out.
func (t *delegateTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in delegateInput
	if len(input) > 0 {
		if err := jsonutil.UnmarshalFlex(input, &in); err != nil {
			return nil, fmt.Errorf("%s: decode input: %w", ToolName, err)
		}
	}
	outcomes, err := fanout.Run(ctx, in.FocusFileList, FanOutLimit,
		func(ctx context.Context, _ int, item FocusItem) (*SubAnalysisResult, error) {
			return t.worker.analyze(ctx, t.scope, item)
		})
	if err != nil {
		return nil, err
	}
	results := make([]SubAnalysisResult, 0, len(outcomes))
	for i, o := range outcomes {
		if !o.OK() || o.Value == nil {
			t.log.Warn("sub-analysis failed",
				zap.String("code_path", in.FocusFileList[i].CodePath),
				zap.String("focus_feature", in.FocusFileList[i].FocusFeature),
				zap.Error(o.Err))
			continue
		}
		results = append(results, *o.Value)
	}
	t.log.Info("sub-analysis batch done",
		zap.Int("requested", len(in.FocusFileList)),
		zap.Int("succeeded", len(results)),
		zap.Int("failed", fanout.Failures(outcomes)))
	return jsonutil.MarshalNoEscape(results)
}
