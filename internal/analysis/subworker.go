package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"codescout/internal/llm"
	"codescout/internal/manifest"
	"codescout/internal/prompt"
	"codescout/internal/safeio"
	"codescout/internal/util/jsonutil"
)

// SubInput is everything one sub-analysis needs.
type SubInput struct {
	RepoStructure      string
	ProblemDescription string
	FocusFeature       string
	CodeRootDir        string
	CodePath           string
}

// SubWorker analyses one file for one focus feature with a tool-less model call.
type SubWorker struct {
	LLM          llm.Converser
	Prompts      *prompt.Registry
	MaxFileBytes int64
}

// requestScope is the state of one analysis request that the delegate tool and
// its sub-analyses work against. Nothing in it outlives the request.
type requestScope struct {
	problem   string
	structure string
	manifest  *manifest.Entry
	fs        fileReader
	files     *lru.Cache[string, string]
	// loads collapses concurrent reads of one path into a single read.
	loads singleflight.Group
}

type fileReader interface {
	ReadFile(path string, maxBytes int64) ([]byte, error)
}

// Analyze runs a standalone sub-analysis rooted at in.CodeRootDir.
func (w *SubWorker) Analyze(ctx context.Context, in SubInput) (*SubAnalysisResult, error) {
	fsys, err := safeio.NewSafeFS(in.CodeRootDir)
	if err != nil {
		return nil, err
	}
	sc := &requestScope{
		problem:   in.ProblemDescription,
		structure: in.RepoStructure,
		fs:        fsys,
	}
	return w.analyze(ctx, sc, FocusItem{FocusFeature: in.FocusFeature, CodePath: in.CodePath})
}

func (w *SubWorker) analyze(ctx context.Context, sc *requestScope, item FocusItem) (*SubAnalysisResult, error) {
	codePath := manifest.CleanPath(item.CodePath)
	if sc.manifest != nil && !sc.manifest.Contains(codePath) {
		return nil, fmt.Errorf("%w: %q", ErrNotInManifest, codePath)
	}
	content, err := w.numbered(sc, codePath)
	if err != nil {
		return nil, err
	}
	p, err := w.Prompts.Render(prompt.AnalysisSub, map[string]string{
		prompt.VarProblemDescription: sc.problem,
		prompt.VarFocusFeature:       item.FocusFeature,
		prompt.VarCodeRepoStructure:  sc.structure,
		prompt.VarCodePath:           codePath,
		prompt.VarCodeContent:        content,
	})
	if err != nil {
		return nil, err
	}
	raw, err := w.LLM.Converse(llm.WithPhase(ctx, llm.PhaseAnalysisSub), p, nil, SubSchema)
	if err != nil {
		return nil, err
	}
	var out subOutput
	if err := jsonutil.UnmarshalFlex(raw, &out); err != nil {
		return nil, fmt.Errorf("decode sub-analysis of %s: %w", codePath, err)
	}
	if out.FeatureAnalysis == nil {
		out.FeatureAnalysis = []FeatureLocation{}
	}
	return &SubAnalysisResult{CodePath: codePath, FeatureAnalysis: out.FeatureAnalysis}, nil
}

func newFileCache(size int) (*lru.Cache[string, string], error) {
	if size <= 0 {
		size = defaultFileCacheEntries
	}
	return lru.New[string, string](size)
}

// numbered returns the line-numbered content of codePath, memoised per request.
// Concurrent callers for the same path share one read.
func (w *SubWorker) numbered(sc *requestScope, codePath string) (string, error) {
	if s, ok := sc.cached(codePath); ok {
		return s, nil
	}
	v, err, _ := sc.loads.Do(codePath, func() (any, error) {
		if s, ok := sc.cached(codePath); ok {
			return s, nil
		}
		b, err := sc.fs.ReadFile(codePath, w.MaxFileBytes)
		if err != nil {
			return "", err
		}
		s := NumberLines(string(b))
		if sc.files != nil {
			sc.files.Add(codePath, s)
		}
		return s, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (sc *requestScope) cached(codePath string) (string, bool) {
	if sc.files == nil {
		return "", false
	}
	return sc.files.Get(codePath)
}

// NumberLines prefixes every line with its 1-based number as "<n>:  <line>".
// Lines are split on "\n" only, so a trailing newline yields a final empty line.
func NumberLines(content string) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	b.Grow(len(content) + len(lines)*6)
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(":  ")
		b.WriteString(line)
	}
	return b.String()
}
