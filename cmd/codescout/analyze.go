package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codescout/internal/analysis"
	"codescout/internal/llm"
	"codescout/internal/util/jsonutil"
)

var (
	analyzeArchive     string
	analyzeDir         string
	analyzeProblem     string
	analyzeProblemFile string
	analyzeOut         string
	analyzeDumpPrompts string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one repository and print the report as JSON",
	Example: `  codescout analyze --archive repo.zip --problem "add a health check"
  codescout analyze --dir ./repo --problem-file issue.md --out report.json`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeArchive, "archive", "", "zip archive of the repository")
	f.StringVar(&analyzeDir, "dir", "", "already extracted repository directory")
	f.StringVar(&analyzeProblem, "problem", "", "problem description")
	f.StringVar(&analyzeProblemFile, "problem-file", "", "read the problem description from a file")
	f.StringVar(&analyzeOut, "out", "", "write the report to this file instead of stdout")
	f.StringVar(&analyzeDumpPrompts, "dump-prompts", "", "write every model prompt and answer to this JSON Lines file")
	analyzeCmd.MarkFlagsMutuallyExclusive("archive", "dir")
	analyzeCmd.MarkFlagsOneRequired("archive", "dir")
	analyzeCmd.MarkFlagsMutuallyExclusive("problem", "problem-file")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	problem, err := readProblem(analyzeProblem, analyzeProblemFile)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	if analyzeDumpPrompts != "" {
		f, err := os.Create(analyzeDumpPrompts)
		if err != nil {
			return err
		}
		defer f.Close()
		ctx = llm.WithHook(ctx, &promptDump{w: f, log: a.log})
	}

	var report *analysis.AnalysisReport
	if analyzeArchive != "" {
		report, err = a.service.AnalyzeArchive(ctx, analyzeArchive, problem)
	} else {
		report, err = a.service.AnalyzeDir(ctx, analyzeDir, problem)
	}
	if err != nil {
		var ae *analysis.Error
		if errors.As(err, &ae) {
			b, _ := json.Marshal(ae)
			fmt.Fprintln(cmd.ErrOrStderr(), string(b))
		}
		return err
	}
	return writeReport(cmd.OutOrStdout(), analyzeOut, report)
}

func readProblem(text, file string) (string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read problem file: %w", err)
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("a problem description is required (--problem or --problem-file)")
	}
	return text, nil
}

func writeReport(stdout io.Writer, out string, report *analysis.AnalysisReport) error {
	b, err := jsonutil.MarshalNoEscape(report)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if out == "" {
		_, err = stdout.Write(b)
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

// promptDump is a prompt hook appending every model exchange to a JSON Lines
// file: one {"phase","kind","body"} record per prompt and per answer.
type promptDump struct {
	mu  sync.Mutex
	w   io.Writer
	log *zap.Logger
}

type dumpRecord struct {
	Phase string `json:"phase"`
	Kind  string `json:"kind"`
	Body  string `json:"body"`
}

func (d *promptDump) Before(_ context.Context, phase, prompt string) {
	d.append(dumpRecord{Phase: phase, Kind: "prompt", Body: prompt})
}

func (d *promptDump) After(_ context.Context, phase string, raw json.RawMessage, err error) {
	rec := dumpRecord{Phase: phase, Kind: "answer", Body: string(raw)}
	if err != nil {
		rec.Kind, rec.Body = "error", err.Error()
	}
	d.append(rec)
}

func (d *promptDump) append(rec dumpRecord) {
	b, err := jsonutil.MarshalNoEscape(rec)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.w.Write(append(b, '\n')); err != nil {
		d.log.Warn("dump prompt failed", zap.Error(err))
	}
}
