package analysis

import (
	"context"

	"go.uber.org/zap"

	"codescout/internal/archive"
)

// Service fronts the orchestrator for callers that hold an archive rather
// than an extracted directory.
type Service struct {
	Orchestrator *Orchestrator
	Extractor    archive.Extractor
}

func NewService(o *Orchestrator, x archive.Extractor) *Service {
	return &Service{Orchestrator: o, Extractor: x}
}

// AnalyzeArchive extracts archivePath and analyses the result. A failed
// extraction is an ingestion failure.
func (s *Service) AnalyzeArchive(ctx context.Context, archivePath, problem string) (*AnalysisReport, error) {
	dir, err := s.Extractor.Extract(ctx, archivePath)
	if err != nil {
		s.Orchestrator.log.Error("archive extraction failed", zap.String("archive", archivePath), zap.Error(err))
		return nil, stageError(StageIngestion, err)
	}
	return s.AnalyzeDir(ctx, dir, problem)
}

// AnalyzeDir analyses an already extracted repository.
func (s *Service) AnalyzeDir(ctx context.Context, dir, problem string) (*AnalysisReport, error) {
	return s.Orchestrator.Analyze(ctx, Request{ProblemDescription: problem, RootDir: dir})
}
