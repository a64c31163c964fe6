package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"codescout/internal/analysis"
	"codescout/internal/archive"
)

const (
	fieldArchive = "code_zip"
	fieldProblem = "problem_description"
	fieldKey     = "archive_key"

	msgNoArchive = "No zip file uploaded"
)

type uploadedFile struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Mimetype string `json:"mimetype"`
}

type uploadResponse struct {
	Message            string       `json:"message"`
	File               uploadedFile `json:"file"`
	ProblemDescription string       `json:"problem_description"`
	ArchiveKey         string       `json:"archive_key,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server is running"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.parseForm(w, r); err != nil {
		s.writeReceiveError(w, err)
		return
	}
	saved, problem, err := s.receiveArchive(r)
	if err != nil {
		s.writeReceiveError(w, err)
		return
	}
	s.log.Info("archive uploaded",
		zap.String("file", saved.Name),
		zap.Int("problem_bytes", len(problem)))
	resp := uploadResponse{
		Message:            "File uploaded successfully",
		File:               saved,
		ProblemDescription: problem,
	}
	if s.store != nil {
		key := filepath.Base(saved.Path)
		if err := s.store.Put(r.Context(), key, saved.Path); err != nil {
			s.log.Error("archive store put failed", zap.String("key", key), zap.Error(err))
			writeError(w, http.StatusBadGateway, "archive store unavailable")
			return
		}
		resp.ArchiveKey = key
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.parseForm(w, r); err != nil {
		s.writeReceiveError(w, err)
		return
	}
	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var archivePath, problem string
	if key := strings.TrimSpace(r.FormValue(fieldKey)); key != "" && s.store != nil {
		p, err := s.store.Fetch(ctx, key, s.cfg.UploadDir)
		if err != nil {
			s.log.Warn("archive fetch failed", zap.String("key", key), zap.Error(err))
			if errors.Is(err, os.ErrNotExist) {
				writeError(w, http.StatusNotFound, "archive not found")
				return
			}
			writeError(w, http.StatusBadGateway, "archive store unavailable")
			return
		}
		archivePath, problem = p, strings.TrimSpace(r.FormValue(fieldProblem))
	} else {
		saved, prob, err := s.receiveArchive(r)
		if err != nil {
			s.writeReceiveError(w, err)
			return
		}
		archivePath, problem = saved.Path, prob
	}

	report, err := s.analyzer.AnalyzeArchive(ctx, archivePath, problem)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

var errNoArchive = errors.New(msgNoArchive)

// parseForm reads the request form with the upload size cap applied. Plain
// url-encoded forms are accepted so archive_key requests need no multipart body.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

// receiveArchive stores the multipart archive under the upload directory with
// a unique name.
func (s *Server) receiveArchive(r *http.Request) (uploadedFile, string, error) {
	problem := strings.TrimSpace(r.FormValue(fieldProblem))
	file, hdr, err := r.FormFile(fieldArchive)
	if err != nil {
		return uploadedFile{}, problem, errNoArchive
	}
	defer file.Close()

	saved, err := s.save(file, hdr)
	if err != nil {
		return uploadedFile{}, problem, err
	}
	return saved, problem, nil
}

func (s *Server) save(file multipart.File, hdr *multipart.FileHeader) (uploadedFile, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return uploadedFile{}, err
	}
	dst := filepath.Join(s.cfg.UploadDir, archive.LocalName(hdr.Filename))
	out, err := os.Create(dst)
	if err != nil {
		return uploadedFile{}, err
	}
	n, err := io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return uploadedFile{}, err
	}
	mimetype := hdr.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}
	return uploadedFile{Name: hdr.Filename, Path: dst, Size: n, Mimetype: mimetype}, nil
}

func (s *Server) writeReceiveError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errNoArchive):
		writeError(w, http.StatusBadRequest, msgNoArchive)
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "archive too large")
	default:
		s.log.Error("receive archive failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	var ae *analysis.Error
	if !errors.As(err, &ae) {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch ae.Stage {
	case analysis.StageIngestion:
		status = http.StatusUnprocessableEntity
	case analysis.StageModel, analysis.StageAggregation:
		status = http.StatusBadGateway
		if errors.Is(ae.Err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	}
	writeJSON(w, status, ae)
}
