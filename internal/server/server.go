// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"codescout/internal/analysis"
	"codescout/internal/logging"
)

const defaultMaxUploadBytes = 64 << 20

// Analyzer runs the full pipeline on an archive file.
type Analyzer interface {
	AnalyzeArchive(ctx context.Context, archivePath, problem string) (*analysis.AnalysisReport, error)
}

// ArchiveStore mirrors uploads to and fetches archives from object storage.
type ArchiveStore interface {
	Put(ctx context.Context, key, localPath string) error
	Fetch(ctx context.Context, key, dir string) (string, error)
}

type Config struct {
	UploadDir      string
	Timeout        time.Duration
	MaxUploadBytes int64
}

type Server struct {
	cfg      Config
	analyzer Analyzer
	store    ArchiveStore
	log      *zap.Logger
}

// New builds a Server. store may be nil when no object store is configured.
func New(cfg Config, analyzer Analyzer, store ArchiveStore, logger *zap.Logger) *Server {
	if cfg.UploadDir == "" {
		cfg.UploadDir = "file_upload"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{cfg: cfg, analyzer: analyzer, store: store, log: logging.OrNop(logger)}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	return cors(mux)
}

// ListenAndServe serves HTTP/1.1 and cleartext HTTP/2 on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
