// Package archive turns uploaded repository archives into extraction roots.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"codescout/internal/logging"
	"codescout/internal/safeio"
)

var (
	ErrUnsafePath = errors.New("archive: entry escapes extraction root")
	ErrTooLarge   = errors.New("archive: uncompressed size exceeds limit")
)

// Extractor produces an extraction root directory for an archive file.
type Extractor interface {
	Extract(ctx context.Context, archivePath string) (string, error)
}

// DestDir is the extraction root for archivePath: a sibling directory named
// after the archive without its extension. Distinct archive names therefore
// never share a root.
func DestDir(archivePath string) string {
	base := filepath.Base(archivePath)
	return filepath.Join(filepath.Dir(archivePath), strings.TrimSuffix(base, filepath.Ext(base)))
}

// ZipExtractor unpacks zip archives. Symlink entries are skipped and entries
// that would land outside the root fail the extraction.
type ZipExtractor struct {
	// MaxTotalBytes caps the sum of uncompressed entry sizes; <= 0 disables.
	MaxTotalBytes int64
	Logger        *zap.Logger
}

var _ Extractor = (*ZipExtractor)(nil)

func (z *ZipExtractor) Extract(ctx context.Context, archivePath string) (string, error) {
	log := logging.OrNop(z.Logger)
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("archive: open %s: %w", archivePath, err)
	}
	defer r.Close()

	dest := DestDir(archivePath)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("archive: create %s: %w", dest, err)
	}
	var total int64
	var written int
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return "", err
		}
		mode := f.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			log.Debug("skipping symlink entry", zap.String("name", f.Name))
			continue
		case f.FileInfo().IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		total += int64(f.UncompressedSize64)
		if z.MaxTotalBytes > 0 && total > z.MaxTotalBytes {
			return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, z.MaxTotalBytes)
		}
		if err := writeEntry(f, target); err != nil {
			return "", fmt.Errorf("archive: extract %s: %w", f.Name, err)
		}
		written++
	}
	log.Info("archive extracted",
		zap.String("archive", archivePath),
		zap.String("dest", dest),
		zap.Int("files", written))
	return dest, nil
}

func entryPath(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	target := filepath.Join(dest, clean)
	if !safeio.HasPathPrefix(target, dest) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
