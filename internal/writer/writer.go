// Package writer persists generated bundles to disk. It is the external
// file-writing collaborator of the pipeline; the generator itself never
// touches the filesystem.
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/typeforge/typeforge/internal/domain"
)

var (
	// ErrNoOutputDir means Write was called with an empty directory.
	ErrNoOutputDir = errors.New("output directory not set")
	// ErrRootOutputDir guards against writing (or cleaning) a filesystem
	// root.
	ErrRootOutputDir = errors.New("output directory resolves to filesystem root")
)

// Writer writes bundle files under a target directory, creating intermediate
// directories as needed. With clean enabled the target directory is removed
// and recreated before writing, so stale files from earlier runs disappear.
type Writer struct {
	clean  bool
	logger *slog.Logger
}

func New(clean bool, logger *slog.Logger) *Writer {
	return &Writer{clean: clean, logger: logger.With("component", "writer")}
}

// Write persists every file of the bundle verbatim under dir.
func (w *Writer) Write(dir string, bundle *domain.GeneratedBundle) error {
	if bundle == nil {
		return errors.New("nothing to write: bundle is nil")
	}
	if dir == "" {
		return ErrNoOutputDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving output directory %s: %w", dir, err)
	}
	if abs == filepath.Dir(abs) {
		return fmt.Errorf("%w: %s", ErrRootOutputDir, abs)
	}

	if w.clean {
		if err := os.RemoveAll(abs); err != nil {
			return fmt.Errorf("cleaning output directory %s: %w", abs, err)
		}
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", abs, err)
	}

	for _, file := range bundle.Files {
		target := filepath.Join(abs, filepath.FromSlash(file.Filename))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", file.Filename, err)
		}
		if err := os.WriteFile(target, []byte(file.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", file.Filename, err)
		}
	}

	w.logger.Info("Wrote bundle",
		slog.String("dir", abs),
		slog.Int("file_count", len(bundle.Files)))
	return nil
}
