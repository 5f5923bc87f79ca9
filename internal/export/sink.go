package export

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
)

// FileSink writes CSV exports into a directory.
type FileSink struct {
	dir    string
	logger *zap.Logger
}

// SinkOption configures a FileSink.
type SinkOption func(*FileSink)

// WithSinkLogger sets the logger used by the sink.
func WithSinkLogger(l *zap.Logger) SinkOption {
	return func(s *FileSink) {
		s.logger = l
	}
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string, opts ...SinkOption) *FileSink {
	s := &FileSink{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes table to filename inside the sink directory and returns the
// full path. Only the base name of filename is used.
func (s *FileSink) Save(filename string, table Table) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return "", forgeerrors.NewValidationError(forgeerrors.CodeInvalidRequest, fmt.Sprintf("invalid export file name %q", filename))
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", forgeerrors.NewExportError(forgeerrors.CodeWriteFailed, "failed to create export directory", err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", forgeerrors.NewExportError(forgeerrors.CodeWriteFailed, "failed to create export file", err)
	}
	if err := Write(f, table); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", forgeerrors.NewExportError(forgeerrors.CodeWriteFailed, "failed to write export file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", forgeerrors.NewExportError(forgeerrors.CodeWriteFailed, "failed to close export file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", forgeerrors.NewExportError(forgeerrors.CodeWriteFailed, "failed to move export file into place", err)
	}

	s.logger.Info("csv export written",
		zap.String("path", path),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Columns)))
	return path, nil
}
