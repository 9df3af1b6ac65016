// File: internal/artifacts/screenshots.go
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Screenshotter is anything that can render the current page to PNG bytes.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Screenshots writes checkpoint captures to disk. Every failure is logged and
// swallowed; a missing screenshot never fails a run.
type Screenshots struct {
	dir     string
	enabled bool
	logger  *zap.Logger
}

// NewScreenshots creates the capture helper. The directory is created on
// first use, not here.
func NewScreenshots(dir string, enabled bool, logger *zap.Logger) *Screenshots {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screenshots{dir: dir, enabled: enabled, logger: logger.Named("screenshots")}
}

// Capture saves the current page as <label>-<unix-ms>.png.
func (s *Screenshots) Capture(ctx context.Context, src Screenshotter, label string) {
	if s == nil || !s.enabled || src == nil {
		return
	}

	data, err := src.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("Screenshot capture failed", zap.String("label", label), zap.Error(err))
		return
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("Could not create screenshot directory", zap.String("dir", s.dir), zap.Error(err))
		return
	}

	name := fmt.Sprintf("%s-%d.png", label, time.Now().UnixMilli())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("Could not write screenshot", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("Saved screenshot", zap.String("path", path))
}
