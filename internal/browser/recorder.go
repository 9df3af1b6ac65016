// File: internal/browser/recorder.go
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// recorder captures the tab as a sequence of JPEG frames via the CDP
// screencast. Frames can be stitched into a video offline; keeping raw
// frames avoids an encoder dependency in the agent itself.
type recorder struct {
	dir    string
	logger *zap.Logger
	frame  atomic.Int64
}

// startRecording begins the screencast for the session's tab. Frame writes
// are best-effort; a failed write is logged and the recording continues.
func (s *Session) startRecording(dir string) error {
	dir = filepath.Join(dir, s.id[:8])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create video frame directory: %w", err)
	}

	rec := &recorder{dir: dir, logger: s.logger.Named("recorder")}

	chromedp.ListenTarget(s.sessionContext, func(ev interface{}) {
		frame, ok := ev.(*page.EventScreencastFrame)
		if !ok {
			return
		}
		// Ack promptly so the browser keeps streaming; write off the
		// event goroutine.
		go func() {
			if err := chromedp.Run(s.sessionContext, page.ScreencastFrameAck(frame.SessionID)); err != nil {
				rec.logger.Debug("Screencast frame ack failed", zap.Error(err))
			}
		}()
		go rec.writeFrame(frame.Data)
	})

	err := chromedp.Run(s.sessionContext,
		page.StartScreencast().
			WithFormat(page.ScreencastFrameFormatJpeg).
			WithQuality(60).
			WithEveryNthFrame(2),
	)
	if err != nil {
		return fmt.Errorf("failed to start screencast: %w", err)
	}

	s.recording = true
	s.logger.Info("Session recording started.", zap.String("dir", dir))
	return nil
}

// stopRecording ends the screencast. Best-effort; the tab may already be
// gone when the session closes.
func (s *Session) stopRecording(ctx context.Context) {
	if !s.recording {
		return
	}
	s.recording = false
	if err := chromedp.Run(s.sessionContext, page.StopScreencast()); err != nil {
		s.logger.Debug("Failed to stop screencast", zap.Error(err))
	}
}

func (r *recorder) writeFrame(data string) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		r.logger.Debug("Failed to decode screencast frame", zap.Error(err))
		return
	}
	n := r.frame.Add(1)
	path := filepath.Join(r.dir, frameName(n))
	if err := os.WriteFile(path, raw, 0644); err != nil {
		r.logger.Debug("Failed to write screencast frame", zap.Error(err))
	}
}

// frameName zero-pads so lexical order matches capture order for stitching.
func frameName(n int64) string {
	return fmt.Sprintf("frame-%06d.jpg", n)
}
