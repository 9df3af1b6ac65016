// File: internal/browser/browser_test.go
package browser

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/config"
)

func TestPersonaForConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Browser.ViewportW = 1366
	cfg.Browser.ViewportH = 768

	persona := personaForConfig(cfg)
	assert.Equal(t, int64(1366), persona.Screen.Width)
	assert.Equal(t, int64(768), persona.Screen.Height)

	// An unset viewport keeps the stock persona screen.
	cfg.Browser.ViewportW = 0
	persona = personaForConfig(cfg)
	assert.Equal(t, int64(1920), persona.Screen.Width)
	assert.Equal(t, int64(1080), persona.Screen.Height)
}

func TestNavCtxAppliesNavigationTimeout(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Automation.NavigationTimeout = 30 * time.Second
	s := &Session{globalConfig: cfg}

	ctx, cancel := s.navCtx(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, time.Second)
}

func TestNavCtxKeepsTighterCallerDeadline(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Automation.NavigationTimeout = 30 * time.Second
	s := &Session{globalConfig: cfg}

	parent, cancelParent := context.WithTimeout(context.Background(), time.Second)
	defer cancelParent()

	ctx, cancel := s.navCtx(parent)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
}

func TestNavCtxDisabled(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Automation.NavigationTimeout = 0
	s := &Session{globalConfig: cfg}

	ctx, cancel := s.navCtx(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

func TestRecorderWritesOrderedFrames(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{dir: dir, logger: zap.NewNop()}

	payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	rec.writeFrame(payload)
	rec.writeFrame(payload)

	first, err := os.ReadFile(filepath.Join(dir, "frame-000001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), first)
	_, err = os.Stat(filepath.Join(dir, "frame-000002.jpg"))
	require.NoError(t, err)

	// A corrupt frame is dropped without advancing the counter.
	rec.writeFrame("not base64!!")
	_, err = os.Stat(filepath.Join(dir, "frame-000003.jpg"))
	assert.True(t, os.IsNotExist(err))
}
