package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDir points the package at a temp directory and resets globals.
func setupTestDir(t *testing.T) {
	t.Helper()

	origLogDir, origInitErr := logDir, initErr
	origSessionID := sessionID
	origLevel := Level(minLevel.Load())

	logDir = t.TempDir()
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir, initErr = origLogDir, origInitErr
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
		SetLevel(origLevel)
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("store")
	require.NoError(t, err)
	defer logger.Close()

	assert.NotEmpty(t, logger.SessionID())
	assert.FileExists(t, logger.LogPath())

	name := filepath.Base(logger.LogPath())
	assert.True(t, strings.HasSuffix(name, "-moodjournal.log"), name)
	assert.Contains(t, strings.TrimSuffix(name, "-moodjournal.log"), "-")
}

func TestLoggerLevels(t *testing.T) {
	setupTestDir(t)
	SetLevel(LevelDebug)

	logger, err := NewLogger("flow")
	require.NoError(t, err)
	defer logger.Close()

	logger.Debugf("debug %d", 1)
	logger.Infof("info")
	logger.Warnf("warn")
	logger.Errorf("error")

	content, err := os.ReadFile(logger.LogPath())
	require.NoError(t, err)
	for _, want := range []string{
		"[flow] [DEBUG] debug 1",
		"[flow] [INFO] info",
		"[flow] [WARN] warn",
		"[flow] [ERROR] error",
	} {
		assert.Contains(t, string(content), want)
	}
}

func TestLevelFiltering(t *testing.T) {
	setupTestDir(t)
	SetLevel(LevelWarn)

	var buf bytes.Buffer
	logger := NewWriterLogger("bot", &buf)
	logger.Debugf("hidden")
	logger.Infof("hidden too")
	logger.Warnf("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[bot] [WARN] shown")
}

func TestSharedFileAcrossComponents(t *testing.T) {
	setupTestDir(t)

	a, err := NewLogger("a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewLogger("b")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.LogPath(), b.LogPath())
	assert.Equal(t, a.SessionID(), b.SessionID())
}

func TestWith(t *testing.T) {
	setupTestDir(t)

	var buf bytes.Buffer
	NewWriterLogger("bot", &buf).With("mood").Infof("started")
	assert.Contains(t, buf.String(), "[bot.mood] [INFO] started")
}

func TestCloseTwice(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("x")
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.With("child").Close())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestDiscard(t *testing.T) {
	Discard("test").Errorf("nothing happens")
}
