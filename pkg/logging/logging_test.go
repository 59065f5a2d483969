package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, LevelDebug, parseLevel("debug"))
	assert.Equal(t, LevelInfo, parseLevel(" info "))
	assert.Equal(t, LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, LevelWarn, parseLevel("warn"))
	assert.Equal(t, LevelError, parseLevel("ERROR"))
	assert.Equal(t, LevelError, parseLevel(""))
	assert.Equal(t, LevelError, parseLevel("nonsense"))
}

func TestKvToMap(t *testing.T) {
	props := kvToMap([]interface{}{"module", "NAM", "pid", 42})
	assert.Equal(t, map[string]interface{}{"module": "NAM", "pid": 42}, props)

	assert.Nil(t, kvToMap(nil))

	odd := kvToMap([]interface{}{"module", "NAM", "dangling"})
	assert.Equal(t, "dangling", odd["EXTRA"])
}

func TestSessionFiles(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, Init(Options{BaseDir: base, Level: "DEBUG", FileLogs: true}))
	defer Close()

	sessDir := SessionDir()
	require.NotEmpty(t, sessDir)
	assert.Equal(t, base, filepath.Dir(sessDir))

	SetPhase("Install")
	Info("Installing module", "module", "NAM")
	Debug("details")
	Close()

	logData, err := os.ReadFile(filepath.Join(sessDir, "deploy.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "[INFO] Installing module module=NAM")
	assert.Contains(t, string(logData), "[DEBUG] details")

	eventFile, err := os.Open(filepath.Join(sessDir, "events.json"))
	require.NoError(t, err)
	defer eventFile.Close()

	var entries []Entry
	scanner := bufio.NewScanner(eventFile)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "Installing module", entries[0].Message)
	assert.Equal(t, "Install", entries[0].Phase)
	assert.Equal(t, "NAM", entries[0].Properties["module"])
	assert.NotZero(t, entries[0].Time)
	assert.NotEmpty(t, entries[0].SessionID)
}

func TestLevelFiltering(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, Init(Options{BaseDir: base, Level: "WARN", FileLogs: true}))
	sessDir := SessionDir()

	Info("should be filtered")
	Warn("should be written")
	Close()

	logData, err := os.ReadFile(filepath.Join(sessDir, "deploy.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(logData), "should be filtered")
	assert.Contains(t, string(logData), "should be written")
}

func TestNoFileLogs(t *testing.T) {
	require.NoError(t, Init(Options{Level: "INFO", FileLogs: false}))
	defer Close()

	assert.Empty(t, SessionDir())
	// Must not panic without file writers.
	Info("console only")
}
