package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConsoleOnly(t *testing.T) {
	logger, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	defer logger.Sync()
	logger.Info("hello")
}

func TestNewWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashwatch.log")
	logger, err := New(Config{Level: "info", FilePath: path})
	require.NoError(t, err)
	defer logger.Sync()
	logger.Warn("rotated sink active")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level"})
	require.Error(t, err)
}
