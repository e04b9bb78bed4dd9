// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()

	closer, err := Configure(logger, Options{Level: "debug", Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hello")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "hello")
}

func TestConfigureTeesToRotatingFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "uno.log")
	logger := logrus.New()

	closer, err := Configure(logger, Options{Level: "info", File: path, Console: &buf})
	require.NoError(t, err)

	logger.Info("to both")
	logger.Debug("filtered")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.NotContains(t, string(data), "filtered")
	assert.Contains(t, buf.String(), "to both")
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	_, err := Configure(logrus.New(), Options{Level: "loud"})
	assert.Error(t, err)
}
