package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sireader/core/config"
)

const sampleYAML = `
station:
  device: /dev/ttyUSB0
  initial_baud: 38400
  fallback_baud: 4800
zero_hour: "06:00:00"
courses:
  - name: Long
    inline: true
    controls: [31, 32, 33, 34, 35]
  - name: Score
    inline: false
    controls: [41, 42, 43]
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sireader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeTemp(t, sampleYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Station.Device)
	assert.Equal(t, 38400, cfg.Station.InitialBaud)
	require.Len(t, cfg.Courses, 2)

	courses := cfg.CourseSet()
	assert.Equal(t, "Long", courses[0].Name)
	assert.True(t, courses[0].Inline)
	assert.False(t, courses[1].Inline)
}

func TestLoad_MissingDevice(t *testing.T) {
	path := writeTemp(t, "station:\n  initial_baud: 38400\n")
	_, err := config.Load(path)
	assert.ErrorContains(t, err, "device")
}

func TestLoad_DuplicateCourseName(t *testing.T) {
	path := writeTemp(t, `
station:
  device: /dev/ttyUSB0
courses:
  - name: A
    controls: [1]
  - name: A
    controls: [2]
`)
	_, err := config.Load(path)
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestZeroHourMillis_Default(t *testing.T) {
	cfg := config.DefaultConfig()
	now := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)

	ms, err := cfg.ZeroHourMillis(now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ms)
}

func TestZeroHourMillis_Explicit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ZeroHour = "06:00:00"
	now := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)

	ms, err := cfg.ZeroHourMillis(now)
	require.NoError(t, err)
	assert.Equal(t, int64(6*3_600_000), ms)
}
