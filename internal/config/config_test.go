package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/tmp/data"},
		Media:  MediaConfig{BasePath: "/tmp/media"},
	}
	require.NoError(t, valid.Validate())

	badEnv := *valid
	badEnv.App.Environment = "test"
	assert.Error(t, badEnv.Validate())

	badLevel := *valid
	badLevel.Logger.Level = "verbose"
	assert.Error(t, badLevel.Validate())

	noData := *valid
	noData.Data.BasePath = ""
	assert.Error(t, noData.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/school/data", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "school", "data"), got)

	got, err = expandPath("", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/default/path", got)

	got, err = expandPath("/already/abs/../abs", "")
	require.NoError(t, err)
	assert.Equal(t, "/already/abs", got)
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("", "UNSET_DURATION_KEY", "30m")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, d)

	d, err = parseDurationValue("1h", "UNSET_DURATION_KEY", "30m")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	_, err = parseDurationValue("not-a-duration", "UNSET_DURATION_KEY", "30m")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
	assert.Equal(t, []string{"*"}, splitList("*"))
	assert.Nil(t, splitList(""))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nSCHOOLHUB_TEST_KEY=from-file\n"), 0o600))

	t.Setenv("SCHOOLHUB_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("SCHOOLHUB_TEST_KEY"))
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("SCHOOLHUB_TEST_KEY"))
	require.NoError(t, os.Unsetenv("SCHOOLHUB_TEST_KEY"))
}
