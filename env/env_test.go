package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentuity/go-ogcache/logger"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.env")
	content := `
KEY1=value1
KEY2="value2"
export KEY3='value3'
# This is a comment
KEY4=value with spaces
DIR=${BASE}/cache
BASE=/var
`
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o644))

	got, err := ParseEnvFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, []EnvLine{
		{Key: "KEY1", Val: "value1"},
		{Key: "KEY2", Val: "value2"},
		{Key: "KEY3", Val: "value3"},
		{Key: "KEY4", Val: "value with spaces"},
		{Key: "DIR", Val: "/var/cache"},
		{Key: "BASE", Val: "/var"},
	}, got)
}

func TestParseEnvFileMissing(t *testing.T) {
	got, err := ParseEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcessEnvLine(t *testing.T) {
	assert.Equal(t, EnvLine{Key: "A", Val: "b=c"}, ProcessEnvLine("A=b=c"))
	assert.Equal(t, EnvLine{Key: "A", Val: ""}, ProcessEnvLine("A="))
	assert.Equal(t, EnvLine{Key: "A"}, ProcessEnvLine("A"))
	assert.Equal(t, EnvLine{Key: "A", Val: `"`}, ProcessEnvLine(`A="`))
}

func TestInterpolate(t *testing.T) {
	t.Setenv("OGCACHE_TEST_HOME", "/home/test")
	vars := map[string]string{"NAME": "meta", "EMPTY": ""}
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${NAME}", "meta"},
		{"/cache/${NAME}/x", "/cache/meta/x"},
		{"${MISSING}", "${MISSING}"},
		{"${MISSING:-fallback}", "fallback"},
		{"${EMPTY:-fallback}", "fallback"},
		{"${env:OGCACHE_TEST_HOME}/.cache", "/home/test/.cache"},
		{"${env:OGCACHE_TEST_UNSET:-/tmp}", "/tmp"},
		{"${env:OGCACHE_TEST_UNSET}", "${env:OGCACHE_TEST_UNSET}"},
		{"${}", "${}"},
		{"${NAME", "${NAME"},
		{"a ${NAME} b ${NAME}", "a meta b meta"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Interpolate(tt.in, vars), tt.in)
	}
}

func TestLoadEnvFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(tmpFile, []byte("OGCACHE_TEST_A=from-file\nOGCACHE_TEST_B=from-file\n"), 0o644))
	t.Setenv("OGCACHE_TEST_A", "from-env")
	t.Setenv("OGCACHE_TEST_B", "")
	os.Unsetenv("OGCACHE_TEST_B")

	require.NoError(t, LoadEnvFile(tmpFile))
	assert.Equal(t, "from-env", os.Getenv("OGCACHE_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("OGCACHE_TEST_B"))
}

func TestFlagOrEnv(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("dir", "", "")

	t.Setenv("OGCACHE_TEST_DIR", "")
	assert.Equal(t, "default", FlagOrEnv(cmd, "dir", "OGCACHE_TEST_DIR", "default"))

	t.Setenv("OGCACHE_TEST_DIR", "/env")
	assert.Equal(t, "/env", FlagOrEnv(cmd, "dir", "OGCACHE_TEST_DIR", "default"))

	require.NoError(t, cmd.Flags().Set("dir", "/flag"))
	assert.Equal(t, "/flag", FlagOrEnv(cmd, "dir", "OGCACHE_TEST_DIR", "default"))
}

func TestLogLevel(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "", "")

	t.Setenv(logger.LevelEnv, "")
	assert.Equal(t, logger.LevelWarn, LogLevel(cmd))

	t.Setenv(logger.LevelEnv, "debug")
	assert.Equal(t, logger.LevelDebug, LogLevel(cmd))

	require.NoError(t, cmd.Flags().Set("log-level", "error"))
	assert.Equal(t, logger.LevelError, LogLevel(cmd))
	assert.NotNil(t, NewLogger(cmd))
}
