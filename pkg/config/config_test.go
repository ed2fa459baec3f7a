package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// load wires a root command the way the chatwidget binary does and decodes
// the settings after parsing args.
func load(t *testing.T, args ...string) (*Settings, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := &cobra.Command{Use: AppName}
	AddFlags(root.PersistentFlags())
	require.NoError(t, clay.InitViper(AppName, root))
	require.NoError(t, root.PersistentFlags().Parse(args))

	v := viper.GetViper()
	if err := Init(v); err != nil {
		return nil, err
	}
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	s, err := load(t)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000", s.BaseURL)
	require.Equal(t, 10*time.Second, s.RequestTimeout)
	require.Equal(t, 30*time.Second, s.StatsInterval)
	require.Equal(t, 500*time.Millisecond, s.RenderDelay)
	require.Equal(t, "academics", s.DefaultCategory)
	require.Equal(t, "chatwidget-events", s.RedisStream.Topic)
	require.False(t, s.RedisStream.Enabled())
	require.Contains(t, s.Store, filepath.Join(".chatwidget", "state.json"))
}

func TestLoad_EnvAndFlagsOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHATWIDGET_BASE_URL", "http://backend:8080")
	t.Setenv("CHATWIDGET_STATS_INTERVAL", "1m")
	t.Setenv("CHATWIDGET_REDIS_STREAM_ADDR", "redis:6379")

	s, err := load(t, "--render-delay=0s", "--log-level=debug")
	require.NoError(t, err)
	require.Equal(t, "http://backend:8080", s.BaseURL)
	require.Equal(t, time.Minute, s.StatsInterval)
	require.Equal(t, time.Duration(0), s.RenderDelay)
	require.Equal(t, "debug", viper.GetString("log-level"))
	require.Equal(t, "redis:6379", s.RedisStream.Addr)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base-url: https://campus.example.edu\nstore: memory://\ndefault-category: campus\n"), 0o644))

	s, err := load(t, "--config", path)
	require.NoError(t, err)
	require.Equal(t, "https://campus.example.edu", s.BaseURL)
	require.Equal(t, "memory://", s.Store)
	require.Equal(t, "campus", s.DefaultCategory)

	_, err = load(t, "--config", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_DefaultConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".chatwidget"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".chatwidget", "config.yaml"), []byte("request-timeout: 3s\n"), 0o644))

	s, err := load(t)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, s.RequestTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, args := range [][]string{
		{"--base-url", "localhost:5000"},
		{"--base-url", "ftp://x"},
		{"--request-timeout", "0s"},
		{"--stats-interval=-1s"},
		{"--render-delay=-1s"},
		{"--store", " "},
	} {
		_, err := load(t, args...)
		require.Error(t, err, "%v", args)
	}
}
