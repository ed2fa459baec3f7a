// Package config loads chatwidget settings from flags, CHATWIDGET_* env
// variables and an optional YAML file, in that order of precedence. The
// --config and log-* flags come from clay.InitViper on the root command.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatwidget/pkg/redisstream"
)

const (
	AppName   = "chatwidget"
	EnvPrefix = "CHATWIDGET"
)

type Settings struct {
	BaseURL         string        `mapstructure:"base-url"`
	Store           string        `mapstructure:"store"`
	RequestTimeout  time.Duration `mapstructure:"request-timeout"`
	StatsInterval   time.Duration `mapstructure:"stats-interval"`
	RenderDelay     time.Duration `mapstructure:"render-delay"`
	DefaultCategory string        `mapstructure:"default-category"`
	Plain           bool          `mapstructure:"plain"`

	RedisStream redisstream.Settings `mapstructure:",squash"`
}

// Dir is ~/.chatwidget, or .chatwidget when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, "."+AppName)
}

func DefaultLogFile() string {
	return filepath.Join(Dir(), AppName+".log")
}

// AddFlags registers the persistent flags shared by every command. Call it
// before clay.InitViper so the flags get bound.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("base-url", "http://localhost:5000", "backend base URL")
	fs.String("store", "file://"+filepath.Join(Dir(), "state.json"), "state store: memory://, file://PATH, sqlite://PATH or redis://HOST:PORT/DB")
	fs.Duration("request-timeout", 10*time.Second, "timeout for each backend request")
	fs.Duration("stats-interval", 30*time.Second, "statistics refresh interval")
	fs.Duration("render-delay", 500*time.Millisecond, "delay before a reply is shown")
	fs.String("default-category", "academics", "suggestion category used when a reply has none")
	fs.Bool("plain", false, "use the line-based interface even on a terminal")
	fs.String("redis-stream-addr", "", "mirror UI events to this Redis address (host:port)")
	fs.String("redis-stream-topic", redisstream.DefaultTopic, "Redis stream receiving mirrored events")
	fs.String("redis-stream-group", redisstream.DefaultGroup, "consumer group used by 'events tail'")
	fs.String("redis-stream-consumer", redisstream.DefaultConsumer, "consumer name used by 'events tail'")
}

// Init enables CHATWIDGET_* environment variables on v and reads the config
// file once flags are parsed (an explicit --config must exist, the default
// one may not).
func Init(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", configFile)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return errors.Wrapf(err, "invalid base-url %q", s.BaseURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid base-url %q: want http(s)://host[:port]", s.BaseURL)
	}
	if strings.TrimSpace(s.Store) == "" {
		return errors.New("store must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"request-timeout": s.RequestTimeout,
		"stats-interval":  s.StatsInterval,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if s.RenderDelay < 0 {
		return errors.Errorf("render-delay must not be negative, got %s", s.RenderDelay)
	}
	if strings.TrimSpace(s.DefaultCategory) == "" {
		return errors.New("default-category must not be empty")
	}
	return nil
}
