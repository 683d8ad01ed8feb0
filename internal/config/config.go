package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/PartyCast/internal/discovery"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	Title            string        `mapstructure:"title"`
	HostUsername     string        `mapstructure:"host_username"`
	LibraryPath      string        `mapstructure:"library_path"`
	ArtworkCachePath string        `mapstructure:"artwork_cache_path"`
	Player           string        `mapstructure:"player"`
	Volume           float64       `mapstructure:"volume"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	SendBuffer       int           `mapstructure:"send_buffer"`
	Discovery        bool          `mapstructure:"discovery"`
	MulticastGroup   string        `mapstructure:"multicast_group"`
	LogLevel         string        `mapstructure:"log_level"`
	HandshakeLimit   int           `mapstructure:"handshake_limit"`
	HandshakeWindow  time.Duration `mapstructure:"handshake_window"`
	WatchDebounce    time.Duration `mapstructure:"watch_debounce"`
	Moderators       []string      `mapstructure:"moderators"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 10784)
	v.SetDefault("title", "PartyCast Server")
	v.SetDefault("host_username", "Host")
	v.SetDefault("library_path", "./music")
	v.SetDefault("artwork_cache_path", "./cache/artwork")
	v.SetDefault("player", "auto")
	v.SetDefault("volume", 1.0)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("discovery", true)
	v.SetDefault("multicast_group", discovery.DefaultGroup)
	v.SetDefault("log_level", "info")
	v.SetDefault("handshake_limit", 10)
	v.SetDefault("handshake_window", "1m")
	v.SetDefault("watch_debounce", "2s")
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults.
// PARTYCAST_<KEY> environment variables override both.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("PARTYCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("library", cfg.LibraryPath).
		Str("player", cfg.Player).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Player {
	case "auto", "beep", "dummy":
	default:
		return fmt.Errorf("unknown player %q", c.Player)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("bad port %d", c.Port)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume %v out of range 0..1", c.Volume)
	}
	return nil
}
