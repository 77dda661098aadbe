package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	perrors "provisioner/pkg/errors"
	"provisioner/pkg/plan"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "PROVISIONER"
	ConfigName = "provisioner"

	HistoryNone     = "none"
	HistoryFile     = "file"
	HistoryPostgres = "postgres"
)

type Config struct {
	Plan    string        `mapstructure:"plan"`
	RunsDir string        `mapstructure:"runs_dir"`
	Log     LogConfig     `mapstructure:"log"`
	History HistoryConfig `mapstructure:"history"`
	DB      DBConfig      `mapstructure:"db"`
	Discord DiscordConfig `mapstructure:"discord"`
	Server  ServerConfig  `mapstructure:"server"`
	Speech  SpeechConfig  `mapstructure:"speech"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HistoryConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type DiscordConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// Enabled reports whether both the bot token and the channel are set.
func (d DiscordConfig) Enabled() bool {
	return d.Token != "" && d.ChannelID != ""
}

// ServerConfig is only read by the server command. Port stays a string so a
// malformed platform PORT cannot break provisioning runs.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// ListenPort parses and range-checks the configured port.
func (s ServerConfig) ListenPort() (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s.Port))
	if err != nil {
		return 0, perrors.NewConfigError("server.port", s.Port, "must be a number")
	}
	return port, ValidatePort(port)
}

func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return perrors.NewConfigError("server.port", port, "must be between 1 and 65535")
	}
	return nil
}

// SpeechConfig controls POST /speak. With an empty UpstreamURL the server
// answers with locally generated audio.
type SpeechConfig struct {
	UpstreamURL string        `mapstructure:"upstream_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Options controls where Load looks for the config file.
type Options struct {
	// ConfigFile, when set, must exist. Otherwise provisioner.yaml is looked
	// up in the search paths and its absence is not an error.
	ConfigFile  string
	SearchPaths []string
}

func DefaultSearchPaths() []string {
	return []string{".", "./config", "/etc/provisioner", "$HOME/.provisioner"}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("plan", plan.DefaultPlan)
	v.SetDefault("runs_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
	v.SetDefault("history.driver", HistoryNone)
	v.SetDefault("history.dir", ".provisioner/history")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "provisioner")
	v.SetDefault("db.password", "provisioner")
	v.SetDefault("db.name", "provisioner")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.channel_id", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("speech.upstream_url", "")
	v.SetDefault("speech.timeout", 120*time.Second)
}

// bindLegacyEnv accepts the unprefixed variable names deployments already use.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"db.host":             "DB_HOST",
		"db.port":             "DB_PORT",
		"db.user":             "DB_USER",
		"db.password":         "DB_PASSWORD",
		"db.name":             "DB_NAME",
		"discord.token":       "DISCORD_TOKEN",
		"discord.channel_id":  "DISCORD_CHANNEL_ID",
		"server.port":         "PORT",
		"speech.upstream_url": "OPENVOICE_UPSTREAM_URL",
	}
	for key, legacy := range bindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads defaults, then the optional config file, then the environment.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = DefaultSearchPaths()
		}
		for _, path := range paths {
			v.AddConfigPath(os.ExpandEnv(path))
		}
		v.SetConfigName(ConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, &perrors.ConfigError{
				Field:   "config",
				Value:   opts.ConfigFile,
				Message: "unable to read config file",
				Err:     fmt.Errorf("%w: %v", perrors.ErrInvalidConfig, err),
			}
		}
		log.Debug("No config file found, using defaults and environment")
	} else {
		log.Debugf("Loaded config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &perrors.ConfigError{
			Field:   "config",
			Value:   v.ConfigFileUsed(),
			Message: "unable to decode configuration",
			Err:     fmt.Errorf("%w: %v", perrors.ErrInvalidConfig, err),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := plan.Lookup(c.Plan); err != nil {
		return &perrors.ConfigError{
			Field:   "plan",
			Value:   c.Plan,
			Message: fmt.Sprintf("unknown plan, available: %s", strings.Join(plan.Names(), ", ")),
			Err:     err,
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return perrors.NewConfigError("log.format", c.Log.Format, "must be text or json")
	}

	switch c.History.Driver {
	case HistoryNone, HistoryPostgres:
	case HistoryFile:
		if c.History.Dir == "" {
			return perrors.NewConfigError("history.dir", c.History.Dir, "required when history.driver is file")
		}
	default:
		return perrors.NewConfigError("history.driver", c.History.Driver, "must be none, file or postgres")
	}

	if c.Speech.Timeout < 0 {
		return perrors.NewConfigError("speech.timeout", c.Speech.Timeout, "must not be negative")
	}
	return nil
}
