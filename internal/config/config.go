package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "RESUMELIFT"

	DefaultBaseURL = "/api"
	DefaultOrigin  = "http://localhost:8000"
)

type Config struct {
	API struct {
		BaseURL string `mapstructure:"base_url"` // absolute URL, or a path resolved against Origin
		Origin  string `mapstructure:"origin"`
	} `mapstructure:"api"`

	Timeouts struct {
		Wake           time.Duration `mapstructure:"wake"`
		Analyze        time.Duration `mapstructure:"analyze"`
		ConnectionTest time.Duration `mapstructure:"connection_test"`
	} `mapstructure:"timeouts"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"log"`

	Export struct {
		Format string `mapstructure:"format"` // "txt" or "md"
		Dir    string `mapstructure:"dir"`
		S3     struct {
			Enabled   bool   `mapstructure:"enabled"`
			Bucket    string `mapstructure:"bucket"`
			Prefix    string `mapstructure:"prefix"`
			Region    string `mapstructure:"region"`
			Endpoint  string `mapstructure:"endpoint"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
		} `mapstructure:"s3"`
	} `mapstructure:"export"`

	Server struct {
		Addr        string `mapstructure:"addr"`
		MaxUploadMB int    `mapstructure:"max_upload_mb"`
	} `mapstructure:"server"`
}

// LoadOptions tweaks where LoadConfig looks.
type LoadOptions struct {
	ConfigFile string         // explicit config file; search paths are used when empty
	Flags      *pflag.FlagSet // flags that override config keys when set
	EnvFile    string         // dotenv file, defaults to .env
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.origin", DefaultOrigin)
	v.SetDefault("timeouts.wake", 45*time.Second)
	v.SetDefault("timeouts.analyze", 60*time.Second)
	v.SetDefault("timeouts.connection_test", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("export.format", "txt")
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.s3.enabled", false)
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.prefix", "")
	v.SetDefault("export.s3.region", "us-east-1")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.access_key", "")
	v.SetDefault("export.s3.secret_key", "")
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.max_upload_mb", 10)
}

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"base-url":  "api.base_url",
	"log-level": "log.level",
	"format":    "export.format",
	"save-dir":  "export.dir",
	"addr":      "server.addr",
}

func LoadConfig(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env is normal; real environment variables still apply.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The frontend's variable is honoured so one .env can serve both.
	v.BindEnv("api.base_url", envPrefix+"_API_URL", "REACT_APP_API_URL")
	v.BindEnv("export.s3.access_key", envPrefix+"_EXPORT_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	v.BindEnv("export.s3.secret_key", envPrefix+"_EXPORT_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults and environment")
	} else {
		log.WithField("file", v.ConfigFileUsed()).Debug("Using config file")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	config.Export.Format = strings.ToLower(strings.TrimSpace(config.Export.Format))
	return &config, nil
}

// ResolvedBaseURL returns the absolute analysis service root. A relative
// api.base_url (the frontend's "/api" proxy path) is joined onto api.origin.
func (c *Config) ResolvedBaseURL() (string, error) {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid api.base_url %q: %w", base, err)
	}
	if u.IsAbs() {
		return strings.TrimRight(u.String(), "/"), nil
	}

	origin, err := url.Parse(strings.TrimSpace(c.API.Origin))
	if err != nil || !origin.IsAbs() || origin.Host == "" {
		return "", fmt.Errorf("api.base_url %q is relative and api.origin %q is not an absolute URL", base, c.API.Origin)
	}
	return strings.TrimRight(origin.ResolveReference(u).String(), "/"), nil
}

// MaxUploadBytes is the multipart limit for the local API.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// UserConfigDir is $HOME/.config/resumelift.
func UserConfigDir() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "resumelift"), nil
}
