package config

import (
	stderrors "errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/vango-dev/start/internal/errors"
	"github.com/vango-dev/start/pkg/render"
)

const (
	// ConfigName is the configuration file name without extension.
	ConfigName = "start"

	// EnvPrefix prefixes environment overrides, e.g. START_RENDER_MODE.
	EnvPrefix = "START"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

type RenderConfig struct {
	Mode          string        `mapstructure:"mode"`
	SSR           bool          `mapstructure:"ssr"`
	IslandsRouter bool          `mapstructure:"islands_router"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Nonce         string        `mapstructure:"nonce"`
}

type RPCConfig struct {
	MaxBodyBytes         int64    `mapstructure:"max_body_bytes"`
	AllowedRedirectHosts []string `mapstructure:"allowed_redirect_hosts"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// StaticConfig selects where prebuilt documents and assets come from. Dir
// wins over S3 when both are set.
type StaticConfig struct {
	Dir          string   `mapstructure:"dir"`
	AssetsPrefix string   `mapstructure:"assets_prefix"`
	S3           S3Config `mapstructure:"s3"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Stdout bool `mapstructure:"stdout"`
}

type CompressionConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the complete start.yaml configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Render      RenderConfig      `mapstructure:"render"`
	RPC         RPCConfig         `mapstructure:"rpc"`
	Static      StaticConfig      `mapstructure:"static"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Compression CompressionConfig `mapstructure:"compression"`

	v *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)
	v.SetDefault("render.mode", "stream")
	v.SetDefault("render.ssr", true)
	v.SetDefault("render.islands_router", false)
	v.SetDefault("render.timeout", "0s")
	v.SetDefault("render.nonce", "")
	v.SetDefault("rpc.max_body_bytes", 1<<20)
	v.SetDefault("rpc.allowed_redirect_hosts", []string{})
	v.SetDefault("static.dir", "")
	v.SetDefault("static.assets_prefix", "/_build")
	v.SetDefault("static.s3.bucket", "")
	v.SetDefault("static.s3.prefix", "")
	v.SetDefault("static.s3.region", "us-east-1")
	v.SetDefault("static.s3.endpoint", "")
	v.SetDefault("static.s3.path_style", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("tracing.stdout", false)
	v.SetDefault("compression.enabled", true)
}

// Load reads configuration. An empty path searches for start.yaml (or
// .json, .toml) in the working directory and ./config; a missing file then
// means defaults plus environment. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, errors.New("E151").Wrap(err)
		}
		slog.Debug("config file not found, using defaults and environment variables")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("E151").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New("E150").Wrap(err)
	}
	return cfg, nil
}

// File returns the configuration file in use, or "".
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch reloads the file on change and passes each valid revision to
// onChange. Invalid revisions are logged and skipped. It reports false
// when no file was loaded.
func (c *Config) Watch(logger *slog.Logger, onChange func(*Config)) bool {
	if c.File() == "" {
		return false
	}
	var mu sync.Mutex
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		mu.Lock()
		defer mu.Unlock()

		next, err := decode(c.v)
		if err != nil {
			logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		logger.Info("config reloaded", "file", e.Name)
		onChange(next)
	})
	c.v.WatchConfig()
	return true
}

// RenderMode returns the parsed render mode.
func (c *Config) RenderMode() render.Mode {
	m, _ := render.ParseMode(c.Render.Mode)
	return m
}

// RenderOptions converts the render section to orchestrator options.
func (c *Config) RenderOptions() []render.Option {
	opts := []render.Option{
		render.WithMode(c.RenderMode()),
		render.WithTimeout(c.Render.Timeout),
		render.WithNonce(c.Render.Nonce),
	}
	if !c.Render.SSR {
		opts = append(opts, render.WithoutSSR())
	}
	if c.Render.IslandsRouter {
		opts = append(opts, render.WithIslandsRouter())
	}
	return opts
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.By(func(value interface{}) error {
			sc := value.(ServerConfig)
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.Environment,
					validation.Required,
					validation.In(EnvDev, EnvProd),
				),
				validation.Field(&sc.Address,
					validation.Required,
					validation.By(validateHostPort),
				),
				validation.Field(&sc.ShutdownTimeout, validation.Min(time.Duration(0))),
			)
		})),
		validation.Field(&c.Logging, validation.By(func(value interface{}) error {
			lc := value.(LoggingConfig)
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Level,
					validation.Required,
					validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
				),
			)
		})),
		validation.Field(&c.Render, validation.By(func(value interface{}) error {
			rc := value.(RenderConfig)
			return validation.ValidateStruct(&rc,
				validation.Field(&rc.Mode,
					validation.Required,
					validation.In("sync", "async", "stream"),
				),
				validation.Field(&rc.Timeout, validation.Min(time.Duration(0))),
			)
		})),
		validation.Field(&c.RPC, validation.By(func(value interface{}) error {
			rc := value.(RPCConfig)
			return validation.ValidateStruct(&rc,
				validation.Field(&rc.MaxBodyBytes, validation.Required, validation.Min(int64(1))),
				validation.Field(&rc.AllowedRedirectHosts, validation.Each(is.Host)),
			)
		})),
		validation.Field(&c.Static, validation.By(func(value interface{}) error {
			sc := value.(StaticConfig)
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.AssetsPrefix,
					validation.Required,
					validation.By(validatePathPrefix),
				),
				validation.Field(&sc.S3, validation.By(validateS3)),
			)
		})),
		validation.Field(&c.Metrics, validation.By(func(value interface{}) error {
			mc := value.(MetricsConfig)
			if !mc.Enabled {
				return nil
			}
			return validation.ValidateStruct(&mc,
				validation.Field(&mc.Path, validation.Required, validation.By(validatePathPrefix)),
			)
		})),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}
	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}
	return nil
}

func validatePathPrefix(value interface{}) error {
	p, _ := value.(string)
	if !strings.HasPrefix(p, "/") {
		return validation.NewError("validation_invalid_path", "must start with /")
	}
	return nil
}

func validateS3(value interface{}) error {
	sc, ok := value.(S3Config)
	if !ok || sc.Bucket == "" {
		return nil
	}
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Region, validation.Required),
		validation.Field(&sc.Endpoint, validation.By(validateEndpoint)),
	)
}

func validateEndpoint(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if u.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}
