package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/soap"
	"github.com/spf13/viper"
)

// Error is a sentinel error of this package.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrFileNotFound is returned when an explicitly named config file does
	// not exist.
	ErrFileNotFound Error = "config file not found"
)

// EnvPrefix prefixes every environment override, e.g. SOAPD_SERVER_ADDRESS.
const EnvPrefix = "SOAPD"

// Config is the daemon configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Service   ServiceConfig   `mapstructure:"service"`

	// Classmap entries of the soap section. Kept as a list because viper
	// lower-cases map keys and wire type names are case-sensitive.
	Classmap []ClassmapEntry `mapstructure:"-"`

	file string
	v    *viper.Viper
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level     string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format    string `mapstructure:"format" validate:"oneof=text json"`
	File      string `mapstructure:"file"`
	AddSource bool   `mapstructure:"add_source"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required,hostname_port"`
	Path            string        `mapstructure:"path" validate:"required,startswith=/"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	WSDLFile        string        `mapstructure:"wsdl_file"`
	WSDLCacheDir    string        `mapstructure:"wsdl_cache_dir"`
	TLS             TLSConfig     `mapstructure:"tls"`
}

// TLSConfig configures HTTPS.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	// AutoGenerate creates a self-signed certificate when the files are missing.
	AutoGenerate bool     `mapstructure:"auto_generate"`
	Hosts        []string `mapstructure:"hosts"`
}

// AuthConfig configures JWT bearer authentication.
type AuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Rate           float64  `mapstructure:"rate" validate:"gt=0"`
	Burst          int      `mapstructure:"burst" validate:"gte=0"`
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,cidr|ip"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

// ServiceConfig selects what the daemon exposes from the service catalog.
type ServiceConfig struct {
	// Class is a catalog type whose methods become operations.
	Class string `mapstructure:"class"`
	// Namespace is the optional namespace of the class binding.
	Namespace string `mapstructure:"namespace"`
	// Args are passed to the catalog constructor of Class.
	Args []any `mapstructure:"args"`
	// Functions lists catalog functions; "all" exposes every function.
	Functions []string `mapstructure:"functions"`
	// Persistence is one of none, session or request.
	Persistence string `mapstructure:"persistence" validate:"oneof=none session request"`
	// FaultExceptions lists error type names returned to callers verbatim.
	FaultExceptions []string `mapstructure:"fault_exceptions"`
}

// ClassmapEntry maps one wire type to a catalog type.
type ClassmapEntry struct {
	Type  string `mapstructure:"type" yaml:"type"`
	Class string `mapstructure:"class" yaml:"class"`
}

// PersistenceMode converts Persistence to the soap constant.
func (s ServiceConfig) PersistenceMode() soap.Persistence {
	switch strings.ToLower(s.Persistence) {
	case "session":
		return soap.PersistenceSession
	case "request":
		return soap.PersistenceRequest
	default:
		return soap.PersistenceNone
	}
}

// FunctionNames returns Functions with "all" replaced by soap.FunctionsAll.
func (s ServiceConfig) FunctionNames() []string {
	out := make([]string, 0, len(s.Functions))
	for _, fn := range s.Functions {
		if strings.EqualFold(fn, "all") {
			fn = soap.FunctionsAll
		}
		out = append(out, fn)
	}
	return out
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level { return logging.ParseLevel(c.Logging.Level) }

// File returns the config file that was read, or "" when none was.
func (c *Config) File() string { return c.file }

// SOAPOptions returns the soap section as an option bag for
// soap.Server.SetOptions. It is never nil.
func (c *Config) SOAPOptions() soap.ConfigSource {
	src := optionSource{classmap: make(map[string]string, len(c.Classmap))}
	if c.v != nil {
		src.sub = c.v.Sub("soap")
	}
	for _, e := range c.Classmap {
		src.classmap[e.Type] = e.Class
	}
	return src
}

type optionSource struct {
	sub      *viper.Viper
	classmap map[string]string
}

func (s optionSource) AllSettings() map[string]any {
	out := map[string]any{}
	if s.sub != nil {
		maps.Copy(out, s.sub.AllSettings())
	}
	delete(out, soap.OptClassmap)
	if len(s.classmap) > 0 {
		out[soap.OptClassmap] = maps.Clone(s.classmap)
	}
	return out
}

// Load reads configuration from path, or from the default search path when
// path is empty, applies SOAPD_* environment overrides and defaults, and
// validates the result. A missing file is only an error when path is set.
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v, path)

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := v.UnmarshalKey("soap.classmap", &cfg.Classmap); err != nil {
		return nil, fmt.Errorf("soap.classmap: expected a list of {type, class}: %w", err)
	}
	cfg.v = v
	cfg.file = v.ConfigFileUsed()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, path string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		return
	}
	v.SetConfigName("soapd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(configDir())
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// configDir returns $XDG_CONFIG_HOME/soapd or ~/.config/soapd.
func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "soapd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "soapd")
}
