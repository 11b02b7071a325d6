package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values. Every key is given a default so that it can be
// overridden from the environment without appearing in a file.
const (
	DefaultAddress         = ":8080"
	DefaultPath            = "/"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxBodyBytes    = 10 << 20
	DefaultRate            = 100.0
	DefaultBurst           = 200
	DefaultMetricsPath     = "/metrics"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("server.address", DefaultAddress)
	v.SetDefault("server.path", DefaultPath)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("server.wsdl_file", "")
	v.SetDefault("server.wsdl_cache_dir", "")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")
	v.SetDefault("server.tls.auto_generate", false)
	v.SetDefault("server.tls.hosts", []string{})

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rate", DefaultRate)
	v.SetDefault("rate_limit.burst", DefaultBurst)
	v.SetDefault("rate_limit.trusted_proxies", []string{})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", DefaultMetricsPath)

	v.SetDefault("service.class", "")
	v.SetDefault("service.namespace", "")
	v.SetDefault("service.args", []any{})
	v.SetDefault("service.functions", []string{})
	v.SetDefault("service.persistence", "none")
	v.SetDefault("service.fault_exceptions", []string{})
}
