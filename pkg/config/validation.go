package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 16

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg with struct tags and then the rules tags cannot
// express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Service.Class == "" && len(cfg.Service.Functions) == 0 {
		return errors.New("service: either class or functions must be configured")
	}
	if cfg.Auth.Enabled && len(cfg.Auth.Secret) < MinSecretLength {
		return fmt.Errorf("auth.secret: must be at least %d bytes when auth is enabled", MinSecretLength)
	}
	if t := cfg.Server.TLS; t.Enabled && !t.AutoGenerate && (t.CertFile == "" || t.KeyFile == "") {
		return errors.New("server.tls: cert_file and key_file are required unless auto_generate is set")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Path == cfg.Server.Path {
		return fmt.Errorf("metrics.path: %q is already used by server.path", cfg.Metrics.Path)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Path == "/healthz" {
		return errors.New("metrics.path: /healthz is reserved")
	}
	for i, e := range cfg.Classmap {
		if strings.TrimSpace(e.Type) == "" || strings.TrimSpace(e.Class) == "" {
			return fmt.Errorf("soap.classmap[%d]: type and class are required", i)
		}
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
