package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/connector"
)

// Config holds all oktify configuration.
type Config struct {
	Source      string        `envconfig:"OKTIFY_SOURCE" default:"okta" validate:"oneof=okta replay"`
	OktaDomain  string        `envconfig:"OKTA_DOMAIN" validate:"required_if=Source okta,https_url"`
	APIToken    string        `envconfig:"OKTA_API_TOKEN" validate:"required_if=Source okta"`
	AuthScheme  string        `envconfig:"OKTA_AUTH_SCHEME" default:"SSWS" validate:"oneof=SSWS Bearer"`
	ReplayFile  string        `envconfig:"OKTIFY_REPLAY_FILE" validate:"required_if=Source replay"`
	PageSize    int           `envconfig:"OKTIFY_PAGE_SIZE" default:"1000" validate:"min=1,max=1000"`
	MaxRetries  int           `envconfig:"OKTIFY_MAX_RETRIES" default:"5" validate:"min=0,max=20"`
	BackoffBase time.Duration `envconfig:"OKTIFY_BACKOFF_BASE" default:"1s" validate:"gt=0s"`
	BackoffMax  time.Duration `envconfig:"OKTIFY_BACKOFF_MAX" default:"60s" validate:"gtefield=BackoffBase"`
	HTTPTimeout time.Duration `envconfig:"OKTIFY_HTTP_TIMEOUT" default:"30s" validate:"gt=0s"`
	LogLevel    string        `envconfig:"OKTIFY_LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	MetricsFile string        `envconfig:"OKTIFY_METRICS_FILE"`
}

var validate = newValidator()

// Load reads the environment, then fills variables the environment leaves
// unset from .env files (missing files are ignored; earlier files win). The
// .env values are never written to the process environment. The result is
// not validated; call Validate after applying flag overrides.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	dotenv := make(map[string]string)
	for _, f := range envFiles {
		values, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", f, err)
		}
		for k, v := range values {
			if _, ok := dotenv[k]; !ok {
				dotenv[k] = v
			}
		}
	}
	if err := cfg.fill(dotenv); err != nil {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}
	return cfg, nil
}

// fill sets fields whose variable is absent from the environment and present
// in values.
func (c *Config) fill(values map[string]string) error {
	v := reflect.ValueOf(c).Elem()
	for i := range v.NumField() {
		key := v.Type().Field(i).Tag.Get("envconfig")
		raw, ok := values[key]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		f := v.Field(i)
		switch f.Interface().(type) {
		case time.Duration:
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			f.SetInt(int64(d))
		case int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			f.SetInt(int64(n))
		case string:
			f.SetString(raw)
		default:
			return fmt.Errorf("%s: unsupported field type %s", key, f.Type())
		}
	}
	return nil
}

// Validate checks field constraints. Messages name the environment variable.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

// Connector builds the channel descriptor for one run. Credentials live only
// in the returned value.
func (c Config) Connector(log *zap.Logger, obs connector.Observer) connector.ConnectorConfig {
	cc := connector.ConnectorConfig{
		Provider:   c.Source,
		APIKey:     c.APIToken,
		AuthScheme: c.AuthScheme,
		Endpoint:   strings.TrimRight(c.OktaDomain, "/"),
		Timeout:    c.HTTPTimeout,
		Retry: connector.RetryPolicy{
			MaxRetries: c.MaxRetries,
			BaseDelay:  c.BackoffBase,
			MaxDelay:   c.BackoffMax,
		},
		Logger:   log,
		Observer: obs,
	}
	if c.ReplayFile != "" {
		cc.Extra = map[string]string{"file": c.ReplayFile}
	}
	return cc
}

// Fields returns the configuration as log fields with the token redacted.
func (c Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("source", c.Source),
		zap.String("okta_domain", c.OktaDomain),
		zap.String("auth_scheme", c.AuthScheme),
		zap.Bool("token_set", c.APIToken != ""),
		zap.Int("page_size", c.PageSize),
		zap.Int("max_retries", c.MaxRetries),
		zap.Duration("backoff_base", c.BackoffBase),
		zap.Duration("backoff_max", c.BackoffMax),
		zap.Duration("http_timeout", c.HTTPTimeout),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
		return f.Name
	})
	// Empty values pass; presence is checked by required_if.
	v.RegisterValidation("https_url", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		u, err := url.Parse(s)
		return err == nil && u.Scheme == "https" && u.Host != ""
	})
	return v
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("%s is required", name)
	case "https_url":
		return fmt.Sprintf("%s must be an https:// URL, got %q", name, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than OKTIFY_BACKOFF_BASE", name)
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", name, fe.Tag(), fe.Param(), fe.Value())
	}
}
