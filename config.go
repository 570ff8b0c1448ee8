package multilogin

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// AppConfig is the immutable service configuration, loaded once at startup.
// It satisfies the Config interface consumed by the components.
type AppConfig struct {
	BindAddress string `env:"BIND_ADDRESS" envDefault:":8080"`
	DSN         string `env:"DSN" envDefault:"file::memory:?cache=shared"`

	SigningKey     string        `env:"JWT_KEY,required"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"multilogin"`
	Audience       []string      `env:"JWT_AUDIENCE" envSeparator:","`
	TokenTTL       time.Duration `env:"JWT_LIFETIME" envDefault:"1h"`
	VerifyIssuer   bool          `env:"JWT_VERIFY_ISSUER" envDefault:"true"`
	VerifyAudience bool          `env:"JWT_VERIFY_AUDIENCE" envDefault:"false"`

	HashingSecret string `env:"SECRET_PASSWORD,required"`

	AssertionIssuer   string `env:"ASSERTION_ISSUER" envDefault:"https://accounts.google.com"`
	AssertionAudience string `env:"GOOGLE_CLIENT"`
	AutoProvision     bool   `env:"AUTO_PROVISION" envDefault:"true"`

	ForwardTarget  string        `env:"FORWARD_TARGET"`
	ForwardTimeout time.Duration `env:"FORWARD_TIMEOUT" envDefault:"10s"`
}

// Verify interface compliance
var _ Config = (*AppConfig)(nil)

// LoadConfig parses the environment into an AppConfig
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment configuration")
	}
	return cfg, nil
}

func (c *AppConfig) GetSigningKey() string { return c.SigningKey }
func (c *AppConfig) GetIssuer() string { return c.Issuer }
func (c *AppConfig) GetAudience() []string { return c.Audience }
func (c *AppConfig) GetTokenTTL() time.Duration { return c.TokenTTL }
func (c *AppConfig) GetVerifyIssuer() bool { return c.VerifyIssuer }
func (c *AppConfig) GetVerifyAudience() bool { return c.VerifyAudience }
func (c *AppConfig) GetHashingSecret() string { return c.HashingSecret }
func (c *AppConfig) GetAssertionIssuer() string { return c.AssertionIssuer }
func (c *AppConfig) GetAssertionAudience() string { return c.AssertionAudience }
func (c *AppConfig) GetAutoProvision() bool { return c.AutoProvision }
func (c *AppConfig) GetForwardTarget() string { return c.ForwardTarget }
func (c *AppConfig) GetForwardTimeout() time.Duration { return c.ForwardTimeout }
