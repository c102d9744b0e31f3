package jwt

import (
	"fmt"
	"time"
)

// Options holds JWT authenticator configuration.
type Options struct {
	// Key is the HMAC signing key. Must be at least 32 bytes.
	Key string `json:"key" mapstructure:"key"`

	// SigningMethod is the signing algorithm. Only HMAC variants are
	// supported.
	SigningMethod string `json:"signing-method" mapstructure:"signing-method"`

	// Expired is the token lifetime.
	Expired time.Duration `json:"expired" mapstructure:"expired"`

	// Issuer is the token issuer claim.
	Issuer string `json:"issuer" mapstructure:"issuer"`
}

// NewOptions creates Options with defaults. Access tokens are session-like
// and last 8 hours.
func NewOptions() *Options {
	return &Options{
		SigningMethod: "HS256",
		Expired:       8 * time.Hour,
		Issuer:        "unibot",
	}
}

// Validate checks whether the options are usable.
func (o *Options) Validate() error {
	if len(o.Key) < 32 {
		return fmt.Errorf("jwt key must be at least 32 characters, got %d", len(o.Key))
	}
	switch o.SigningMethod {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported signing method: %s", o.SigningMethod)
	}
	if o.Expired <= 0 {
		return fmt.Errorf("token lifetime must be positive")
	}
	return nil
}
