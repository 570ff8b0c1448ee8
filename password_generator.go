package multilogin

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	passwordLowercase = "abcdefghijklmnopqrstuvwxyz"
	passwordUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits    = "0123456789"
	passwordSymbols   = "!@#$%^&*()_-+=[]{}|:<>?"

	// DefaultPasswordLength is used when no explicit length is configured
	DefaultPasswordLength = 12
)

// PasswordGenerator produces random passwords from the union of the enabled
// character classes. The zero value is not usable; use NewPasswordGenerator.
type PasswordGenerator struct {
	length       int
	useLowercase bool
	useUppercase bool
	useDigits    bool
	useSymbols   bool
}

// PasswordGeneratorOption configures a PasswordGenerator
type PasswordGeneratorOption func(*PasswordGenerator)

// WithPasswordLength sets the generated password length
func WithPasswordLength(length int) PasswordGeneratorOption {
	return func(g *PasswordGenerator) {
		g.length = length
	}
}

// WithCharacterClasses selects which classes contribute characters
func WithCharacterClasses(lowercase, uppercase, digits, symbols bool) PasswordGeneratorOption {
	return func(g *PasswordGenerator) {
		g.useLowercase = lowercase
		g.useUppercase = uppercase
		g.useDigits = digits
		g.useSymbols = symbols
	}
}

// NewPasswordGenerator creates a generator with all classes enabled and the
// default length, then applies options
func NewPasswordGenerator(opts ...PasswordGeneratorOption) *PasswordGenerator {
	g := &PasswordGenerator{
		length:       DefaultPasswordLength,
		useLowercase: true,
		useUppercase: true,
		useDigits:    true,
		useSymbols:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Alphabet returns the union of the enabled character classes
func (g *PasswordGenerator) Alphabet() string {
	var sb strings.Builder
	if g.useLowercase {
		sb.WriteString(passwordLowercase)
	}
	if g.useUppercase {
		sb.WriteString(passwordUppercase)
	}
	if g.useDigits {
		sb.WriteString(passwordDigits)
	}
	if g.useSymbols {
		sb.WriteString(passwordSymbols)
	}
	return sb.String()
}

// Generate returns a random password drawn from the enabled classes
func (g *PasswordGenerator) Generate() (string, error) {
	if g.length <= 0 {
		return "", errors.New("password length must be positive", errors.CategoryBadInput)
	}

	alphabet := g.Alphabet()
	if alphabet == "" {
		return "", errors.New("at least one character class must be enabled", errors.CategoryBadInput)
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, g.length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes")
		}
		out[i] = alphabet[n.Int64()]
	}

	return string(out), nil
}
