package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
	ErrSessionMissing   = errors.New("CSRF session key missing")
)

// DefaultNonceLength is the number of random bytes in a token
const DefaultNonceLength = 16

// DefaultContextKey is the locals key holding the request token
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the form field carrying the token on posts
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the header carrying the token on scripted requests
const DefaultHeaderName = "X-CSRF-Token"

// Config defines the configuration for the CSRF middleware. Tokens are
// stateless: an HMAC over a timestamp, a nonce and the session key.
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// SessionKey returns the value tokens are bound to, usually the
	// application instance id. Required.
	SessionKey func(router.Context) string

	NonceLength   int
	ContextKey    string
	FormFieldName string
	HeaderName    string

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long tokens are valid
	Expiration time.Duration

	// SecureKey signs tokens, at least 32 bytes
	SecureKey []byte

	ErrorHandler router.ErrorHandler
}

// New creates a new CSRF middleware
func New(config Config) router.MiddlewareFunc {
	cfg := configDefault(config)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			session := cfg.SessionKey(ctx)
			if session == "" {
				return cfg.ErrorHandler(ctx, ErrSessionMissing)
			}

			token, err := Generate(cfg.SecureKey, session, cfg.NonceLength)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return next(ctx)
			}

			received := ctx.FormValue(cfg.FormFieldName)
			if received == "" {
				received = ctx.GetString(cfg.HeaderName, "")
			}

			if err := Validate(cfg.SecureKey, session, received, cfg.Expiration); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return next(ctx)
		}
	}
}

// Generate signs a new token bound to session
func Generate(key []byte, session string, nonceLength int) (string, error) {
	if len(key) == 0 {
		return "", ErrSecureKeyMissing
	}
	if nonceLength <= 0 {
		nonceLength = DefaultNonceLength
	}

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d:%s:%s", time.Now().UTC().Unix(), hex.EncodeToString(nonce), session)
	token := payload + ":" + hex.EncodeToString(sign(key, payload))

	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// Validate checks the signature, the session binding and, when maxAge is
// positive, the age of token.
func Validate(key []byte, session, token string, maxAge time.Duration) error {
	if len(key) == 0 {
		return ErrSecureKeyMissing
	}

	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	// the session key may itself contain ':'
	parts := strings.Split(string(decoded), ":")
	if len(parts) < 4 {
		return ErrTokenMismatch
	}

	signatureHex := parts[len(parts)-1]
	payload := strings.Join(parts[:len(parts)-1], ":")
	sessionFromToken := strings.Join(parts[2:len(parts)-1], ":")

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(parts[1]); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(key, payload)) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(sessionFromToken), []byte(session)) != 1 {
		return ErrTokenMismatch
	}

	if maxAge > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(maxAge)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func configDefault(cfg Config) Config {
	if cfg.NonceLength == 0 {
		cfg.NonceLength = DefaultNonceLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.SessionKey == nil {
		cfg.SessionKey = func(ctx router.Context) string { return "ip_" + ctx.IP() }
	}

	if len(cfg.SecureKey) < 32 {
		panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(cfg.SecureKey)))
	}

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch err {
	case ErrTokenMissing:
		return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
	case ErrTokenMismatch:
		return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
	case ErrTokenExpired:
		return ctx.Status(router.StatusForbidden).SendString("CSRF token expired")
	default:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
	}
}

// TemplateHelpers returns the token values for the current request, ready
// to be merged into a view context.
func TemplateHelpers(ctx router.Context) map[string]any {
	token, _ := ctx.Locals(DefaultContextKey).(string)

	fieldName := DefaultFormFieldName
	if val, ok := ctx.Locals(DefaultContextKey + "_field").(string); ok && val != "" {
		fieldName = val
	}

	headerName := DefaultHeaderName
	if val, ok := ctx.Locals(DefaultContextKey + "_header").(string); ok && val != "" {
		headerName = val
	}

	return map[string]any{
		"csrf_token":       token,
		"csrf_field":       `<input type="hidden" name="` + fieldName + `" value="` + token + `">`,
		"csrf_meta":        `<meta name="csrf-token" content="` + token + `">`,
		"csrf_header_name": headerName,
	}
}
