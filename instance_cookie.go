package educonnect

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const instanceIssuer = "educonnect"

// InstanceCookieTTL is how long a browser keeps its instance id.
const InstanceCookieTTL = 30 * 24 * time.Hour

var ErrInstanceCookieInvalid = errors.New("invalid instance cookie", errors.CategoryAuth).
	WithTextCode("INSTANCE_COOKIE_INVALID").
	WithCode(errors.CodeUnauthorized)

// InstanceCookie signs and verifies the cookie that ties a browser to its
// application instance.
type InstanceCookie struct {
	key    []byte
	ttl    time.Duration
	logger Logger
}

func NewInstanceCookie(signingKey string) *InstanceCookie {
	return &InstanceCookie{
		key:    []byte(signingKey),
		ttl:    InstanceCookieTTL,
		logger: defLogger{},
	}
}

func (c *InstanceCookie) WithTTL(ttl time.Duration) *InstanceCookie {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

func (c *InstanceCookie) WithLogger(logger Logger) *InstanceCookie {
	c.logger = ensureLogger(logger)
	return c
}

// TTL returns the cookie lifetime.
func (c *InstanceCookie) TTL() time.Duration {
	return c.ttl
}

// Issue returns a signed token carrying id as subject.
func (c *InstanceCookie) Issue(id string) (string, error) {
	if id == "" {
		return "", errors.New("instance id must not be empty", errors.CategoryInternal)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id,
		Issuer:    instanceIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign instance cookie")
	}
	return signed, nil
}

// Parse verifies token and returns the instance id it carries.
func (c *InstanceCookie) Parse(token string) (string, error) {
	if token == "" {
		return "", ErrInstanceCookieInvalid
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Warn("instance cookie with unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	}, jwt.WithIssuer(instanceIssuer))

	if err != nil {
		return "", errors.Wrap(err, ErrInstanceCookieInvalid.Category, ErrInstanceCookieInvalid.Message).
			WithTextCode(ErrInstanceCookieInvalid.TextCode).
			WithCode(ErrInstanceCookieInvalid.Code)
	}

	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInstanceCookieInvalid
	}

	return claims.Subject, nil
}
