package educonnect

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// IdentityClient is the contract consumed from the hosted identity service.
// GetSession returns nil without error when no session is live.
type IdentityClient interface {
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn AuthStateChangeFunc) Subscription
	SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error)
	SignInWithPassword(ctx context.Context, creds Credentials) (*AuthResult, error)
	SignOut(ctx context.Context) error
}

// ClientFactory builds the identity client bound to one application instance.
type ClientFactory func(instanceID string) IdentityClient

// Config holds session and routing options
type Config interface {
	GetSignInPath() string
	GetHomePath() string
	GetInstanceCookieName() string
	GetSigningKey() string
	GetCookieSecure() bool
	GetBootstrapTimeout() time.Duration
	GetBootstrapWait() time.Duration
	GetInstanceIdleTimeout() time.Duration
}

const (
	DefaultSignInPath         = "/auth/sign-in"
	DefaultSignUpPath         = "/auth/sign-up"
	DefaultHomePath           = "/"
	DefaultInstanceCookieName = "educonnect_instance"
	DefaultBootstrapTimeout   = 5 * time.Second
	DefaultBootstrapWait      = 750 * time.Millisecond
	DefaultInstanceIdle       = 30 * time.Minute
)

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] EDUCONNECT " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] EDUCONNECT " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] EDUCONNECT " + format(msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] EDUCONNECT " + format(msg, args...))
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, "%v", args[i])
	}
	b.WriteByte('\n')
	return b.String()
}

func ensureLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
