// Package kratos implements educonnect.IdentityClient on top of the Ory
// Kratos native (API) flows. Session tokens are kept per application
// instance in a tokenstore.Store.
package kratos

import (
	"context"
	"net/http"
	"strings"
	"time"

	client "github.com/ory/kratos-client-go"

	"github.com/goliatone/go-educonnect"
	"github.com/goliatone/go-educonnect/tokenstore"
)

const (
	methodPassword = "password"
	traitEmail     = "email"
)

// DefaultTokenTTL is used when Kratos does not report a session expiry.
const DefaultTokenTTL = 24 * time.Hour

// Config describes the Kratos public endpoint.
type Config struct {
	PublicURL string
	Timeout   time.Duration
}

// NewAPIClient builds the generated Kratos API client.
func NewAPIClient(cfg Config) *client.APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	conf := client.NewConfiguration()
	conf.Servers = []client.ServerConfiguration{{URL: strings.TrimRight(cfg.PublicURL, "/")}}
	conf.HTTPClient = &http.Client{Timeout: timeout}
	if conf.DefaultHeader == nil {
		conf.DefaultHeader = map[string]string{}
	}
	conf.DefaultHeader["Accept"] = "application/json"

	return client.NewAPIClient(conf)
}

// NewFactory returns a ClientFactory sharing api and tokens between
// instances.
func NewFactory(api *client.APIClient, tokens tokenstore.Store, logger educonnect.Logger) educonnect.ClientFactory {
	return func(instanceID string) educonnect.IdentityClient {
		return New(api, tokens, instanceID).WithLogger(logger)
	}
}

// Client is the identity client of a single application instance.
type Client struct {
	educonnect.AuthBroadcaster

	api        *client.APIClient
	tokens     tokenstore.Store
	instanceID string
	logger     educonnect.Logger
	now        func() time.Time
}

var _ educonnect.IdentityClient = (*Client)(nil)

func New(api *client.APIClient, tokens tokenstore.Store, instanceID string) *Client {
	return &Client{
		api:        api,
		tokens:     tokens,
		instanceID: instanceID,
		logger:     nopLogger{},
		now:        time.Now,
	}
}

func (c *Client) WithLogger(logger educonnect.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// GetSession resolves the stored token with Kratos. A token Kratos no
// longer accepts is dropped and reported as no session.
func (c *Client) GetSession(ctx context.Context) (*educonnect.Session, error) {
	token, err := c.tokens.Get(ctx, c.instanceID)
	if err != nil {
		return nil, rebase(educonnect.ErrIdentityUnavailable, err, map[string]any{"operation": "token_lookup"})
	}
	if token == "" {
		return nil, nil
	}

	sess, resp, err := c.api.FrontendAPI.
		ToSession(ctx).
		XSessionToken(token).
		Execute()
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			c.logger.Debug("stored session token rejected, clearing", "instance", c.instanceID)
			c.dropToken(ctx)
			return nil, nil
		}
		return nil, transformError(err, resp, "get_session")
	}

	return toSession(sess), nil
}

// SignUp registers an identity with the password method. The role travels
// in the user_type trait.
func (c *Client) SignUp(ctx context.Context, req educonnect.SignUpRequest) (*educonnect.AuthResult, error) {
	flow, resp, err := c.api.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, transformError(err, resp, "registration_flow_create")
	}

	traits := map[string]interface{}{traitEmail: req.Email}
	for key, value := range req.Metadata {
		traits[key] = value
	}

	body := client.UpdateRegistrationFlowWithPasswordMethod{
		Method:   methodPassword,
		Password: req.Password,
		Traits:   traits,
	}

	out, resp, err := c.api.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(client.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&body)).
		Execute()
	if err != nil {
		return nil, transformError(err, resp, "registration_flow_submit")
	}

	identity := out.GetIdentity()
	result := &educonnect.AuthResult{Identity: toIdentity(&identity)}

	if out.HasSession() && out.GetSessionToken() != "" {
		sess := out.GetSession()
		session := toSession(&sess)
		if session.Identity == nil {
			session.Identity = result.Identity
		}
		if err := c.storeToken(ctx, out.GetSessionToken(), session); err != nil {
			return nil, err
		}
		result.Session = session
		c.Emit(educonnect.AuthEventSignedIn, session)
	}

	return result, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, creds educonnect.Credentials) (*educonnect.AuthResult, error) {
	flow, resp, err := c.api.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, transformError(err, resp, "login_flow_create")
	}

	body := client.UpdateLoginFlowWithPasswordMethod{
		Method:     methodPassword,
		Identifier: creds.Email,
		Password:   creds.Password,
	}

	out, resp, err := c.api.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(client.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&body)).
		Execute()
	if err != nil {
		return nil, transformError(err, resp, "login_flow_submit")
	}

	sess := out.GetSession()
	session := toSession(&sess)
	if err := c.storeToken(ctx, out.GetSessionToken(), session); err != nil {
		return nil, err
	}

	c.Emit(educonnect.AuthEventSignedIn, session)

	return &educonnect.AuthResult{
		Identity: session.Identity,
		Session:  session,
	}, nil
}

// SignOut revokes the stored token. The local token is dropped and
// listeners are notified even when Kratos can not be reached.
func (c *Client) SignOut(ctx context.Context) error {
	token, err := c.tokens.Get(ctx, c.instanceID)
	if err != nil {
		c.logger.Warn("session token lookup failed during sign out", "instance", c.instanceID, "error", err)
	}

	var out error
	if token != "" {
		resp, err := c.api.FrontendAPI.
			PerformNativeLogout(ctx).
			PerformNativeLogoutBody(*client.NewPerformNativeLogoutBody(token)).
			Execute()
		if err != nil && !isGone(resp) {
			out = transformError(err, resp, "logout")
		}
	}

	c.dropToken(ctx)
	c.Emit(educonnect.AuthEventSignedOut, nil)

	return out
}

func (c *Client) storeToken(ctx context.Context, token string, session *educonnect.Session) error {
	if token == "" {
		return nil
	}

	ttl := DefaultTokenTTL
	if session != nil && !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(c.now())
	}

	if err := c.tokens.Set(ctx, c.instanceID, token, ttl); err != nil {
		return rebase(educonnect.ErrIdentityUnavailable, err, map[string]any{"operation": "token_store"})
	}
	return nil
}

func (c *Client) dropToken(ctx context.Context) {
	if err := c.tokens.Delete(ctx, c.instanceID); err != nil {
		c.logger.Warn("failed to delete session token", "instance", c.instanceID, "error", err)
	}
}

// isGone reports responses meaning the session is already invalid.
func isGone(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
