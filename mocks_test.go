package educonnect_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-educonnect"
)

// FakeClient is an in memory IdentityClient. It behaves like the Kratos
// client: sign in and sign out push auth transitions to listeners.
type FakeClient struct {
	educonnect.AuthBroadcaster

	mu         sync.Mutex
	session    *educonnect.Session
	sessionErr error
	// gate, when set, holds GetSession until it is closed
	gate chan struct{}

	SignUpFn func(ctx context.Context, req educonnect.SignUpRequest) (*educonnect.AuthResult, error)
	SignInFn func(ctx context.Context, creds educonnect.Credentials) (*educonnect.AuthResult, error)

	signOutErr   error
	signOutCalls int
	sessionCalls int
	lastSignUp   educonnect.SignUpRequest
}

var _ educonnect.IdentityClient = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (f *FakeClient) WithSession(session *educonnect.Session) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = session
	return f
}

func (f *FakeClient) WithSessionError(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionErr = err
	return f
}

func (f *FakeClient) WithGate(gate chan struct{}) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
	return f
}

func (f *FakeClient) WithSignOutError(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutErr = err
	return f
}

func (f *FakeClient) GetSession(ctx context.Context) (*educonnect.Session, error) {
	f.mu.Lock()
	f.sessionCalls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessionErr
}

func (f *FakeClient) SignUp(ctx context.Context, req educonnect.SignUpRequest) (*educonnect.AuthResult, error) {
	f.mu.Lock()
	f.lastSignUp = req
	fn := f.SignUpFn
	f.mu.Unlock()

	if fn == nil {
		return nil, educonnect.ErrIdentityUnavailable
	}

	res, err := fn(ctx, req)
	if err == nil && res != nil && res.Session != nil {
		f.Emit(educonnect.AuthEventSignedIn, res.Session)
	}
	return res, err
}

func (f *FakeClient) SignInWithPassword(ctx context.Context, creds educonnect.Credentials) (*educonnect.AuthResult, error) {
	if f.SignInFn == nil {
		return nil, educonnect.ErrCredentials
	}

	res, err := f.SignInFn(ctx, creds)
	if err == nil && res != nil && res.Session != nil {
		f.Emit(educonnect.AuthEventSignedIn, res.Session)
	}
	return res, err
}

func (f *FakeClient) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	err := f.signOutErr
	f.mu.Unlock()

	f.Emit(educonnect.AuthEventSignedOut, nil)
	return err
}

func (f *FakeClient) SignOutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

func (f *FakeClient) SessionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionCalls
}

func (f *FakeClient) LastSignUp() educonnect.SignUpRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSignUp
}

// MockProfiles implements educonnect.Profiles
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) Provision(ctx context.Context, role educonnect.Role, id uuid.UUID) (educonnect.Profile, error) {
	args := m.Called(ctx, role, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(educonnect.Profile), args.Error(1)
}

func (m *MockProfiles) Get(ctx context.Context, role educonnect.Role, id uuid.UUID) (educonnect.Profile, error) {
	args := m.Called(ctx, role, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(educonnect.Profile), args.Error(1)
}

func (m *MockProfiles) GetOrganization(ctx context.Context, id uuid.UUID) (*educonnect.OrganizationProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*educonnect.OrganizationProfile), args.Error(1)
}

func (m *MockProfiles) GetEducator(ctx context.Context, id uuid.UUID) (*educonnect.EducatorProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*educonnect.EducatorProfile), args.Error(1)
}

func (m *MockProfiles) UpdateOrganization(ctx context.Context, record *educonnect.OrganizationProfile) (*educonnect.OrganizationProfile, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*educonnect.OrganizationProfile), args.Error(1)
}

func (m *MockProfiles) UpdateEducator(ctx context.Context, record *educonnect.EducatorProfile) (*educonnect.EducatorProfile, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*educonnect.EducatorProfile), args.Error(1)
}

// MockRequirements implements educonnect.Requirements
type MockRequirements struct {
	mock.Mock
}

func (m *MockRequirements) Create(ctx context.Context, record *educonnect.TeachingRequirement) (*educonnect.TeachingRequirement, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*educonnect.TeachingRequirement), args.Error(1)
}

func (m *MockRequirements) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*educonnect.TeachingRequirement, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*educonnect.TeachingRequirement), args.Error(1)
}

// stubRepo implements educonnect.RepositoryManager over the mocks.
type stubRepo struct {
	profiles     educonnect.Profiles
	requirements educonnect.Requirements
}

func (s *stubRepo) Validate() error { return nil }
func (s *stubRepo) MustValidate()   {}

func (s *stubRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return nil
}

func (s *stubRepo) Profiles() educonnect.Profiles         { return s.profiles }
func (s *stubRepo) Requirements() educonnect.Requirements { return s.requirements }

// capturingSink records activity events. Events can arrive from bootstrap
// goroutines.
type capturingSink struct {
	mu     sync.Mutex
	events []educonnect.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt educonnect.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) Events() []educonnect.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]educonnect.ActivityEvent(nil), c.events...)
}

func (c *capturingSink) Types() []educonnect.ActivityEventType {
	out := []educonnect.ActivityEventType{}
	for _, evt := range c.Events() {
		out = append(out, evt.EventType)
	}
	return out
}

func (c *capturingSink) Find(eventType educonnect.ActivityEventType) (educonnect.ActivityEvent, bool) {
	for _, evt := range c.Events() {
		if evt.EventType == eventType {
			return evt, true
		}
	}
	return educonnect.ActivityEvent{}, false
}

func (c *capturingSink) Has(eventType educonnect.ActivityEventType) bool {
	_, ok := c.Find(eventType)
	return ok
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

const testSigningKey = "0123456789abcdef0123456789abcdef"

type testConfig struct {
	bootstrapWait time.Duration
	signInPath    string
	homePath      string
}

func (c testConfig) GetSignInPath() string {
	if c.signInPath != "" {
		return c.signInPath
	}
	return educonnect.DefaultSignInPath
}

func (c testConfig) GetHomePath() string {
	if c.homePath != "" {
		return c.homePath
	}
	return educonnect.DefaultHomePath
}

func (c testConfig) GetInstanceCookieName() string { return educonnect.DefaultInstanceCookieName }
func (c testConfig) GetSigningKey() string         { return testSigningKey }
func (c testConfig) GetCookieSecure() bool         { return false }
func (c testConfig) GetBootstrapTimeout() time.Duration {
	return time.Second
}
func (c testConfig) GetBootstrapWait() time.Duration {
	if c.bootstrapWait > 0 {
		return c.bootstrapWait
	}
	return time.Second
}
func (c testConfig) GetInstanceIdleTimeout() time.Duration { return time.Hour }

func newIdentity(role educonnect.Role) *educonnect.Identity {
	identity := &educonnect.Identity{
		ID:    uuid.NewString(),
		Email: string(role) + "@example.com",
	}
	if role != educonnect.RoleNone {
		identity.Metadata = map[string]any{educonnect.MetadataUserType: string(role)}
	}
	return identity
}

func sessionFor(identity *educonnect.Identity) *educonnect.Session {
	return &educonnect.Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// newTestInstance returns a started instance whose initial lookup found no
// session, with identity then placed in its store.
func newTestInstance(t *testing.T, client *FakeClient, identity *educonnect.Identity) (*educonnect.InstanceRegistry, *educonnect.Instance) {
	t.Helper()

	registry := educonnect.NewInstanceRegistry(func(string) educonnect.IdentityClient {
		return client
	}).WithLogger(nopLogger{})

	inst := registry.Resolve(context.Background(), "")
	require.True(t, inst.WaitReady(context.Background(), time.Second), "bootstrap should settle")

	if identity != nil {
		inst.Store().SetIdentity(identity)
	}

	t.Cleanup(registry.Close)
	return registry, inst
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, educonnect.Migrate(context.Background(), db, nopLogger{}))
	return db
}

func waitReady(t *testing.T, b *educonnect.Bootstrapper) {
	t.Helper()
	select {
	case <-b.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("bootstrapper never became ready")
	}
}
