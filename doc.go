// Package educonnect keeps the signed in identity of each browser in sync
// with the identity service and guards the role dashboards of the
// EduConnect platform.
//
// Application instances:
//   - Every browser is bound to an Instance through a signed cookie. An
//     instance owns one SessionStore, one IdentityClient and one
//     Bootstrapper; InstanceRegistry creates them lazily and tears them down
//     on sign out, idle sweep or shutdown.
//   - The Bootstrapper fetches the current session once and then follows
//     the client's auth state notifications. A notification always wins over
//     the initial fetch, and nothing reaches the store after Teardown.
//
// Roles and guards:
//   - Classify maps the "user_type" metadata of an identity to a Role.
//     Guard and ProtectedRoute redirect anonymous visitors to the sign in
//     chooser and identities of another role to their own dashboard.
//
// Commands:
//   - SignupHandler creates the identity and then its profile row. The two
//     steps are not atomic, ErrPartialProvisioning reports the gap and
//     EnsureProfileHandler closes it on the next dashboard visit.
//   - SigninHandler rejects an account whose role does not match the entry
//     point with ErrRoleMismatch while leaving the session live.
//
// Activity sinks:
//   - ActivitySink receives auth and session events. Sinks run best effort,
//     errors are logged and never fail the request.
package educonnect
