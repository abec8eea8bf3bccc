// Package gatehouse provides a credential authentication core (password
// verification, JWT issuance and validation, request middleware, current-user
// resolution) that attaches to any router supported by go-router.
//
// Stores:
//   - UserStore is the minimal read surface (FindByEmail, FindByID) the
//     authenticator and resolver need. MemoryUserStore covers tests and small
//     deployments; the Users repository persists accounts via Bun and adds
//     login tracking, registration, and password reset storage.
//
// Request state:
//   - The tokenware middleware runs exactly once per request and records the
//     outcome as a RequestAuth value (passed through, authenticated, or
//     rejected) in the request context. Handlers never see an ambiguous
//     "unchecked" request: allow-listed paths are explicit pass-throughs and
//     everything else either carries verified claims or was refused with 401
//     before the handler ran.
//
// User lifecycle:
//   - Users carry a UserStatus field persisted via Bun. Statuses cover
//     pending, active, suspended, disabled, and archived flows, and
//     UserStateMachine centralizes the transition graph, timestamp handling,
//     hooks, and persistence.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auth and the state
//     machine to describe lifecycle, login, impersonation, and password reset
//     events. Sinks run best-effort (errors are logged) so you can forward to
//     a database or queue without blocking authentication.
//
// Claims decoration:
//   - ClaimsDecorator is invoked before tokens are signed. Decorators may
//     enrich extension fields such as resource roles or metadata while
//     protected claims (sub, iss, aud, exp, etc.) remain immutable.
package gatehouse
