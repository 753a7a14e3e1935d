// Package natours is the authentication and authorization core of the
// Natours HTTP API.
//
// It issues and verifies signed bearer tokens, manages the full password
// lifecycle (hashing, change-invalidation, reset-token issuance and
// redemption), and backs a composable middleware chain for protecting
// routes by identity and role.
//
// The package is transport-agnostic: the HTTP routing layer, the persistent
// user store, and outbound email delivery are external collaborators reached
// through the [UserDirectory] and [Mailer] interfaces. An [Engine] is
// assembled through [Builder.Build] and composes the hashing, token, and
// reset-token subsystems behind the authentication flows: [Engine.Signup],
// [Engine.Signin], [Engine.ForgotPassword], [Engine.ResetPassword] and
// [Engine.UpdatePassword]. [Engine.Authenticate] backs the middleware
// package's Protect guard.
//
// # Architecture boundaries
//
// natours is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces, and the [Error] taxonomy. Reset-secret
// generation, rate limiting, and audit dispatch live under internal/ and are
// never exported directly.
//
// Engine methods are safe to call from multiple goroutines after
// initialization: hashing and token operations are pure and CPU-bound, and
// the only shared state is the injected [UserDirectory].
package natours
