// Package sessionservice implements the Session Service inside Meridian.
//
// Layering:
// - domain: session and principal entities, errors
// - application: resolve/issue/revoke use-cases using explicit ports
// - ports: stable boundaries for the session store
// - adapters: concrete memory and redis implementations
//
// Boundary notes:
// - Keep this module self-contained under identity-access context.
// - Tokens are opaque handles; nothing here parses or signs credentials.
package sessionservice
