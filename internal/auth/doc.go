// ABOUTME: Package documentation for the auth package
// ABOUTME: Describes token verification and identity propagation

// Package auth implements request authentication for the gateway's API.
//
// Callers present an HS256-signed JWT as a bearer token. The token's "sub"
// claim names the user; Middleware verifies it and attaches an Identity to
// the request context, where handlers recover it with FromContext. The same
// verifier mints tokens for the CLI's token subcommand.
package auth
