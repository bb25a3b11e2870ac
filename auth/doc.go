// Package auth manages the bearer-token session against the archive's SSO
// endpoint: password-grant acquisition, expiry bookkeeping from the token's
// exp claim, and transparent renewal shortly before expiry.
//
// Token claims are read without signature verification. That is local
// bookkeeping only, never an authentication check; the archive verifies
// the token server-side on every authenticated request.
package auth
