/*
oidc is the core of the authprobe test client: the pieces of the
authorization code flow that have real invariants, independent of any HTTP
framing.

Primary types provided by the package

* State: represents one authorization-code flow attempt for a user. It
carries the opaque state token that binds the callback to the login that
started it, plus the attempt's nonce and optional PKCE verifier.

* MemoryStore: issues unguessable, single-use, time-bounded States and
validates them when the callback returns. Validation consumes the record so
a replayed callback always fails, and concurrent validations of one token
can never both succeed.

* Config: the immutable configuration for a flow (client ID/secret, issuer
or explicit endpoints, redirect URL, scopes, state TTL, etc), validated once
at construction.

* Provider: builds the authorization redirect URL for a State and exchanges
the callback's code for tokens at the token endpoint, surfacing the
server's verbatim response either way.

The callback package turns a Provider plus a state store into an
http.HandlerFunc for the redirect URI; the server package wraps both in the
probe's full HTTP surface.
*/
package oidc
