// authprobe is a small test client for the OAuth 2.0 / OIDC authorization
// code flow, used to verify that an authorization server is configured
// correctly: drive a login through the browser, validate the anti-CSRF
// state on the callback, exchange the code, and show exactly what the
// server returned.
//
// The oidc package holds the flow's core (states, store, config,
// provider), oidc/callback the redirect-URI handler, server the HTTP
// surface, and cmd/authprobe the binary.
package authprobe
