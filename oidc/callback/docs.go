/*
callback provides the http.HandlerFunc for the redirect URI of an
authorization-code flow: it reads the authorization server's response
parameters, validates and consumes the anti-CSRF state through a StateStore,
exchanges the code through an oidc.Provider, and hands the outcome to
caller-supplied success/error response funcs.

The handler itself decides nothing about HTTP status codes or bodies; that
policy belongs to the SuccessResponseFunc and ErrorResponseFunc the caller
provides (see the server package for the probe's own policy).
*/
package callback
