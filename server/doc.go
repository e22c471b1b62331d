/*
server is the authprobe HTTP surface: a status page on "/", "/login" which
starts an authorization-code flow with a fresh state, and the callback path
(taken from the registered redirect URL) which validates the state,
exchanges the code and renders the token endpoint's JSON back verbatim.

Failures map to status codes by whose fault they are: 400 for anything
client-attributable (an error the authorization server reported about the
login, a missing code, a missing/expired/replayed state) and 500 when the
server-to-server exchange itself failed. Every failure is logged with its
kind and enough context to debug the authorization server's configuration,
which is the entire point of the probe.
*/
package server
