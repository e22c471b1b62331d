package callback

import (
	"fmt"
	"net/http"

	"github.com/authprobe/authprobe/oidc"
)

// SuccessResponseFunc is used by AuthCode to create an http response when
// the callback is successful.
//
// The state parameter is the state returned by the authorization server and
// the oidc.Token is the result of the token exchange. The function should
// use the http.ResponseWriter to send back whatever content (headers, html,
// JSON, etc) it wishes to the client that originated the flow.
type SuccessResponseFunc func(state string, t *oidc.Token, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by AuthCode to create an http response when the
// callback fails.
//
// Exactly one of respErr and e is non-nil: respErr carries an error response
// the authorization server itself returned, e an error raised while
// processing the callback (state validation, token exchange, ...).
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents an OAuth 2.0 authentication error response.
// See: https://www.rfc-editor.org/rfc/rfc6749#section-4.1.2.1
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}

// String is the error/description pair, suitable for passing the server's
// verdict through to a user verbatim.
func (r *AuthenErrorResponse) String() string {
	if r.Description == "" {
		return r.Error
	}
	return fmt.Sprintf("%s: %s", r.Error, r.Description)
}
