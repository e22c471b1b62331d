package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/authprobe/authprobe/oidc"
)

// AuthCode creates an authorization-code callback handler. The handler reads
// the "state", "code", "error" and "error_description" parameters of the
// incoming redirect and resolves them in a fixed order: an error reported by
// the authorization server is passed through first, then a missing code or
// state fails fast, then the state is validated and consumed through the
// StateStore, and only then is the code exchanged for tokens. Every failure
// is terminal for the attempt; there is no retry.
//
// The SuccessResponseFunc is used to create a response when the callback is
// successful, the ErrorResponseFunc when it fails.
func AuthCode(ctx context.Context, p *oidc.Provider, ss StateStore, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, oidc.ErrNilParameter)
	}
	if ss == nil {
		return nil, fmt.Errorf("%s: state store is nil: %w", op, oidc.ErrNilParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, oidc.ErrNilParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, oidc.ErrNilParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		// get parameters from either the body or query parameters.
		// FormValue prioritizes body values, if found.
		reqState := req.FormValue("state")

		if authenErr := req.FormValue("error"); authenErr != "" {
			eFn(reqState, &AuthenErrorResponse{
				Error:       authenErr,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}, nil, w, req)
			return
		}

		reqCode := req.FormValue("code")
		if reqCode == "" {
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, oidc.ErrMissingCode), w, req)
			return
		}
		if reqState == "" {
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, oidc.ErrMissingState), w, req)
			return
		}

		state, err := ss.ValidateAndConsume(ctx, reqState)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to validate state: %w", op, err), w, req)
			return
		}

		responseToken, err := p.Exchange(ctx, state, reqCode)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err), w, req)
			return
		}
		sFn(reqState, responseToken, w, req)
	}, nil
}
