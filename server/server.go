package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"

	"github.com/authprobe/authprobe/oidc"
	"github.com/authprobe/authprobe/oidc/callback"
)

// DefaultCallbackPath is used when the redirect URL has no path component.
const DefaultCallbackPath = "/auth/callback"

// StateStore is what the server needs from a state store: starting attempts
// on login and consuming them on callback. oidc.MemoryStore satisfies it.
type StateStore interface {
	Create(ctx context.Context) (*oidc.State, error)
	callback.StateStore
}

// Server owns the probe's handlers. It holds no per-request state; the
// StateStore carries everything attempt-scoped.
type Server struct {
	config       *oidc.Config
	provider     *oidc.Provider
	store        StateStore
	logger       hclog.Logger
	callbackPath string
	home         *template.Template
}

// New creates a Server. The callback is served on the path of the config's
// redirect URL so the route always matches what was registered with the
// authorization server.
func New(c *oidc.Config, p *oidc.Provider, ss StateStore, logger hclog.Logger) (*Server, error) {
	const op = "server.New"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, oidc.ErrNilParameter)
	}
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, oidc.ErrNilParameter)
	}
	if ss == nil {
		return nil, fmt.Errorf("%s: state store is nil: %w", op, oidc.ErrNilParameter)
	}
	if logger == nil {
		logger = hclog.Default()
	}
	redirect, err := url.Parse(c.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("%s: redirect URL %q is invalid: %w", op, c.RedirectURL, err)
	}
	callbackPath := redirect.Path
	if callbackPath == "" || callbackPath == "/" {
		callbackPath = DefaultCallbackPath
	}
	home, err := template.New("home").Parse(homeTemplate)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse home template: %w", op, err)
	}
	return &Server{
		config:       c,
		provider:     p,
		store:        ss,
		logger:       logger,
		callbackPath: callbackPath,
		home:         home,
	}, nil
}

// Handler returns the probe's routes.
func (s *Server) Handler() (http.Handler, error) {
	const op = "Server.Handler"
	cb, err := callback.AuthCode(context.Background(), s.provider, s.store, s.successFn(), s.errorFn())
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create callback handler: %w", op, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/login", s.handleLogin)
	mux.Handle(s.callbackPath, cb)
	return mux, nil
}

// handleLogin starts a fresh attempt: one new state record, one redirect to
// the authorization endpoint carrying its token.
func (s *Server) handleLogin(w http.ResponseWriter, req *http.Request) {
	state, err := s.store.Create(req.Context())
	if err != nil {
		s.logger.Error("unable to create state", "error", err)
		http.Error(w, "unable to start login", http.StatusInternalServerError)
		return
	}
	authURL, err := s.provider.AuthURL(req.Context(), state)
	if err != nil {
		s.logger.Error("unable to build authorization URL", "error", err, "state", tokenPrefix(state.ID()))
		http.Error(w, "unable to start login", http.StatusInternalServerError)
		return
	}
	s.logger.Info("login initiated", "state", tokenPrefix(state.ID()))
	http.Redirect(w, req, authURL, http.StatusFound)
}

func (s *Server) handleHome(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}
	data := struct {
		Issuer   string
		AuthURL  string
		ClientID string
	}{
		Issuer:   s.config.Issuer,
		AuthURL:  s.config.AuthURL,
		ClientID: s.config.ClientID,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.home.Execute(w, data); err != nil {
		s.logger.Error("unable to render home page", "error", err)
	}
}

// successFn renders the token endpoint's JSON payload back verbatim. The
// whole point of the probe is seeing exactly what the server issued.
func (s *Server) successFn() callback.SuccessResponseFunc {
	return func(state string, t *oidc.Token, w http.ResponseWriter, req *http.Request) {
		s.logger.Info("token exchange completed", "state", tokenPrefix(state))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(t.Raw()); err != nil {
			s.logger.Error("unable to write token response", "error", err)
		}
	}
}

// errorFn maps every failure kind to a status code and a descriptive body.
// Errors are never swallowed: the user sees a human-readable message and
// the log carries the kind and context needed to debug the authorization
// server's configuration.
func (s *Server) errorFn() callback.ErrorResponseFunc {
	return func(state string, respErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		if respErr != nil {
			// the authorization server's own verdict, passed through verbatim
			s.logger.Error("authorization server returned an error",
				"error", respErr.Error,
				"description", respErr.Description,
				"state", tokenPrefix(state),
			)
			http.Error(w, fmt.Sprintf("authorization server error: %s", respErr), http.StatusBadRequest)
			return
		}

		status := http.StatusInternalServerError
		if clientFault(e) {
			status = http.StatusBadRequest
		}
		args := []interface{}{
			"kind", errKind(e),
			"state", tokenPrefix(state),
			"code", tokenPrefix(req.FormValue("code")),
		}
		var exchangeErr *oidc.ExchangeError
		if errors.As(e, &exchangeErr) {
			args = append(args, "upstream_status", exchangeErr.StatusCode)
		}
		s.logger.Error("callback failed", append(args, "error", e)...)
		http.Error(w, fmt.Sprintf("callback failed: %s", e), status)
	}
}

// clientFault reports whether the failure is attributable to the incoming
// request rather than the server-to-server exchange.
func clientFault(err error) bool {
	return errors.Is(err, oidc.ErrMissingCode) ||
		errors.Is(err, oidc.ErrMissingState) ||
		errors.Is(err, oidc.ErrExpiredState) ||
		errors.Is(err, oidc.ErrReplayedState)
}

// errKind names the failure for logs.
func errKind(err error) string {
	var exchangeErr *oidc.ExchangeError
	switch {
	case errors.Is(err, oidc.ErrMissingCode):
		return "missing_code"
	case errors.Is(err, oidc.ErrMissingState):
		return "missing_state"
	case errors.Is(err, oidc.ErrExpiredState):
		return "expired_state"
	case errors.Is(err, oidc.ErrReplayedState):
		return "replayed_state"
	case errors.As(err, &exchangeErr):
		return "token_exchange_error"
	case errors.Is(err, oidc.ErrIDTokenVerificationFailed):
		return "id_token_verification_failed"
	default:
		return "transport_error"
	}
}

// tokenPrefix truncates opaque values for logging: enough to correlate,
// not enough to replay.
func tokenPrefix(s string) string {
	const logLength = 8
	if len(s) <= logLength {
		return s
	}
	return s[:logLength]
}

const homeTemplate = `<!DOCTYPE html>
<html>
  <head><title>authprobe</title></head>
  <body>
    <h1>authprobe</h1>
    <p>Authorization code flow test client for
      {{if .Issuer}}<code>{{.Issuer}}</code>{{else}}<code>{{.AuthURL}}</code>{{end}}
      (client <code>{{.ClientID}}</code>).</p>
    <p><a href="/login">Log in</a> to verify the configuration.</p>
  </body>
</html>
`
