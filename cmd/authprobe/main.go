// authprobe is a test client for verifying an authorization server's
// configuration: it serves a local login that drives the OAuth 2.0 / OIDC
// authorization code flow and prints the resulting tokens back to the
// browser. Configuration comes from OAUTH_* environment variables; missing
// required values fail at startup, not at exchange time.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/authprobe/authprobe/oidc"
	"github.com/authprobe/authprobe/server"
)

// List of configuration environment variables
const (
	envClientID      = "OAUTH_CLIENT_ID"
	envClientSecret  = "OAUTH_CLIENT_SECRET"
	envIssuer        = "OAUTH_ISSUER"
	envAuthURL       = "OAUTH_AUTH_URL"
	envTokenURL      = "OAUTH_TOKEN_URL"
	envRedirectURL   = "OAUTH_REDIRECT_URL"
	envScopes        = "OAUTH_SCOPES"
	envStateTTL      = "OAUTH_STATE_TTL"
	envPort          = "OAUTH_PORT"
	envPKCE          = "OAUTH_PKCE"
	envVerifyIDToken = "OAUTH_VERIFY_ID_TOKEN"
)

const shutdownGrace = 5 * time.Second

// envConfig assembles an oidc.Config from the environment. The issuer form
// and the explicit-endpoint form are both accepted; oidc.NewConfig reports
// every problem it finds at once.
func envConfig() (*oidc.Config, string, error) {
	const op = "envConfig"

	port := os.Getenv(envPort)
	if port == "" {
		port = "8080"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, "", fmt.Errorf("%s: %s %q is not a number: %w", op, envPort, port, err)
	}
	redirectURL := os.Getenv(envRedirectURL)
	if redirectURL == "" {
		redirectURL = fmt.Sprintf("http://localhost:%s%s", port, server.DefaultCallbackPath)
	}

	opts := []oidc.Option{}
	if authURL, tokenURL := os.Getenv(envAuthURL), os.Getenv(envTokenURL); authURL != "" || tokenURL != "" {
		opts = append(opts, oidc.WithEndpoints(authURL, tokenURL))
	}
	if scopes := strings.Fields(os.Getenv(envScopes)); len(scopes) > 0 {
		opts = append(opts, oidc.WithScopes(scopes...))
	}
	if raw := os.Getenv(envStateTTL); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %s %q is not a duration: %w", op, envStateTTL, raw, err)
		}
		opts = append(opts, oidc.WithStateTTL(ttl))
	}
	if isTrue(os.Getenv(envPKCE)) {
		opts = append(opts, oidc.WithPKCE())
	}
	if isTrue(os.Getenv(envVerifyIDToken)) {
		opts = append(opts, oidc.WithVerifyIDToken())
	}

	c, err := oidc.NewConfig(
		os.Getenv(envIssuer),
		os.Getenv(envClientID),
		oidc.ClientSecret(os.Getenv(envClientSecret)),
		redirectURL,
		opts...,
	)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return c, port, nil
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name: "authprobe",
	})

	c, port, err := envConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	p, err := oidc.NewProvider(c)
	if err != nil {
		logger.Error("unable to initialize provider", "error", err)
		os.Exit(1)
	}
	defer p.Done()

	store, err := oidc.NewMemoryStore(c.StateTTL, c.UsePKCE)
	if err != nil {
		logger.Error("unable to create state store", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(c, p, store, logger)
	if err != nil {
		logger.Error("unable to create server", "error", err)
		os.Exit(1)
	}
	handler, err := srv.Handler()
	if err != nil {
		logger.Error("unable to create handler", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    "localhost:" + port,
		Handler: handler,
	}

	srvCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "redirect_url", c.RedirectURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-srvCh:
		logger.Error("server closed", "error", err)
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
