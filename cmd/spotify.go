package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/setlistify/internal/server"
	"github.com/desertthunder/setlistify/internal/services"
	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/desertthunder/setlistify/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// spotifyProvider keys the Spotify token in the token store.
const spotifyProvider = "spotify"

// authTimeout bounds how long the callback server waits for the browser.
const authTimeout = 2 * time.Minute

// tokenRefresher is implemented by services that report refreshed tokens.
type tokenRefresher interface {
	SetTokenRefreshCallback(fn func(*oauth2.Token))
}

// accountReader is implemented by services that can name the authenticated account.
type accountReader interface {
	CurrentUser(ctx context.Context) (id, displayName string, err error)
}

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens browser for user authorization,
// and stores the exchanged token in the database.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate("spotify"); err != nil {
		return err
	}
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if err := r.store(); err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, r.spotify)
	if err != nil {
		return err
	}

	if err := r.tokens.SaveToken(spotifyProvider, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlainln("%s", ui.Styles.OK("✓ Authorization successful"))
	r.writePlain("✓ Token saved to %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: setlistify generate --artist \"<name>\"\n")
	return nil
}

// SpotifyStatus reports whether a token is stored and which account it belongs to.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticateSpotify(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			r.writePlain("%s\n", ui.Styles.Warn("✗ Not connected to Spotify"))
		}
		return err
	}

	stored, err := r.tokens.Get(spotifyProvider)
	if err != nil {
		return fmt.Errorf("failed to load Spotify token: %w", err)
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Connected to Spotify"))
	if reader, ok := r.spotify.(accountReader); ok {
		id, name, err := reader.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
		}
		if name == "" {
			name = id
		}
		r.writePlain("  Account: %s (%s)\n", name, id)
	}
	if !stored.Token.Expiry.IsZero() {
		r.writePlain("  Token expires: %s\n", stored.Token.Expiry.Local().Format(time.RFC1123))
	}
	r.writePlain("  Stored: %s\n", stored.UpdatedAt().Local().Format(time.RFC1123))
	return nil
}

// SpotifyLogout removes the stored Spotify token.
func (r *Runner) SpotifyLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.store(); err != nil {
		return err
	}

	err := r.tokens.Delete(spotifyProvider)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		r.writePlain("No Spotify token stored.\n")
		return nil
	case err != nil:
		return fmt.Errorf("failed to delete token: %w", err)
	}

	r.writePlain("✓ Spotify token removed\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server listening on
// the host and path of the configured redirect URI.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	addr, path, err := server.CallbackAddr(r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return nil, err
	}

	state := shared.GenerateID()
	authURL := oauthSrv.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv, state, path)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", addr, "path", path)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("%w: callback server: %w", shared.ErrNetwork, err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrAuthFailed, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

