// Package server provides the short-lived HTTP server behind the Spotify authorization code flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] is the only middleware in use.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter (CSRF protection), trades the code for a token through an
// [Exchanger], and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Current Usage
//
// "setlistify spotify auth" starts the server on the host and port from the redirect URI, opens the browser,
// waits for the callback, and shuts the server down once a token (or an error) arrives.
package server
