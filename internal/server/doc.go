// Package server provides the loopback HTTP plumbing for the YouTube installed-app OAuth flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] is the only middleware the CLI installs.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback.
//
// Google redirects installed apps to the bare loopback origin (http://localhost:8081/), so the handler serves
// the root path only. It validates the state parameter (CSRF protection), exchanges the authorization code for
// tokens, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Callback Server
//
// [Listen] binds the listener before returning, so the consent page is never opened before the redirect target
// exists. The server is shut down as soon as a result arrives.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
