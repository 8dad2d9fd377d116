// Package server provides HTTP routing, middleware, and the OAuth callback listener.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestID], [Logger] and [Recover] are the stock middleware.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] receives the provider redirect at the configured redirect URI. It checks the state
// parameter when one was sent, captures the authorization code and hands exactly one result to the waiting
// flow through a channel. The token exchange stays with the caller, which holds the PKCE verifier.
//
// [CallbackServer] runs that handler on a temporary listener for terminal flows and shuts down once the
// code arrives.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
