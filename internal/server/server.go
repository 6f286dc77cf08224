// package server contains middleware & handlers for the OAuth loopback redirect
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own their routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// CallbackServer is a short-lived HTTP server bound to a local address.
type CallbackServer struct {
	srv    *http.Server
	ln     net.Listener
	errors chan error
}

// Listen binds addr and starts serving handler in the background.
//
// The listener is open when Listen returns.
func Listen(addr string, handler http.Handler) (*CallbackServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	cb := &CallbackServer{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:     ln,
		errors: make(chan error, 1),
	}

	go func() {
		if err := cb.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cb.errors <- err
		}
	}()

	return cb, nil
}

// Addr returns the bound address, with the real port when addr asked for port 0.
func (c *CallbackServer) Addr() string {
	return c.ln.Addr().String()
}

// Errors receives at most one error if serving fails.
func (c *CallbackServer) Errors() <-chan error {
	return c.errors
}

// Shutdown stops the server gracefully.
func (c *CallbackServer) Shutdown(ctx context.Context) error {
	return c.srv.Shutdown(ctx)
}
