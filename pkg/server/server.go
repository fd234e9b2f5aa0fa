package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// connHandler is satisfied by *dispatcher.Dispatcher; kept as a narrow
// interface here so pkg/server stays independent of the wire protocol.
type connHandler interface {
	HandleConnection(ctx context.Context, conn net.Conn)
}

type Server struct {
	http     *http.Server
	listener net.Listener
	handler  connHandler
}

// Configuration is an alias for a function that will take in a pointer to a Server and modify it
type Configuration func(r *Server) error

// New takes a variable amount of Configuration functions and returns a new Server
// Each Configuration will be called in the order they are passed in
func New(configs ...Configuration) (r *Server, err error) {
	// Create the Server
	r = &Server{}

	// Apply all Configurations passed in
	for _, cfg := range configs {
		// Pass the service into the configuration function
		if err = cfg(r); err != nil {
			return
		}
	}
	return
}

func (s *Server) Run(ctx context.Context, logger *zap.Logger) (err error) {
	if s.http != nil {
		go func() {
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ERR_SERVE_HTTP", zap.Error(err))
			}
		}()
	}

	if s.listener != nil {
		go s.acceptLoop(ctx, logger)
	}

	return
}

// acceptLoop accepts connections until the listener is closed by Stop,
// handing each one to the dispatcher on its own goroutine (spec.md §6.1).
func (s *Server) acceptLoop(ctx context.Context, logger *zap.Logger) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Error("ERR_ACCEPT_TCP", zap.Error(err))
			}
			return
		}
		go s.handler.HandleConnection(ctx, conn)
	}
}

func (s *Server) Stop(ctx context.Context) (err error) {
	if s.http != nil {
		if err = s.http.Shutdown(ctx); err != nil {
			return
		}
	}

	if s.listener != nil {
		err = s.listener.Close()
	}

	return
}

// WithTCPDispatcher listens on port and hands every accepted connection to
// handler (spec.md §6.1's wire-protocol listener, component G).
func WithTCPDispatcher(handler connHandler, port string) Configuration {
	return func(s *Server) (err error) {
		s.listener, err = net.Listen("tcp", ":"+port)
		if err != nil {
			return
		}
		s.handler = handler
		return
	}
}

func WithHTTPServer(handler http.Handler, port string) Configuration {
	return func(s *Server) (err error) {
		s.http = &http.Server{
			Handler: handler,
			Addr:    ":" + port,
		}
		return
	}
}
