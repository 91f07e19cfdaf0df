package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/agentrules/pkg/session"
	"github.com/macropower/agentrules/pkg/version"
)

const instructions = "MCP server that injects task rules into the system prompt. " +
	"Workflow: 1) Call session_start when a session begins. " +
	"2) Call before_prompt_submit with every user prompt and the current system prompt. " +
	"3) When modified is true, use the returned systemPrompt. " +
	"4) Call fork_session when the conversation is branched."

// Server implements the MCP server for agentrules.
type Server struct {
	tracer  trace.Tracer
	server  *mcp.Server
	clients map[*mcp.ServerSession]*client
	address string
	opts    []session.Option
	mu      sync.Mutex
}

// client holds the agent session of one connected MCP client.
type client struct {
	session *session.Session
	notices []Notice
	mu      sync.Mutex
	started bool
}

// NewServer creates a new MCP server instance. Every connected client gets
// its own session built from opts.
func NewServer(address string, opts ...session.Option) *Server {
	impl := &mcp.Implementation{
		Name:    "agentrules",
		Version: version.GetVersion(),
	}

	s := &Server{
		tracer:  otel.Tracer("mcp-server"),
		server:  mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
		clients: map[*mcp.ServerSession]*client{},
		address: address,
		opts:    opts,
	}

	s.registerTools()

	return s
}

// clientFor returns the state of the client behind ss, creating it on first
// use. The state is dropped once the client disconnects.
func (s *Server) clientFor(ss *mcp.ServerSession) *client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[ss]; ok {
		return c
	}

	c := &client{}
	c.session = session.New(append(slices.Clone(s.opts), session.WithNotifier(c))...)
	s.clients[ss] = c

	if ss != nil {
		go func() {
			_ = ss.Wait()

			s.mu.Lock()
			delete(s.clients, ss)
			s.mu.Unlock()
		}()
	}

	return c
}

// Clients returns the number of clients with session state.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

// Server returns the underlying [mcp.Server].
func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve starts the MCP server. It serves over stdio when no address is set,
// and over streamable HTTP otherwise.
func (s *Server) Serve(ctx context.Context) error {
	slog.InfoContext(ctx, "starting MCP server", slog.String("address", s.address))

	if s.address == "" {
		err := s.serveStdio(ctx)
		if err != nil {
			return fmt.Errorf("serve stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP(ctx)
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	// Stops the shutdown goroutine when ListenAndServe returns on its own.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    s.address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			slog.ErrorContext(ctx, "shutdown MCP server", slog.Any("error", err))
		}
	}()

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

func (s *Server) serveStdio(ctx context.Context) error {
	var t mcp.Transport = &mcp.StdioTransport{}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		t = &mcp.LoggingTransport{Transport: t, Writer: os.Stderr}
	}

	err := s.server.Run(ctx, t)
	if err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}
