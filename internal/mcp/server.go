// Package mcp provides an MCP (Model Context Protocol) server for osteon.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/osteon/internal/logging"
	"github.com/nvandessel/osteon/internal/ratelimit"
	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
	"github.com/nvandessel/osteon/internal/tissue"
)

// Simulator runs scenarios.
type Simulator interface {
	RunReplicates(ctx context.Context, sc simulation.Scenario) ([]*store.Run, error)
	Estimate(ctx context.Context, sc simulation.Scenario) (tissue.Report, error)
	// Cost returns the sample steps sc takes across its replicates.
	Cost(sc simulation.Scenario) (int, error)
}

// Server wraps the MCP SDK server and exposes the simulation tools.
type Server struct {
	server      *sdk.Server
	sim         Simulator
	runs        store.RunStore
	limits      ratelimit.Limits
	auditLogger *AuditLogger
	logger      *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "osteon")
	Version string // Server version

	Simulator Simulator
	Runs      store.RunStore // optional; bone_runs fails without it

	// Limits meters tool calls by sample steps. Nil uses
	// ratelimit.DefaultLimits.
	Limits ratelimit.Limits

	// AuditDir receives audit.jsonl. Empty disables the audit log.
	AuditDir string
	Logger   *slog.Logger
}

// NewServer creates a new MCP server with the osteon tools. The run store
// stays owned by the caller.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Simulator == nil {
		return nil, errors.New("mcp: a simulator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	limits := cfg.Limits
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}

	s := &Server{
		server: mcpServer,
		sim:    cfg.Simulator,
		runs:   cfg.Runs,
		limits: limits,
		logger: logger,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals...)
	defer stop()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.Close()
	return err
}

// Close releases the audit log. Safe to call more than once.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
