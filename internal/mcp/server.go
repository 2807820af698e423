package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/drsim/internal/config"
	"github.com/nvandessel/drsim/internal/logging"
	"github.com/nvandessel/drsim/internal/metrics"
	"github.com/nvandessel/drsim/internal/ratelimit"
)

// Server wraps the MCP SDK server and exposes the simulator as tools.
type Server struct {
	server       *sdk.Server
	base         config.DrsimConfig
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
	recorder     *metrics.Recorder
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "drsim")
	Version string // Server version

	// Base supplies the defaults tool inputs override. Nil means config.Default().
	Base *config.DrsimConfig

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger   *slog.Logger
	Recorder *metrics.Recorder
}

// NewServer creates a new MCP server with drsim tools.
func NewServer(cfg *Config) (*Server, error) {
	base := config.Default()
	if cfg.Base != nil {
		base = cfg.Base
	}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid base config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		base:         *base,
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       logger,
		recorder:     cfg.Recorder,
	}

	if cfg.AuditDir != "" {
		audit, err := NewAuditLogger(cfg.AuditDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		s.auditLogger = audit
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves MCP over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
