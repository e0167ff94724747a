// Package mcp exposes the We Vote services as Model Context Protocol tools,
// resources and prompts for operator tooling.
//
// The server is mounted at /mcp behind the admin JWT. Read-only tools need
// the political data viewer role; tools that write need more and check it
// themselves from the request context.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/wevote/wevoteserver/internal/authz"
	"github.com/wevote/wevoteserver/internal/ctxutil"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/pollinglocations"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
)

const (
	serverName = "wevote"
	uriScheme  = "wevote://"
)

// Deps holds the services the MCP server calls.
type Deps struct {
	Positions        *positions.Service
	VoterGuides      *voterguides.Service
	PollingLocations *pollinglocations.Service
	Representatives  *representatives.Service
	Logger           *slog.Logger
	Version          string
}

// Server wraps the mcp-go server with the We Vote service layer.
type Server struct {
	mcpServer        *mcpserver.MCPServer
	positions        *positions.Service
	voterGuides      *voterguides.Service
	pollingLocations *pollinglocations.Service
	representatives  *representatives.Service
	logger           *slog.Logger
}

// New creates an MCP server with every tool, resource and prompt registered.
func New(d Deps) *Server {
	s := &Server{
		positions:        d.Positions,
		voterGuides:      d.VoterGuides,
		pollingLocations: d.PollingLocations,
		representatives:  d.Representatives,
		logger:           d.Logger,
	}
	version := d.Version
	if version == "" {
		version = "dev"
	}
	s.mcpServer = mcpserver.NewMCPServer(
		serverName,
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithRecovery(),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// requireRole reports whether the caller may use a tool gated at min. Calls
// without claims (stdio, tests) are trusted.
func requireRole(ctx context.Context, min model.VoterRole) bool {
	claims := ctxutil.ClaimsFromContext(ctx)
	return claims == nil || authz.Allowed(claims, min)
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: " + err.Error())
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
