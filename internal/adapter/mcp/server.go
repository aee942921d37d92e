// Package mcp exposes the broker to agents over the Model Context
// Protocol. It runs as a stdio proxy inside the editor process and talks
// to the HTTP broker, so every editor shares one broker state.
package mcp

import (
	"context"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/switchboard-hq/switchboard/internal/client"
	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
)

// Broker is the slice of the broker client the tools need. *client.Client
// implements it.
type Broker interface {
	Register(ctx context.Context, name, path, sessionID string) (*agent.Agent, error)
	ListAgents(ctx context.Context) ([]client.AgentSummary, error)
	Send(ctx context.Context, sender, peer, msg string) (string, error)
	Read(ctx context.Context, name string) ([]message.Delivery, error)
	WaitForReply(ctx context.Context, name string, timeout time.Duration) []message.Delivery
	ShareContext(ctx context.Context, owner, key, value string) (string, error)
	GetContext(ctx context.Context, owner, key string) (string, error)
	CreateTask(ctx context.Context, id, agentName, description string) (*task.Task, error)
	TasksForAgent(ctx context.Context, name string) ([]task.Task, error)
	UpdateTask(ctx context.Context, id string, status, result *string) (*task.Task, error)
}

// ServerConfig carries MCP server identity.
type ServerConfig struct {
	Name    string
	Version string
}

// ServerDeps carries the dependencies tools dispatch to.
type ServerDeps struct {
	Broker Broker
}

// Server wraps the MCP protocol server and the bridge tool set.
type Server struct {
	mcpServer *mcpserver.MCPServer
	deps      ServerDeps
	tools     map[string]mcpserver.ServerTool
}

// NewServer creates the MCP server and registers all bridge tools.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version),
		deps:      deps,
		tools:     map[string]mcpserver.ServerTool{},
	}
	s.registerTools()
	return s
}

// MCPServer exposes the underlying protocol server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Tool returns a registered tool by name, for direct invocation in tests.
func (s *Server) Tool(name string) (mcpserver.ServerTool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// ToolNames lists the registered tool names.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

func (s *Server) add(tools ...mcpserver.ServerTool) {
	s.mcpServer.AddTools(tools...)
	for _, t := range tools {
		s.tools[t.Tool.Name] = t
	}
}
