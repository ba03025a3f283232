package mcpserver

import (
	"context"

	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "filebook"
	serverVersion = "v0.1.0"
	operatorId    = "mcp-operator"
)

// Server exposes retrieval and question answering over MCP for operators. Every
// call runs under an admin session, so quota and access rules still apply.
type Server struct {
	server  *mcp.Server
	service rag.Service
	session filebookModel.Session
	logger  *logger_i.Logger
}

func NewServer(service rag.Service) *Server {
	s := &Server{
		server:  mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		service: service,
		session: filebookModel.Session{UserId: operatorId, Role: filebookModel.RoleAdmin, Plan: filebookModel.PlanPro},
		logger:  logger_i.NewLogger("MCP"),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server running on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
