// Package mcp exposes the therapy planner as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/feedback"
	"github.com/crishurazvi/avis-diabeto/internal/service"
)

// Server registers the therapy tools on an MCP server
type Server struct {
	mcpServer *mcp.Server
	planner   *service.TherapyPlanner
	feedback  feedback.Store
	exportDir string
	logger    *logrus.Logger
}

// ServerOption configures optional tool dependencies.
type ServerOption func(*Server)

// WithFeedback enables submit_feedback and export_feedback.
func WithFeedback(store feedback.Store, exportDir string) ServerOption {
	return func(s *Server) {
		s.feedback = store
		s.exportDir = exportDir
	}
}

// NewServer creates the MCP server and registers every tool.
func NewServer(name, version string, planner *service.TherapyPlanner, logger *logrus.Logger, opts ...ServerOption) *Server {
	s := &Server{
		planner: planner,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "evaluate_therapy",
		Description: "Evaluate a type 2 diabetes patient against the ADA/EASD 2022 algorithm and return ordered STOP/START/SWITCH/ALERT recommendations.",
	}, s.evaluateTherapy)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_letter",
		Description: "Render the French consultation letter (Avis Diabétologique) for a patient.",
	}, s.generateLetter)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "lookup_drug_class",
		Description: "Return compendium cards for one glucose-lowering drug class, or for all classes when none is given.",
	}, s.lookupDrugClass)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_rules",
		Description: "List the therapy rules in evaluation order.",
	}, s.listRules)

	count := 4
	if s.feedback != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "submit_feedback",
			Description: "Record whether the clinician agrees with one recommendation. No patient data is stored.",
		}, s.submitFeedback)

		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "export_feedback",
			Description: "Export all recorded feedback to a JSON file in the data directory.",
		}, s.exportFeedback)
		count += 2
	}

	s.logger.WithField("tool_count", count).Info("Registered MCP tools")
}

// Run serves the tools over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves the tools over the given transport.
func (s *Server) RunTransport(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
