package mcp

import (
	"context"
	"fmt"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gridmux/gridmux/internal/panes"
	"github.com/gridmux/gridmux/internal/registry"
)

const (
	ServerName    = "gridmux"
	ServerVersion = "0.1.0"
)

// Engine is the slice of the pane lifecycle manager the tools need.
// Satisfied by *panes.Manager.
type Engine interface {
	CreatePane(opts panes.CreateOptions, availableAgents []string) (panes.CreateResult, error)
	ClosePane(id string) error
	LoadAndProcessPanes() (*registry.Registry, error)
	InvalidateLayout()
}

// Server exposes the pane engine to collaborating agents over MCP stdio.
type Server struct {
	mcpServer *mcpsdk.Server
	engine    Engine
	store     *registry.Store
	agents    []string
}

// NewServer creates an MCP server over the given engine. agents lists the
// configured agent names, offered when create_pane omits a choice.
func NewServer(engine Engine, store *registry.Store, agents map[string]string) *Server {
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &Server{
		engine: engine,
		store:  store,
		agents: names,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_pane",
		Description: "Create a tracked pane in the managed tmux window. A worktree pane gets its own git worktree and branch named after the slug; a shell pane is an ephemeral shell in the project root. The grid is recomputed afterwards.",
	}, s.handleCreatePane)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_pane",
		Description: "Close a tracked pane by logical id or slug. Tears down the physical pane and, for worktree panes, removes the worktree and deletes the branch. The grid is recomputed afterwards.",
	}, s.handleClosePane)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_panes",
		Description: "List all tracked panes with their slugs, kinds, physical handles and statuses.",
	}, s.handleListPanes)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_layout",
		Description: "Reconcile tracked panes against live tmux state and reapply the computed grid layout, even if the cached layout looks current.",
	}, s.handleApplyLayout)
}

func (s *Server) handleCreatePane(_ context.Context, _ *mcpsdk.CallToolRequest, args CreatePaneInput) (*mcpsdk.CallToolResult, CreatePaneOutput, error) {
	kind := registry.PaneKind(args.Kind)
	switch kind {
	case "", registry.KindWorktree, registry.KindShell:
	default:
		return nil, CreatePaneOutput{}, fmt.Errorf("unknown pane kind %q; use worktree or shell", args.Kind)
	}
	if args.Agent != "" {
		found := false
		for _, name := range s.agents {
			if name == args.Agent {
				found = true
				break
			}
		}
		if !found {
			return nil, CreatePaneOutput{}, fmt.Errorf("unknown agent %q; available: %v", args.Agent, s.agents)
		}
	}

	res, err := s.engine.CreatePane(panes.CreateOptions{
		Slug:      args.Slug,
		Prompt:    args.Prompt,
		Kind:      kind,
		Agent:     args.Agent,
		Autopilot: args.Autopilot,
	}, s.agents)
	if err != nil {
		return nil, CreatePaneOutput{}, err
	}

	return nil, CreatePaneOutput{
		ID:               res.Pane.ID,
		Slug:             res.Pane.Slug,
		PaneID:           res.Pane.PaneID,
		Kind:             string(res.Pane.EffectiveKind()),
		WorktreePath:     res.Pane.WorktreePath,
		Agent:            res.Pane.Agent,
		NeedsAgentChoice: res.NeedsAgentChoice,
	}, nil
}

func (s *Server) handleClosePane(_ context.Context, _ *mcpsdk.CallToolRequest, args ClosePaneInput) (*mcpsdk.CallToolResult, ClosePaneOutput, error) {
	if args.ID == "" {
		return nil, ClosePaneOutput{}, fmt.Errorf("pane id is required")
	}

	id := args.ID
	reg, err := s.store.Load()
	if err != nil {
		return nil, ClosePaneOutput{}, err
	}
	if reg.FindByID(id) == nil {
		if pane := reg.FindBySlug(id); pane != nil {
			id = pane.ID
		}
	}

	if err := s.engine.ClosePane(id); err != nil {
		return nil, ClosePaneOutput{}, err
	}
	return nil, ClosePaneOutput{Closed: true}, nil
}

func (s *Server) handleListPanes(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListPanesInput) (*mcpsdk.CallToolResult, ListPanesOutput, error) {
	reg, err := s.store.Load()
	if err != nil {
		return nil, ListPanesOutput{}, err
	}

	out := ListPanesOutput{
		ProjectName: reg.ProjectName,
		Panes:       make([]PaneDescription, 0, len(reg.Panes)),
	}
	for _, p := range reg.Panes {
		out.Panes = append(out.Panes, PaneDescription{
			ID:           p.ID,
			Slug:         p.Slug,
			Prompt:       p.Prompt,
			PaneID:       p.PaneID,
			Kind:         string(p.EffectiveKind()),
			WorktreePath: p.WorktreePath,
			Agent:        p.Agent,
			Autopilot:    p.Autopilot,
			TestStatus:   p.TestStatus,
			DevStatus:    p.DevStatus,
		})
	}
	return nil, out, nil
}

func (s *Server) handleApplyLayout(_ context.Context, _ *mcpsdk.CallToolRequest, _ ApplyLayoutInput) (*mcpsdk.CallToolResult, ApplyLayoutOutput, error) {
	s.engine.InvalidateLayout()
	reg, err := s.engine.LoadAndProcessPanes()
	if err != nil {
		return nil, ApplyLayoutOutput{}, err
	}
	return nil, ApplyLayoutOutput{PaneCount: len(reg.Panes)}, nil
}
