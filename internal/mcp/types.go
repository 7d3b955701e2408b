package mcp

// CreatePaneInput is the input for the create_pane tool.
type CreatePaneInput struct {
	Slug      string `json:"slug" jsonschema:"required,Short unique name for the pane; doubles as its branch and title"`
	Prompt    string `json:"prompt,omitempty" jsonschema:"Task description handed to the agent in the new pane"`
	Kind      string `json:"kind,omitempty" jsonschema:"Pane kind: worktree (default) gets its own git worktree and branch; shell is an ephemeral pane in the project root"`
	Agent     string `json:"agent,omitempty" jsonschema:"Agent name from config to launch in the pane. Omit to use the only configured agent, or to be told a choice is needed."`
	Autopilot bool   `json:"autopilot,omitempty" jsonschema:"When true the agent runs without confirmation prompts"`
}

// CreatePaneOutput is the output for the create_pane tool.
type CreatePaneOutput struct {
	ID               string `json:"id"`
	Slug             string `json:"slug"`
	PaneID           string `json:"pane_id"`
	Kind             string `json:"kind"`
	WorktreePath     string `json:"worktree_path,omitempty"`
	Agent            string `json:"agent,omitempty"`
	NeedsAgentChoice bool   `json:"needs_agent_choice,omitempty"`
}

// ClosePaneInput is the input for the close_pane tool.
type ClosePaneInput struct {
	ID string `json:"id" jsonschema:"required,Logical pane id or slug to close"`
}

// ClosePaneOutput is the output for the close_pane tool.
type ClosePaneOutput struct {
	Closed bool `json:"closed"`
}

// ListPanesInput is the input for the list_panes tool.
type ListPanesInput struct{}

// PaneDescription describes one tracked pane.
type PaneDescription struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Prompt       string `json:"prompt,omitempty"`
	PaneID       string `json:"pane_id"`
	Kind         string `json:"kind"`
	WorktreePath string `json:"worktree_path,omitempty"`
	Agent        string `json:"agent,omitempty"`
	Autopilot    bool   `json:"autopilot,omitempty"`
	TestStatus   string `json:"test_status,omitempty"`
	DevStatus    string `json:"dev_status,omitempty"`
}

// ListPanesOutput is the output for the list_panes tool.
type ListPanesOutput struct {
	ProjectName string            `json:"project_name"`
	Panes       []PaneDescription `json:"panes"`
}

// ApplyLayoutInput is the input for the apply_layout tool.
type ApplyLayoutInput struct{}

// ApplyLayoutOutput is the output for the apply_layout tool.
type ApplyLayoutOutput struct {
	PaneCount int `json:"pane_count"`
}
