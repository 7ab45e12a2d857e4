package mcp

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/tagtree/internal/collector"
	"github.com/kokistudios/tagtree/internal/note"
	"github.com/kokistudios/tagtree/internal/render"
	"github.com/kokistudios/tagtree/internal/search"
	"github.com/kokistudios/tagtree/internal/structure"
	"github.com/kokistudios/tagtree/internal/tagtree"
	"github.com/kokistudios/tagtree/internal/vault"
)

// Deps are the vault components the tools operate on.
type Deps struct {
	Structure  *structure.Store
	Source     collector.Source
	Index      vault.Index
	ExtraField string
	Logger     *log.Logger
}

// Server wraps the MCP server with a vault's tag structure.
type Server struct {
	deps   Deps
	logger *log.Logger
	server *mcp.Server
}

// NewServer creates a new tagtree MCP server.
func NewServer(deps Deps, version string) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{deps: deps, logger: logger.With("component", "mcp")}

	impl := &mcp.Implementation{
		Name:    "tagtree",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "tagtree_show",
		Description: "Show the user's tag hierarchy for the vault. Tags are nested for organisation only; " +
			"a tag name is unique across the whole tree. Format 'json' (default) returns the stored document, " +
			"'text' a drawn tree, 'markdown' a nested list.",
	}, s.handleShow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tagtree_tags",
		Description: "List every tag currently used in the vault's notes (body #tags, the frontmatter 'tags' list and the configured extra field), sorted.",
	}, s.handleTags)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "tagtree_move",
		Description: "Nest a tag (with everything below it) under another tag. Moves onto itself, into the " +
			"tag's own subtree, or under a tag it already sits below are ignored and reported. " +
			"BEFORE CALLING: describe the change to the user, ask for explicit permission, and only then call with user_confirmed=true.",
	}, s.handleMove)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "tagtree_unnest",
		Description: "Move a tag (with everything below it) back to the top level of the hierarchy. " +
			"BEFORE CALLING: ask the user for explicit permission, then call with user_confirmed=true.",
	}, s.handleUnnest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tagtree_refresh",
		Description: "Rescan the vault and reconcile the hierarchy: new tags are added at the top level, tags no longer used are removed.",
	}, s.handleRefresh)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tagtree_search",
		Description: "Find the notes that carry ALL of the given tags. Returns the query string used and the matching note paths.",
	}, s.handleSearch)
}

// ShowArgs defines input for tagtree_show.
type ShowArgs struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: 'json' (default), 'text' or 'markdown'"`
	Sort   string `json:"sort,omitempty" jsonschema:"Optional display order: 'asc' or 'desc'. The stored order is never changed."`
}

// ShowResult is the output of tagtree_show.
type ShowResult struct {
	Tree  string `json:"tree"`
	Count int    `json:"count"`
}

func (s *Server) handleShow(ctx context.Context, req *mcp.CallToolRequest, args ShowArgs) (*mcp.CallToolResult, any, error) {
	tree, err := s.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	switch args.Sort {
	case "":
	case "asc":
		tree = tree.Sorted(false)
	case "desc":
		tree = tree.Sorted(true)
	default:
		return nil, nil, fmt.Errorf("unknown sort %q (use asc or desc)", args.Sort)
	}

	out := ShowResult{Count: tree.Len()}
	switch args.Format {
	case "", "json":
		data, err := tagtree.Encode(tree)
		if err != nil {
			return nil, nil, err
		}
		out.Tree = string(data)
	case "text":
		out.Tree = render.Text(tree)
	case "markdown":
		out.Tree = render.Markdown(tree)
	default:
		return nil, nil, fmt.Errorf("unknown format %q (use json, text or markdown)", args.Format)
	}
	return nil, out, nil
}

// TagsArgs defines input for tagtree_tags.
type TagsArgs struct{}

// TagsResult contains the list of tags.
type TagsResult struct {
	Tags    []string `json:"tags"`
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
}

func (s *Server) handleTags(ctx context.Context, req *mcp.CallToolRequest, args TagsArgs) (*mcp.CallToolResult, any, error) {
	set, err := s.deps.Source.Collect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to collect tags: %w", err)
	}
	tags := collector.Sorted(set)
	out := TagsResult{Tags: tags, Count: len(tags)}
	if len(tags) == 0 {
		out.Message = "No tags found. Add #tags to note bodies or a 'tags' list to their frontmatter."
	}
	return nil, out, nil
}

// MoveArgs defines input for tagtree_move.
type MoveArgs struct {
	Tag           string `json:"tag" jsonschema:"The tag to move, without '#'"`
	Target        string `json:"target" jsonschema:"The tag to nest it under, without '#'"`
	UserConfirmed bool   `json:"user_confirmed" jsonschema:"REQUIRED. Set true ONLY after the user approved this change."`
}

// MutationResult is the output of tagtree_move and tagtree_unnest.
type MutationResult struct {
	Applied bool   `json:"applied"`
	Message string `json:"message"`
	Tree    string `json:"tree,omitempty"`
}

func (s *Server) handleMove(ctx context.Context, req *mcp.CallToolRequest, args MoveArgs) (*mcp.CallToolResult, any, error) {
	if !args.UserConfirmed {
		return nil, nil, fmt.Errorf("user confirmation required: ask the user before moving tags")
	}
	tag, target := note.NormalizeTag(args.Tag), note.NormalizeTag(args.Target)
	if tag == "" || target == "" {
		return nil, nil, fmt.Errorf("tag and target are required")
	}

	res, tree, err := s.deps.Structure.Move(ctx, tag, target)
	if tree == nil {
		return nil, nil, err
	}
	out := MutationResult{Applied: res.Applied(), Tree: render.Text(tree)}
	if res.Applied() {
		out.Message = fmt.Sprintf("#%s is now nested under #%s", tag, target)
	} else {
		out.Message = fmt.Sprintf("#%s was not moved: %s", tag, res)
	}
	if err != nil {
		out.Message += fmt.Sprintf(" (warning: %v)", err)
	}
	s.logger.Info("move", "tag", tag, "target", target, "result", res)
	return nil, out, nil
}

// UnnestArgs defines input for tagtree_unnest.
type UnnestArgs struct {
	Tag           string `json:"tag" jsonschema:"The tag to move to the top level, without '#'"`
	UserConfirmed bool   `json:"user_confirmed" jsonschema:"REQUIRED. Set true ONLY after the user approved this change."`
}

func (s *Server) handleUnnest(ctx context.Context, req *mcp.CallToolRequest, args UnnestArgs) (*mcp.CallToolResult, any, error) {
	if !args.UserConfirmed {
		return nil, nil, fmt.Errorf("user confirmation required: ask the user before moving tags")
	}
	tag := note.NormalizeTag(args.Tag)
	if tag == "" {
		return nil, nil, fmt.Errorf("tag is required")
	}

	ok, tree, err := s.deps.Structure.Unnest(ctx, tag)
	if tree == nil {
		return nil, nil, err
	}
	out := MutationResult{Applied: ok, Tree: render.Text(tree)}
	if ok {
		out.Message = fmt.Sprintf("#%s moved to the top level", tag)
	} else {
		out.Message = fmt.Sprintf("#%s is not in the hierarchy", tag)
	}
	if err != nil {
		out.Message += fmt.Sprintf(" (warning: %v)", err)
	}
	return nil, out, nil
}

// RefreshArgs defines input for tagtree_refresh.
type RefreshArgs struct{}

// RefreshResult is the output of tagtree_refresh.
type RefreshResult struct {
	Count int    `json:"count"`
	Tree  string `json:"tree"`
}

func (s *Server) handleRefresh(ctx context.Context, req *mcp.CallToolRequest, args RefreshArgs) (*mcp.CallToolResult, any, error) {
	tree, err := s.deps.Structure.Refresh(ctx)
	if tree == nil {
		return nil, nil, err
	}
	if err != nil {
		s.logger.Warn("refresh not saved", "err", err)
	}
	return nil, RefreshResult{Count: tree.Len(), Tree: render.Text(tree)}, nil
}

// SearchArgs defines input for tagtree_search.
type SearchArgs struct {
	Tags []string `json:"tags" jsonschema:"Tags that every returned note must carry"`
}

// SearchResult is the output of tagtree_search.
type SearchResult struct {
	Query   string   `json:"query"`
	Notes   []string `json:"notes"`
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	var tags []string
	for _, t := range args.Tags {
		if t = note.NormalizeTag(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil, nil, fmt.Errorf("at least one tag is required")
	}

	surface := search.NewSurface(s.deps.Index, s.deps.ExtraField)
	query := search.BuildQuery(tags)
	notes, err := surface.SetQuery(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}
	out := SearchResult{Query: query, Notes: notes, Count: len(notes)}
	if len(notes) == 0 {
		out.Message = "No note carries all of these tags."
	}
	return nil, out, nil
}

func (s *Server) load(ctx context.Context) (*tagtree.Tree, error) {
	tree, err := s.deps.Structure.Load(ctx)
	if tree == nil {
		return nil, fmt.Errorf("failed to load tag structure: %w", err)
	}
	if err != nil {
		s.logger.Warn("tag structure not saved", "err", err)
	}
	return tree, nil
}
