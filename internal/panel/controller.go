// Package panel is the interactive tag panel: a Controller that owns the
// per-panel state and maps gestures onto the tag structure, and a bubbletea
// Model that draws it.
package panel

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kokistudios/tagtree/internal/search"
	"github.com/kokistudios/tagtree/internal/state"
	"github.com/kokistudios/tagtree/internal/structure"
	"github.com/kokistudios/tagtree/internal/tagtree"
	"github.com/kokistudios/tagtree/internal/vault"
)

// SortMode controls display order. It never changes the stored order.
type SortMode int

const (
	SortStored SortMode = iota
	SortAsc
	SortDesc
)

func (s SortMode) String() string {
	switch s {
	case SortAsc:
		return "A-Z"
	case SortDesc:
		return "Z-A"
	default:
		return "custom"
	}
}

// Row is one visible line of the panel.
type Row struct {
	Name        string
	Depth       int
	HasChildren bool
	Expanded    bool
	Selected    bool
}

// Options wires a Controller to its collaborators.
type Options struct {
	Structure  *structure.Store
	State      state.Store
	Index      vault.Index
	ExtraField string
	Logger     *log.Logger
}

// Controller holds the state of one panel instance. Gestures may run on
// background goroutines; accessors are safe to call while they do.
type Controller struct {
	ID string

	structure  *structure.Store
	state      state.Store
	index      vault.Index
	extraField string
	logger     *log.Logger

	saveMu sync.Mutex // orders visibility saves

	mu         sync.Mutex
	tree       *tagtree.Tree
	visibility state.Visibility
	selection  []string
	sort       SortMode
	surface    *search.Surface
}

// NewController creates a controller with an empty tree.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	st := opts.State
	if st == nil {
		st = state.NewMemoryStore()
	}
	id := uuid.NewString()
	return &Controller{
		ID:         id,
		structure:  opts.Structure,
		state:      st,
		index:      opts.Index,
		extraField: opts.ExtraField,
		logger:     logger.With("panel", id[:8]),
		tree:       tagtree.New(),
		visibility: make(state.Visibility),
	}
}

// Open loads the tag structure and visibility state and resets the
// selection. A write failure still leaves the loaded tree in place.
func (c *Controller) Open(ctx context.Context) error {
	tree, err := c.structure.Load(ctx)
	vis, verr := c.state.Load(ctx)
	if verr != nil {
		c.logger.Warn("visibility state unavailable", "err", verr)
		vis = make(state.Visibility)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tree != nil {
		c.tree = tree
	}
	c.visibility = vis
	c.selection = nil
	c.logger.Debug("panel opened", "tags", c.tree.Len())
	return err
}

// Click toggles name in the selection and pushes the resulting query to the
// search surface, creating the surface on first use. It returns the query.
func (c *Controller) Click(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	if i := slices.Index(c.selection, name); i >= 0 {
		c.selection = slices.Delete(c.selection, i, i+1)
	} else {
		c.selection = append(c.selection, name)
	}
	query := search.BuildQuery(c.selection)
	if c.surface == nil {
		c.surface = search.NewSurface(c.index, c.extraField)
	}
	surface := c.surface
	c.mu.Unlock()

	if _, err := surface.SetQuery(ctx, query); err != nil {
		return query, err
	}
	return query, nil
}

// ClearSelection empties the selection and the search surface.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = nil
	if c.surface != nil {
		c.surface.Clear()
	}
}

// Toggle flips whether name's children are shown and persists the change.
func (c *Controller) Toggle(ctx context.Context, name string) error {
	c.mu.Lock()
	c.visibility[name] = !c.visibility[name]
	c.mu.Unlock()
	return c.saveVisibility(ctx)
}

// saveVisibility writes the current visibility map. Saves run one at a time
// and each takes its snapshot after the previous one finished, so the last
// write always carries the newest state.
func (c *Controller) saveVisibility(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	snapshot := c.visibility.Clone()
	c.mu.Unlock()

	if err := c.state.Save(ctx, snapshot); err != nil {
		c.logger.Error("cannot save visibility state", "err", err)
		return err
	}
	return nil
}

// Drop re-parents dragged under target.
func (c *Controller) Drop(ctx context.Context, dragged, target string) (tagtree.MoveResult, error) {
	res, tree, err := c.structure.Move(ctx, dragged, target)
	c.setTree(tree)
	if res.Applied() {
		c.logger.Info("moved tag", "tag", dragged, "under", target)
	}
	return res, err
}

// DropOutside moves dragged to the top level.
func (c *Controller) DropOutside(ctx context.Context, dragged string) (bool, error) {
	ok, tree, err := c.structure.Unnest(ctx, dragged)
	c.setTree(tree)
	if ok {
		c.logger.Info("unnested tag", "tag", dragged)
	}
	return ok, err
}

// Refresh clears the search and selection, rescans the notes and reloads the
// structure.
func (c *Controller) Refresh(ctx context.Context) error {
	c.ClearSelection()
	tree, err := c.structure.Refresh(ctx)
	c.setTree(tree)
	return err
}

// CycleSort advances stored -> A-Z -> Z-A -> stored.
func (c *Controller) CycleSort() SortMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sort = (c.sort + 1) % 3
	return c.sort
}

func (c *Controller) setTree(tree *tagtree.Tree) {
	if tree == nil {
		return
	}
	c.mu.Lock()
	c.tree = tree
	c.mu.Unlock()
}

// Sort returns the current display order.
func (c *Controller) Sort() SortMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// Selection returns the selected tags in click order.
func (c *Controller) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.selection)
}

// Surface returns the search surface, or nil before the first click.
func (c *Controller) Surface() *search.Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface
}

// Expanded reports whether name's children are shown.
func (c *Controller) Expanded(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibility[name]
}

// Tree returns the tree in display order.
func (c *Controller) Tree() *tagtree.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayTree()
}

func (c *Controller) displayTree() *tagtree.Tree {
	switch c.sort {
	case SortAsc:
		return c.tree.Sorted(false)
	case SortDesc:
		return c.tree.Sorted(true)
	default:
		return c.tree.Clone()
	}
}

// Rows flattens the visible part of the tree: top-level tags always, and the
// children of every expanded tag whose ancestors are expanded too.
func (c *Controller) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rows []Row
	c.displayTree().Walk(func(n *tagtree.Node, depth int) bool {
		expanded := c.visibility[n.Name]
		rows = append(rows, Row{
			Name:        n.Name,
			Depth:       depth,
			HasChildren: !n.IsLeaf(),
			Expanded:    expanded,
			Selected:    slices.Contains(c.selection, n.Name),
		})
		return expanded
	})
	return rows
}
