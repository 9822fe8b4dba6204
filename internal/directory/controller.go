// Package directory renders the member directory into a page and tracks
// whether it is shown as a grid or a list.
package directory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
	"github.com/jgxilos/wdd231/internal/models"
)

// Element IDs the directory page must provide.
const (
	ContainerID = "membersContainer"
	GridBtnID   = "gridBtn"
	ListBtnID   = "listBtn"
)

// Mode is the directory layout.
type Mode string

const (
	ModeGrid Mode = "grid"
	ModeList Mode = "list"
)

// ErrInvalidMode is returned for any mode other than grid or list.
var ErrInvalidMode = errors.New("invalid view mode")

// ParseMode validates s as a mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGrid, ModeList:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) containerClass() string {
	if m == ModeList {
		return "members-list"
	}
	return "members-grid"
}

// Controller owns the view state of one directory page. It is not safe for
// concurrent use; each rendered page gets its own.
type Controller struct {
	target  *html.Node
	gridBtn *html.Node
	listBtn *html.Node

	renderers map[Mode]Renderer
	mode      Mode
	members   []models.Member
	loaded    bool
	failure   string

	logger *zap.Logger
}

// NewController wires a controller to its render target and toggle controls.
// The nodes are checked once here.
func NewController(target, gridBtn, listBtn *html.Node, logger *zap.Logger) (*Controller, error) {
	var missing []string
	if target == nil {
		missing = append(missing, ContainerID)
	}
	if gridBtn == nil {
		missing = append(missing, GridBtnID)
	}
	if listBtn == nil {
		missing = append(missing, ListBtnID)
	}
	if len(missing) > 0 {
		return nil, &dom.MissingIDError{IDs: missing}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		target:  target,
		gridBtn: gridBtn,
		listBtn: listBtn,
		renderers: map[Mode]Renderer{
			ModeGrid: GridRenderer{},
			ModeList: ListRenderer{},
		},
		mode:   ModeGrid,
		logger: logger,
	}
	c.syncControls()
	return c, nil
}

// FromDocument finds the directory elements by their fixed IDs.
func FromDocument(doc *html.Node, logger *zap.Logger) (*Controller, error) {
	nodes, err := dom.MustFindIDs(doc, ContainerID, GridBtnID, ListBtnID)
	if err != nil {
		return nil, fmt.Errorf("directory page: %w", err)
	}
	return NewController(nodes[0], nodes[1], nodes[2], logger)
}

// CurrentMode returns the active layout.
func (c *Controller) CurrentMode() Mode {
	return c.mode
}

// Members returns a copy of the cached member sequence.
func (c *Controller) Members() []models.Member {
	out := make([]models.Member, len(c.members))
	copy(out, c.members)
	return out
}

// Loaded reports whether a load has succeeded.
func (c *Controller) Loaded() bool {
	return c.loaded
}

// SetMode switches the layout and re-renders the cached members. An unknown
// mode is rejected and the state is left untouched.
func (c *Controller) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	c.mode = mode
	c.syncControls()
	c.render()
	c.logger.Debug("view mode set", zap.String("mode", string(mode)), zap.Int("members", len(c.members)))
	return nil
}

// Load shows the loading placeholder, fetches members once and renders them.
// On failure the error block replaces the placeholder and the error is
// returned for logging only; the page stays usable.
func (c *Controller) Load(ctx context.Context, src Source) error {
	if c.loaded || c.failure != "" {
		c.render()
		return nil
	}
	ShowLoading(c.target)

	members, err := src.Load(ctx)
	if err != nil {
		c.failure = errorMessage(err)
		ShowError(c.target, c.failure)
		return err
	}

	c.members = members
	c.loaded = true
	c.render()
	return nil
}

func errorMessage(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Error()
	}
	return (&LoadError{Kind: KindUnexpected, Err: err}).Error()
}

// render redraws the target. A failed load is terminal: the error block
// survives mode changes.
func (c *Controller) render() {
	if c.failure != "" {
		ShowError(c.target, c.failure)
		return
	}
	c.renderers[c.mode].Render(c.members, c.target)
}

func (c *Controller) syncControls() {
	if c.mode == ModeGrid {
		dom.AddClass(c.gridBtn, "active")
		dom.RemoveClass(c.listBtn, "active")
	} else {
		dom.AddClass(c.listBtn, "active")
		dom.RemoveClass(c.gridBtn, "active")
	}
	dom.SetAttr(c.gridBtn, "aria-pressed", fmt.Sprint(c.mode == ModeGrid))
	dom.SetAttr(c.listBtn, "aria-pressed", fmt.Sprint(c.mode == ModeList))
	dom.SetClass(c.target, c.mode.containerClass())
}
