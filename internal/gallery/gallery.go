// Package gallery resolves a short ID into the view a visitor sees: a link
// record plus its folder's images, or an error explaining why not.
package gallery

import (
	"context"
	"errors"
	"log/slog"

	"gallerylinks/internal/directory"
	"gallerylinks/internal/models"
	"gallerylinks/internal/storage"
)

// State is the view variant to render.
type State int

const (
	StateLoading State = iota
	StateError
	StateReady
	StatePreview
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateReady:
		return "ready"
	case StatePreview:
		return "preview"
	default:
		return "unknown"
	}
}

const (
	MsgNotFound    = "Gallery not found."
	MsgLoadFailed  = "Failed to load gallery."
	MsgFetchFailed = "Failed to fetch folder contents. Make sure the folder is shared with the service account."
)

// Guidance is shown under folder fetch errors.
var Guidance = []string{
	"Ensure the folder ID is correct.",
	"Share the folder with the service account email.",
	`Check if the service account has "Viewer" permissions.`,
}

// View is everything a gallery page needs.
type View struct {
	State    State
	ShortID  string
	Link     *models.Link
	Title    string
	Files    []models.File
	Picking  bool
	Message  string
	NotFound bool
	Guidance []string
}

// Loading is the placeholder view rendered before the folder is fetched.
func Loading(shortID string, forcePicking bool) View {
	return View{State: StateLoading, ShortID: shortID, Picking: forcePicking}
}

// Finder resolves short IDs. *directory.Directory implements it.
type Finder interface {
	Find(ctx context.Context, shortID string) (*models.Link, error)
}

// Lister lists a folder's images. storage.Backend implements it.
type Lister interface {
	ListImages(ctx context.Context, folderID string) ([]models.File, error)
}

// Controller loads gallery views.
type Controller struct {
	links Finder
	files Lister
}

func NewController(links Finder, files Lister) *Controller {
	return &Controller{links: links, files: files}
}

// Load looks up the link, lists its folder and rewrites file URLs for
// display. It never returns StateLoading or StatePreview.
func (c *Controller) Load(ctx context.Context, shortID string, forcePicking bool) View {
	view := View{ShortID: shortID, Picking: forcePicking}

	link, err := c.links.Find(ctx, shortID)
	if err != nil {
		view.State = StateError
		if errors.Is(err, directory.ErrNotFound) {
			view.Message = MsgNotFound
			view.NotFound = true
			return view
		}
		slog.Error("gallery lookup failed", "short_id", shortID, "error", err)
		view.Message = MsgLoadFailed
		return view
	}

	view.Link = link
	view.Title = link.Title
	view.Picking = forcePicking || link.PickingMode

	files, err := c.files.ListImages(ctx, link.FolderID)
	if err != nil {
		slog.Warn("folder fetch failed", "short_id", shortID, "folder_id", link.FolderID, "error", err)
		view.State = StateError
		view.Message = storage.Detail(err)
		if view.Message == "" {
			view.Message = MsgFetchFailed
		}
		view.Guidance = Guidance
		return view
	}

	view.Files = RewriteFiles(files, view.Picking)
	view.State = StateReady
	return view
}
