package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"gallerylinks/internal/config"
	"gallerylinks/internal/export"
	"gallerylinks/internal/gallery"
	"gallerylinks/internal/metrics"
	"gallerylinks/internal/selection"
)

// GalleryLoader resolves a short ID into a view. *gallery.Controller
// implements it.
type GalleryLoader interface {
	Load(ctx context.Context, shortID string, forcePicking bool) gallery.View
}

// ShortIDChecker reports whether a short ID is bound to a link.
// *directory.Directory implements it.
type ShortIDChecker interface {
	Exists(ctx context.Context, shortID string) (bool, error)
}

// GalleryHandler serves the guest gallery pages.
type GalleryHandler struct {
	galleries GalleryLoader
	links     ShortIDChecker
	picks     *selection.PickStore
	cfg       *config.Config
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(galleries GalleryLoader, links ShortIDChecker, picks *selection.PickStore, cfg *config.Config) *GalleryHandler {
	return &GalleryHandler{galleries: galleries, links: links, picks: picks, cfg: cfg}
}

// Show renders the page shell for /s/:shortId. The grid is fetched by HTMX.
func (h *GalleryHandler) Show(c fiber.Ctx) error {
	return h.renderShell(c, false)
}

// ShowPicking renders /p/:shortId, which always uses picking mode.
func (h *GalleryHandler) ShowPicking(c fiber.Ctx) error {
	return h.renderShell(c, true)
}

func (h *GalleryHandler) renderShell(c fiber.Ctx, forcePicking bool) error {
	shortID := c.Params("shortId")
	return c.Render("gallery", MergeBranding(fiber.Map{
		"Title": shortID,
		"View":  gallery.Loading(shortID, forcePicking),
	}, h.cfg))
}

// Grid renders the resolved gallery. Without HTMX the full page is rendered.
func (h *GalleryHandler) Grid(c fiber.Ctx) error {
	shortID := c.Params("shortId")
	forcePicking := c.Query("picking") == "1"

	view := h.galleries.Load(c.Context(), shortID, forcePicking)
	metrics.GalleryLoads.WithLabelValues(view.State.String()).Inc()

	data := h.viewData(c, view)
	data["SelectMode"] = c.Query("select") == "1"

	status := fiber.StatusOK
	if view.State == gallery.StateError && view.NotFound {
		status = fiber.StatusNotFound
	}

	if !isHTMX(c) {
		return c.Status(status).Render("gallery", MergeBranding(data, h.cfg))
	}
	// HTMX only swaps 2xx responses.
	return c.Render(gridTemplate(view.State), data, "")
}

// gridTemplate picks the partial for a view state.
func gridTemplate(state gallery.State) string {
	switch state {
	case gallery.StateLoading:
		return "partials/gallery_loading"
	case gallery.StateError:
		return "partials/gallery_error"
	case gallery.StateReady, gallery.StatePreview:
		return "partials/gallery_grid"
	default:
		return "partials/gallery_error"
	}
}

func (h *GalleryHandler) viewData(c fiber.Ctx, view gallery.View) fiber.Map {
	picked := selection.NewSet()
	if scope := existingVisitorID(c); scope != "" && view.State == gallery.StateReady {
		var err error
		picked, err = h.picks.Load(scope, view.ShortID)
		if err != nil {
			slog.Error("failed to load picks", "short_id", view.ShortID, "error", err)
			picked = selection.NewSet()
		}
	}

	selected := loadSelection(c, view.ShortID)
	return fiber.Map{
		"Title":        view.Title,
		"View":         view,
		"Selected":     selected,
		"SelectedIDs":  selected.IDs(),
		"Picked":       picked,
		"PickedCount":  picked.Len(),
		"ArchiveName":  export.ArchiveName(view.Title),
		"PickListName": export.PickedListName(view.Title),
		"Delay":        export.DefaultDelay.Milliseconds(),
	}
}

// ToggleSelect flips one file in the visitor's selection.
func (h *GalleryHandler) ToggleSelect(c fiber.Ctx) error {
	shortID := c.Params("shortId")
	fileID := c.Params("fileId")

	set := loadSelection(c, shortID)
	selected := set.Toggle(fileID)
	if err := saveSelection(c, shortID, set); err != nil {
		return err
	}

	return c.Render("partials/select_toggle", fiber.Map{
		"ShortID":     shortID,
		"FileID":      fileID,
		"Selected":    selected,
		"Count":       set.Len(),
		"SelectedIDs": set.IDs(),
	}, "")
}

// ClearSelection leaves selection mode and forgets the selection.
func (h *GalleryHandler) ClearSelection(c fiber.Ctx) error {
	shortID := c.Params("shortId")
	if err := saveSelection(c, shortID, selection.NewSet()); err != nil {
		return err
	}
	if isHTMX(c) {
		c.Set("HX-Refresh", "true")
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect().To("/s/" + shortID)
}

// TogglePick flips one file in the visitor's persisted picks.
func (h *GalleryHandler) TogglePick(c fiber.Ctx) error {
	shortID := c.Params("shortId")
	fileID := c.Params("fileId")

	exists, err := h.links.Exists(c.Context(), shortID)
	if err != nil {
		slog.Error("failed to look up gallery", "short_id", shortID, "error", err)
		return htmxError(c, "Failed to save your pick.")
	}
	if !exists {
		return fiber.NewError(fiber.StatusNotFound, gallery.MsgNotFound)
	}

	scope, err := visitorID(c)
	if err != nil {
		return err
	}

	set, picked, err := h.picks.Toggle(scope, shortID, fileID)
	if err != nil {
		slog.Error("failed to toggle pick", "short_id", shortID, "file_id", fileID, "error", err)
		return htmxError(c, "Failed to save your pick.")
	}

	return c.Render("partials/pick_toggle", fiber.Map{
		"ShortID": shortID,
		"FileID":  fileID,
		"Picked":  picked,
		"Count":   set.Len(),
	}, "")
}

// PickedList downloads the names of the visitor's picks as text.
func (h *GalleryHandler) PickedList(c fiber.Ctx) error {
	shortID := c.Params("shortId")

	view := h.galleries.Load(c.Context(), shortID, true)
	if view.State != gallery.StateReady {
		return fiber.NewError(fiber.StatusNotFound, view.Message)
	}

	picked := selection.NewSet()
	if scope := existingVisitorID(c); scope != "" {
		var err error
		picked, err = h.picks.Load(scope, shortID)
		if err != nil {
			return err
		}
	}

	files := picked.Filter(view.Files)
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No photos picked yet.")
	}

	metrics.RecordExport("picked_list", len(files), nil)
	c.Set(fiber.HeaderContentDisposition, export.Disposition(export.PickedListName(view.Title)))
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.Send(export.PickedList(files))
}
