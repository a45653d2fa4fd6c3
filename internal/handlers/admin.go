package handlers

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"gallerylinks/internal/config"
	"gallerylinks/internal/directory"
	"gallerylinks/internal/gallery"
	"gallerylinks/internal/jobs"
	"gallerylinks/internal/models"
	"gallerylinks/internal/selection"
	"gallerylinks/internal/validation"
)

// Admin toast messages.
const (
	MsgLinkCreated   = "Gallery link created successfully!"
	MsgCreateFailed  = "Failed to create link."
	MsgLinkDeleted   = "Link deleted successfully."
	MsgDeleteFailed  = "Failed to delete link."
	MsgMissingFields = "Title, folder and short ID are required."
	MsgShortIDLength = "Short ID must be at most 100 characters."
)

// LinkDirectory is the link management the dashboard needs.
// *directory.Directory implements it.
type LinkDirectory interface {
	Find(ctx context.Context, shortID string) (*models.Link, error)
	Create(ctx context.Context, in directory.CreateInput) (*models.Link, error)
	Exists(ctx context.Context, shortID string) (bool, error)
	List(ctx context.Context) ([]models.Link, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Subscribe(ctx context.Context) (<-chan []models.Link, error)
}

// FolderStatuses reports and runs folder checks. *jobs.FolderChecker
// implements it; nil disables status badges.
type FolderStatuses interface {
	Status(shortID string) (jobs.FolderStatus, bool)
	Check(ctx context.Context, link models.Link) jobs.FolderStatus
}

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	links     LinkDirectory
	statuses  FolderStatuses
	cfg       *config.Config
	keepAlive time.Duration
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(links LinkDirectory, statuses FolderStatuses, cfg *config.Config) *AdminHandler {
	return &AdminHandler{links: links, statuses: statuses, cfg: cfg, keepAlive: 15 * time.Second}
}

// LinkRow is one dashboard row.
type LinkRow struct {
	models.Link
	URL        string
	PickingURL string
	Status     *jobs.FolderStatus
}

func (h *AdminHandler) rows(links []models.Link) []LinkRow {
	base := strings.TrimRight(h.cfg.BaseURL, "/")
	rows := make([]LinkRow, len(links))
	for i, l := range links {
		rows[i] = LinkRow{
			Link:       l,
			URL:        base + l.GalleryPath(),
			PickingURL: base + l.PickingPath(),
		}
		if h.statuses != nil {
			if st, ok := h.statuses.Status(l.ShortID); ok {
				rows[i].Status = &st
			}
		}
	}
	return rows
}

// Dashboard renders the admin page.
func (h *AdminHandler) Dashboard(c fiber.Ctx) error {
	admin, _ := c.Locals("admin").(*models.Admin)

	links, err := h.links.List(c.Context())
	if err != nil {
		return err
	}

	return c.Render("admin", MergeBranding(fiber.Map{
		"Title":               "Dashboard",
		"Admin":               admin,
		"Links":               h.rows(links),
		"ServiceAccountEmail": h.cfg.ServiceAccountEmail(),
	}, h.cfg))
}

// Create handles the new-link form via HTMX.
func (h *AdminHandler) Create(c fiber.Ctx) error {
	in := directory.CreateInput{
		Title:       c.FormValue("title"),
		FolderRef:   c.FormValue("folder"),
		ShortID:     c.FormValue("shortId"),
		PickingMode: c.FormValue("pickingMode") == "on" || c.FormValue("pickingMode") == "true",
	}

	link, err := h.links.Create(c.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrDuplicateShortID):
			return htmxError(c, fmt.Sprintf("Short ID %q already exists.", validation.Slugify(in.ShortID)))
		case errors.Is(err, directory.ErrShortIDTooLong):
			return htmxError(c, MsgShortIDLength)
		case errors.Is(err, directory.ErrInvalidInput):
			return htmxError(c, MsgMissingFields)
		default:
			slog.Error("failed to create link", "short_id", in.ShortID, "error", err)
			return htmxError(c, MsgCreateFailed)
		}
	}

	slog.Info("gallery link created", "short_id", link.ShortID, "folder_id", link.FolderID)
	return c.Render("partials/form_success", fiber.Map{
		"Message": MsgLinkCreated,
		"Link":    link,
		"URL":     strings.TrimRight(h.cfg.BaseURL, "/") + link.GalleryPath(),
	}, "")
}

// Delete removes a link via HTMX.
func (h *AdminHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.links.Delete(c.Context(), id); err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			slog.Error("failed to delete link", "id", id, "error", err)
		}
		return htmxError(c, MsgDeleteFailed)
	}

	// Return the toast; the row disappears through the live list.
	return c.Render("partials/toast", fiber.Map{"Message": MsgLinkDeleted}, "")
}

// Recheck lists one link's folder on demand and renders its status badge.
func (h *AdminHandler) Recheck(c fiber.Ctx) error {
	if h.statuses == nil {
		return fiber.NewError(fiber.StatusNotFound, "folder checks are disabled")
	}

	link, err := h.links.Find(c.Context(), c.Params("shortId"))
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "link not found")
		}
		return err
	}

	st := h.statuses.Check(c.Context(), *link)
	return c.Render("partials/folder_status", fiber.Map{"Status": &st, "ShortID": link.ShortID}, "")
}

// CheckShortID reports whether the slug of the typed short ID is free.
func (h *AdminHandler) CheckShortID(c fiber.Ctx) error {
	raw := c.Query("shortId")
	if raw == "" {
		raw = c.Query("title")
	}
	shortID := validation.Slugify(raw)

	available := false
	if shortID != "" {
		exists, err := h.links.Exists(c.Context(), shortID)
		if err != nil {
			return err
		}
		available = !exists
	}

	return c.Render("partials/shortid_check", fiber.Map{
		"ShortID":   shortID,
		"Available": available,
	}, "")
}

// Preview renders the gallery grid for the values in the form.
func (h *AdminHandler) Preview(c fiber.Ctx) error {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		title = "Untitled gallery"
	}
	view := gallery.Preview(title, nil)
	view.Picking = c.Query("pickingMode") == "on" || c.Query("pickingMode") == "true"

	return c.Render("partials/gallery_grid", fiber.Map{
		"Title":       title,
		"View":        view,
		"Selected":    selection.NewSet(),
		"Picked":      selection.NewSet(),
		"PickedCount": 0,
	}, "")
}

// Stream pushes the rendered link list whenever links change (SSE).
func (h *AdminHandler) Stream(c fiber.Ctx) error {
	views := c.App().Config().Views
	if views == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "views not configured")
	}

	// The stream outlives the handler, so it cannot use the request context.
	ctx, cancel := context.WithCancel(context.Background())
	updates, err := h.links.Subscribe(ctx)
	if err != nil {
		cancel()
		slog.Error("failed to subscribe to links", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "live updates unavailable")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case links, ok := <-updates:
				if !ok {
					return
				}
				var buf bytes.Buffer
				if err := views.Render(&buf, "partials/link_rows", fiber.Map{"Links": h.rows(links)}); err != nil {
					slog.Error("failed to render link rows", "error", err)
					return
				}
				writeEvent(w, "links", buf.String())
			case <-ticker.C:
				w.WriteString(": keep-alive\n\n")
			}
			if err := w.Flush(); err != nil {
				// Client went away.
				return
			}
		}
	})
}

// writeEvent writes one SSE event, prefixing every data line.
func writeEvent(w *bufio.Writer, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	w.WriteString("\n")
}
