package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"gallerylinks/internal/export"
	"gallerylinks/internal/gallery"
	"gallerylinks/internal/metrics"
	"gallerylinks/internal/models"
	"gallerylinks/internal/selection"
	"gallerylinks/internal/storage"
)

// GalleryLoader resolves a short ID into a view. *gallery.Controller
// implements it.
type GalleryLoader interface {
	Load(ctx context.Context, shortID string, forcePicking bool) gallery.View
}

// GalleryHandler serves galleries and their exports as JSON and files.
type GalleryHandler struct {
	galleries GalleryLoader
	files     export.Opener
	picks     *selection.PickStore
}

// NewGalleryHandler creates a new API gallery handler.
func NewGalleryHandler(galleries GalleryLoader, files export.Opener, picks *selection.PickStore) *GalleryHandler {
	return &GalleryHandler{galleries: galleries, files: files, picks: picks}
}

// load resolves the gallery and writes the error response when it failed.
func (h *GalleryHandler) load(c fiber.Ctx) (gallery.View, bool, error) {
	view := h.galleries.Load(c.Context(), c.Params("shortId"), c.Query("picking") == "1")
	if view.State == gallery.StateReady {
		return view, true, nil
	}
	if view.NotFound {
		return view, false, jsonError(c, fiber.StatusNotFound, view.Message)
	}
	return view, false, jsonError(c, fiber.StatusBadGateway, view.Message)
}

// Get returns the link and its rewritten file list.
func (h *GalleryHandler) Get(c fiber.Ctx) error {
	view, ok, err := h.load(c)
	metrics.GalleryLoads.WithLabelValues(view.State.String()).Inc()
	if !ok {
		return err
	}

	return jsonSuccess(c, models.GalleryResponse{
		Link:    view.Link,
		Files:   view.Files,
		Picking: view.Picking,
	})
}

// MsgArchiveFailed is returned when a file could not be added to an archive.
const MsgArchiveFailed = "Failed to build archive"

// Archive sends the requested files of a gallery as one zip attachment.
// IDs come from repeated "ids" form fields or a JSON body {"ids": [...]}.
// The zip is built in memory first so a failed fetch becomes an error
// response rather than a truncated download.
func (h *GalleryHandler) Archive(c fiber.Ctx) error {
	ids, err := requestedIDs(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(ids) == 0 {
		return jsonError(c, fiber.StatusBadRequest, export.ErrNothingSelected.Error())
	}

	view, ok, err := h.load(c)
	if !ok {
		return err
	}

	files := selection.NewSet(ids...).Filter(view.Files)
	if len(files) == 0 {
		return jsonError(c, fiber.StatusBadRequest, export.ErrNothingSelected.Error())
	}

	var buf bytes.Buffer
	err = export.WriteZip(c.Context(), &buf, files, h.files, nil)
	metrics.RecordExport("zip", len(files), err)
	if err != nil {
		slog.Error("failed to build archive", "short_id", view.ShortID, "files", len(files), "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(models.FolderErrorResponse{
			Error:   MsgArchiveFailed,
			Details: storage.Detail(err),
		})
	}

	c.Set(fiber.HeaderContentDisposition, export.Disposition(export.ArchiveName(view.Title)))
	c.Set(fiber.HeaderContentType, "application/zip")
	return c.Send(buf.Bytes())
}

// Picks returns the IDs the current visitor picked in a gallery.
func (h *GalleryHandler) Picks(c fiber.Ctx) error {
	shortID := c.Params("shortId")
	resp := models.PicksResponse{ShortID: shortID, Picked: []string{}}

	sess := session.FromContext(c)
	if sess == nil {
		return jsonSuccess(c, resp)
	}
	scope, _ := sess.Get(selection.VisitorKey).(string)
	if scope == "" {
		return jsonSuccess(c, resp)
	}

	set, err := h.picks.Load(scope, shortID)
	if err != nil {
		slog.Error("failed to load picks", "short_id", shortID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to load picks")
	}
	if set.Len() > 0 {
		resp.Picked = set.IDs()
	}
	return jsonSuccess(c, resp)
}

func requestedIDs(c fiber.Ctx) ([]string, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return nil, err
		}
		return compact(body.IDs), nil
	}

	var ids []string
	for _, v := range c.Request().PostArgs().PeekMulti("ids") {
		ids = append(ids, string(v))
	}
	return compact(ids), nil
}

// compact drops empty IDs.
func compact(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
