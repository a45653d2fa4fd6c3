package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"gallerylinks/internal/directory"
	"gallerylinks/internal/models"
	"gallerylinks/internal/validation"
)

// LinkStore is the link management the admin API needs.
// *directory.Directory implements it.
type LinkStore interface {
	Find(ctx context.Context, shortID string) (*models.Link, error)
	Create(ctx context.Context, in directory.CreateInput) (*models.Link, error)
	Exists(ctx context.Context, shortID string) (bool, error)
	List(ctx context.Context) ([]models.Link, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LinkHandler handles link CRUD operations via JSON API.
type LinkHandler struct {
	links LinkStore
}

// NewLinkHandler creates a new API link handler.
func NewLinkHandler(links LinkStore) *LinkHandler {
	return &LinkHandler{links: links}
}

// List returns all links, newest first.
func (h *LinkHandler) List(c fiber.Ctx) error {
	links, err := h.links.List(c.Context())
	if err != nil {
		slog.Error("failed to list links", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch links")
	}
	if links == nil {
		links = []models.Link{}
	}
	return jsonSuccess(c, links)
}

// Get returns a single link by short ID.
func (h *LinkHandler) Get(c fiber.Ctx) error {
	link, err := h.links.Find(c.Context(), c.Params("shortId"))
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "link not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch link")
	}
	return jsonSuccess(c, link)
}

// Create creates a new link.
func (h *LinkHandler) Create(c fiber.Ctx) error {
	var body struct {
		Title       string `json:"title"`
		Folder      string `json:"folder"`
		ShortID     string `json:"shortId"`
		PickingMode bool   `json:"pickingMode"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.links.Create(c.Context(), directory.CreateInput{
		Title:       body.Title,
		FolderRef:   body.Folder,
		ShortID:     body.ShortID,
		PickingMode: body.PickingMode,
	})
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrDuplicateShortID):
			return jsonError(c, fiber.StatusConflict, "a link with this short ID already exists")
		case errors.Is(err, directory.ErrInvalidInput):
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to create link", "short_id", body.ShortID, "error", err)
			return jsonError(c, fiber.StatusInternalServerError, "failed to create link")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   link,
	})
}

// Delete removes a link by its internal ID.
func (h *LinkHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid link id")
	}

	if err := h.links.Delete(c.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "link not found")
		}
		slog.Error("failed to delete link", "id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete link")
	}

	return jsonSuccess(c, fiber.Map{"message": "link deleted"})
}

// CheckShortID reports whether the slug of a proposed short ID is free.
func (h *LinkHandler) CheckShortID(c fiber.Ctx) error {
	shortID := validation.Slugify(c.Query("shortId"))
	if shortID == "" {
		return jsonError(c, fiber.StatusBadRequest, "shortId is required")
	}

	exists, err := h.links.Exists(c.Context(), shortID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to check short ID")
	}

	return jsonSuccess(c, models.ShortIDCheckResponse{ShortID: shortID, Available: !exists})
}
