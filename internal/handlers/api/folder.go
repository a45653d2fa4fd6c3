package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"gallerylinks/internal/models"
	"gallerylinks/internal/storage"
)

// imageCacheControl lets browsers keep proxied images for a year. File IDs
// never point at different bytes.
const imageCacheControl = "public, max-age=31536000, immutable"

// FolderHandler relays folder listings and image bytes from storage.
type FolderHandler struct {
	files storage.Backend
}

// NewFolderHandler creates a new folder handler.
func NewFolderHandler(files storage.Backend) *FolderHandler {
	return &FolderHandler{files: files}
}

// List returns the images of a folder as a JSON array.
func (h *FolderHandler) List(c fiber.Ctx) error {
	folderID := c.Params("id")
	if folderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.FolderErrorResponse{Error: "Folder ID is required"})
	}

	files, err := h.files.ListImages(c.Context(), folderID)
	if err != nil {
		slog.Error("failed to list folder", "folder_id", folderID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.FolderErrorResponse{
			Error:   "Failed to fetch folder contents",
			Details: storage.Detail(err),
		})
	}
	if files == nil {
		files = []models.File{}
	}

	return c.JSON(files)
}

// Image streams one file through the server so the browser never needs
// storage credentials.
func (h *FolderHandler) Image(c fiber.Ctx) error {
	fileID := c.Params("id")
	if fileID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.FolderErrorResponse{Error: "File ID is required"})
	}

	// The body is read after the handler returns.
	body, contentType, err := h.files.Open(context.Background(), fileID)
	if err != nil {
		slog.Error("failed to open image", "file_id", fileID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.FolderErrorResponse{
			Error: "Failed to fetch image",
		})
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, imageCacheControl)
	// fasthttp closes the body once it has been sent.
	return c.SendStream(body)
}
