package handlers

import (
	"bytes"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/template/html/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallerylinks/internal/gallery"
	"gallerylinks/internal/models"
	"gallerylinks/internal/selection"
)

// renderGrid renders the shipped grid template.
func renderGrid(t *testing.T, view gallery.View, extra fiber.Map) string {
	t.Helper()
	engine := html.New("../../views", ".html")
	require.NoError(t, engine.Load())

	data := fiber.Map{
		"Title":        view.Title,
		"View":         view,
		"Selected":     selection.NewSet(),
		"SelectedIDs":  []string{},
		"Picked":       selection.NewSet(),
		"PickedCount":  0,
		"ArchiveName":  "Trip-photos.zip",
		"PickListName": "Trip-picked.txt",
		"Delay":        400,
	}
	for k, v := range extra {
		data[k] = v
	}

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, "partials/gallery_grid", data))
	return buf.String()
}

func driveFiles() []models.File {
	return []models.File{
		{ID: "file-0", Name: "a.jpg", MimeType: "image/jpeg", ThumbnailLink: "https://lh3.googleusercontent.com/x0=s220"},
		{ID: "file-1", Name: "b.jpg", MimeType: "image/jpeg", ThumbnailLink: "https://lh3.googleusercontent.com/x1=s220"},
	}
}

func TestGalleryGrid_PickingModeBlocksSaving(t *testing.T) {
	view := gallery.View{
		State:   gallery.StateReady,
		ShortID: "trip",
		Title:   "Trip",
		Picking: true,
		Files:   gallery.RewriteFiles(driveFiles(), true),
	}
	out := renderGrid(t, view, nil)

	assert.NotContains(t, out, "/api/image/")
	assert.NotContains(t, out, "data-download=")
	assert.NotContains(t, out, "/api/gallery/trip/archive")
	assert.Contains(t, out, "watermark")
	assert.Contains(t, out, `draggable="false"`)
	assert.Contains(t, out, "data-protected")
	assert.Contains(t, out, `hx-post="/s/trip/pick/file-0"`)
	assert.Contains(t, out, "x0=s1600")
}

func TestGalleryGrid_NormalModeOffersDownloads(t *testing.T) {
	view := gallery.View{
		State:   gallery.StateReady,
		ShortID: "trip",
		Title:   "Trip",
		Files:   gallery.RewriteFiles(driveFiles(), false),
	}
	out := renderGrid(t, view, nil)

	assert.Contains(t, out, `data-download="/api/image/file-0"`)
	assert.Contains(t, out, `action="/api/gallery/trip/archive"`)
	assert.NotContains(t, out, "watermark")
	assert.NotContains(t, out, "/pick/")
}

func TestGalleryGrid_SelectModeControls(t *testing.T) {
	view := gallery.View{
		State:   gallery.StateReady,
		ShortID: "trip",
		Title:   "Trip",
		Files:   gallery.RewriteFiles(driveFiles(), false),
	}
	out := renderGrid(t, view, fiber.Map{
		"SelectMode":  true,
		"Selected":    selection.NewSet("file-1"),
		"SelectedIDs": []string{"file-1"},
	})

	assert.Contains(t, out, `hx-post="/s/trip/select/file-0"`)
	assert.Contains(t, out, `<input type="hidden" name="ids" value="file-1">`)
	assert.Contains(t, out, `aria-label="Deselect"`)
}

func TestGalleryGrid_PreviewHasNoControls(t *testing.T) {
	for _, picking := range []bool{false, true} {
		view := gallery.Preview("Untitled gallery", nil)
		view.Picking = picking
		out := renderGrid(t, view, fiber.Map{"SelectMode": true})

		assert.NotContains(t, out, "/pick/", "picking=%v", picking)
		assert.NotContains(t, out, "/select/", "picking=%v", picking)
		assert.NotContains(t, out, "/s//", "picking=%v", picking)
		assert.Contains(t, out, "Preview Photo 1.jpg", "picking=%v", picking)
	}
}
