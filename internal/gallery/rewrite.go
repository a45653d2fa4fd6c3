package gallery

import (
	"math/rand/v2"
	"net/url"
	"regexp"
	"strconv"

	"gallerylinks/internal/models"
)

const (
	ThumbnailSuffix = "=s800"
	PreviewSuffix   = "=s1600"

	// PreviewCount is the number of placeholders shown in an empty preview.
	PreviewCount = 12
)

var sizeSuffix = regexp.MustCompile(`=s\d+$`)

// ProxyURL is the same-origin stream proxy path for a file.
func ProxyURL(fileID string) string {
	return "/api/image/" + url.PathEscape(fileID)
}

// resize swaps a trailing =s<N> size suffix. Links without one are kept.
func resize(link, suffix string) string {
	return sizeSuffix.ReplaceAllLiteralString(link, suffix)
}

// RewriteFile points a file's display URLs at sizes suited to the grid.
// Thumbnails become the 800px variant, or the proxy when the source has no
// thumbnail. The full view streams the original through the proxy, except
// in picking mode where only the 1600px thumbnail is exposed.
func RewriteFile(f models.File, picking bool) models.File {
	out := f
	proxy := ProxyURL(f.ID)

	if f.ThumbnailLink != "" {
		out.ThumbnailLink = resize(f.ThumbnailLink, ThumbnailSuffix)
	} else {
		out.ThumbnailLink = proxy
	}

	if picking && f.ThumbnailLink != "" {
		out.WebContentLink = resize(f.ThumbnailLink, PreviewSuffix)
	} else {
		out.WebContentLink = proxy
	}
	return out
}

// RewriteFiles applies RewriteFile to every file.
func RewriteFiles(files []models.File, picking bool) []models.File {
	out := make([]models.File, len(files))
	for i, f := range files {
		out[i] = RewriteFile(f, picking)
	}
	return out
}

// PlaceholderFiles returns n stock images for previews.
func PlaceholderFiles(n int) []models.File {
	files := make([]models.File, n)
	for i := range files {
		seed := "https://picsum.photos/seed/preview-" + strconv.Itoa(i)
		files[i] = models.File{
			ID:             "preview-file-" + strconv.Itoa(i),
			Name:           "Preview Photo " + strconv.Itoa(i+1) + ".jpg",
			MimeType:       "image/jpeg",
			ThumbnailLink:  seed + "/400/600",
			WebContentLink: seed + "/1200/1800",
			Size:           strconv.FormatInt(rand.Int64N(5_000_000)+1_000_000, 10),
		}
	}
	return files
}

// Preview builds a view without touching the directory or storage. With no
// files it uses PreviewCount placeholders.
func Preview(title string, files []models.File) View {
	if len(files) == 0 {
		files = PlaceholderFiles(PreviewCount)
	}
	return View{
		State: StatePreview,
		Title: title,
		Files: files,
	}
}
