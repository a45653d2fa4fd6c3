package models

import (
	"time"

	"github.com/google/uuid"
)

// Link binds a short ID to a storage folder.
type Link struct {
	ID          uuid.UUID `json:"id"`
	ShortID     string    `json:"shortId"`
	FolderID    string    `json:"folderId"`
	Title       string    `json:"title"`
	PickingMode bool      `json:"isPickingMode"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GalleryPath returns the public path for the link.
func (l *Link) GalleryPath() string {
	return "/s/" + l.ShortID
}

// PickingPath returns the path that forces picking mode.
func (l *Link) PickingPath() string {
	return "/p/" + l.ShortID
}

// DisplayTitle falls back to "gallery" for untitled links.
func (l *Link) DisplayTitle() string {
	if l == nil || l.Title == "" {
		return "gallery"
	}
	return l.Title
}
