package models

// GalleryResponse is the resolved gallery returned by the JSON API.
type GalleryResponse struct {
	Link    *Link  `json:"link"`
	Files   []File `json:"files"`
	Picking bool   `json:"picking"`
}

// ShortIDCheckResponse indicates whether a short ID is available.
type ShortIDCheckResponse struct {
	ShortID   string `json:"shortId"`
	Available bool   `json:"available"`
}

// FolderErrorResponse is the body returned when a folder cannot be listed.
type FolderErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PicksResponse lists the picked file IDs for one gallery.
type PicksResponse struct {
	ShortID string   `json:"shortId"`
	Picked  []string `json:"picked"`
}
