package models

import (
	"strconv"
	"strings"
)

// File describes one image in a storage folder. Field names follow the
// storage API so folder listings can be relayed as-is.
type File struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MimeType       string `json:"mimeType"`
	Size           string `json:"size,omitempty"`
	ThumbnailLink  string `json:"thumbnailLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
}

// HumanSize formats the file size for display.
func (f File) HumanSize() string {
	if f.Size == "" {
		return FormatBytes(0)
	}
	n, err := strconv.ParseInt(f.Size, 10, 64)
	if err != nil {
		return FormatBytes(0)
	}
	return FormatBytes(n)
}

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with binary (1024) steps and up to two
// decimals, dropping trailing zeros: 1024 is "1 KB", 1536 is "1.5 KB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " " + byteUnits[i]
}
