package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_Paths(t *testing.T) {
	link := &Link{ShortID: "persona-albume"}

	assert.Equal(t, "/s/persona-albume", link.GalleryPath())
	assert.Equal(t, "/p/persona-albume", link.PickingPath())
}

func TestLink_DisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		link *Link
		want string
	}{
		{"nil link", nil, "gallery"},
		{"empty title", &Link{}, "gallery"},
		{"titled", &Link{Title: "Da Lat"}, "Da Lat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.link.DisplayTitle())
		})
	}
}

func TestLink_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Link{ShortID: "a", FolderID: "f", PickingMode: true})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "a", raw["shortId"])
	assert.Equal(t, "f", raw["folderId"])
	assert.Equal(t, true, raw["isPickingMode"])
}

func TestAdmin_IsAuthorized(t *testing.T) {
	tests := []struct {
		name     string
		admin    *Admin
		adminSub string
		want     bool
	}{
		{"exact match", &Admin{Sub: "uid-1"}, "uid-1", true},
		{"mismatch", &Admin{Sub: "uid-2"}, "uid-1", false},
		{"case differs", &Admin{Sub: "UID-1"}, "uid-1", false},
		{"empty configured sub", &Admin{Sub: ""}, "", false},
		{"nil admin", nil, "uid-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.admin.IsAuthorized(tt.adminSub))
		})
	}
}

func TestAdmin_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana", (&Admin{Sub: "s", Email: "a@example.com", Name: "Ana"}).DisplayName())
	assert.Equal(t, "a@example.com", (&Admin{Sub: "s", Email: "a@example.com"}).DisplayName())
	assert.Equal(t, "s", (&Admin{Sub: "s"}).DisplayName())
}
