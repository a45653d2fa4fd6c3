package handlers

import (
	"bufio"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"gallerylinks/internal/config"
	"gallerylinks/internal/directory"
	"gallerylinks/internal/jobs"
	"gallerylinks/internal/models"
)

func newAdminApp(t *testing.T, links *fakeLinks, statuses FolderStatuses) *client {
	t.Helper()
	cfg := &config.Config{
		BaseURL:                   "https://photos.example/",
		StorageBackend:            config.StorageDrive,
		GoogleServiceAccountEmail: "svc@project.iam.gserviceaccount.com",
	}
	h := NewAdminHandler(links, statuses, cfg)
	h.keepAlive = time.Hour

	app := newApp()
	app.Get("/admin", h.Dashboard)
	app.Post("/admin/links", h.Create)
	app.Delete("/admin/links/:id", h.Delete)
	app.Get("/admin/links/check", h.CheckShortID)
	app.Get("/admin/links/stream", h.Stream)
	app.Post("/admin/links/:shortId/recheck", h.Recheck)
	return newClient(t, app)
}

func TestAdminHandler_Dashboard(t *testing.T) {
	links := &fakeLinks{links: []models.Link{{ShortID: "a"}, {ShortID: "b"}}}
	cl := newAdminApp(t, links, nil)

	resp, body := cl.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin:2:svc@project.iam.gserviceaccount.com", body)
}

func TestAdminHandler_Create(t *testing.T) {
	tests := []struct {
		name     string
		createFn func(directory.CreateInput) (*models.Link, error)
		wantBody string
	}{
		{
			name: "created",
			createFn: func(in directory.CreateInput) (*models.Link, error) {
				return &models.Link{ShortID: "summer-trip", Title: in.Title}, nil
			},
			wantBody: "created:summer-trip:https://photos.example/s/summer-trip",
		},
		{
			name: "duplicate",
			createFn: func(directory.CreateInput) (*models.Link, error) {
				return nil, directory.ErrDuplicateShortID
			},
			wantBody: `Short ID &#34;summer-trip&#34; already exists.`,
		},
		{
			name: "invalid",
			createFn: func(directory.CreateInput) (*models.Link, error) {
				return nil, directory.ErrInvalidInput
			},
			wantBody: MsgMissingFields,
		},
		{
			name: "short id too long",
			createFn: func(directory.CreateInput) (*models.Link, error) {
				return nil, directory.ErrShortIDTooLong
			},
			wantBody: MsgShortIDLength,
		},
		{
			name: "store failure",
			createFn: func(directory.CreateInput) (*models.Link, error) {
				return nil, errors.New("connection refused")
			},
			wantBody: MsgCreateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got directory.CreateInput
			links := &fakeLinks{createFn: func(in directory.CreateInput) (*models.Link, error) {
				got = in
				return tt.createFn(in)
			}}
			cl := newAdminApp(t, links, nil)

			resp, body := cl.doForm(http.MethodPost, "/admin/links",
				"title=Summer+Trip&folder=https%3A%2F%2Fdrive.google.com%2Fdrive%2Ffolders%2Fabc&shortId=Summer+Trip&pickingMode=on")
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Contains(t, body, tt.wantBody)
			assert.Equal(t, "Summer Trip", got.Title)
			assert.True(t, got.PickingMode)
		})
	}
}

func TestAdminHandler_Delete(t *testing.T) {
	links := &fakeLinks{}
	cl := newAdminApp(t, links, nil)

	resp, _ := cl.do(http.MethodDelete, "/admin/links/not-a-uuid", htmx)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	id := uuid.New()
	_, body := cl.do(http.MethodDelete, "/admin/links/"+id.String(), htmx)
	assert.Equal(t, "toast:"+MsgLinkDeleted, body)
	assert.Equal(t, []uuid.UUID{id}, links.deleted)

	links.err = errors.New("db down")
	_, body = cl.do(http.MethodDelete, "/admin/links/"+id.String(), htmx)
	assert.Contains(t, body, MsgDeleteFailed)
}

func TestAdminHandler_CheckShortID(t *testing.T) {
	cl := newAdminApp(t, &fakeLinks{links: []models.Link{{ShortID: "summer-trip"}}}, nil)

	tests := []struct {
		query string
		want  string
	}{
		{"shortId=Summer+Trip", "check:summer-trip:false"},
		{"shortId=Winter", "check:winter:true"},
		{"title=Caf%C3%A9+Night", "check:cafe-night:true"},
		{"shortId=%21%21%21", "check::false"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, body := cl.do(http.MethodGet, "/admin/links/check?"+tt.query, htmx)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestAdminHandler_Recheck(t *testing.T) {
	statuses := &fakeStatuses{status: map[string]jobs.FolderStatus{}}
	cl := newAdminApp(t, &fakeLinks{links: []models.Link{{ShortID: "trip", FolderID: "f"}}}, statuses)

	_, body := cl.do(http.MethodPost, "/admin/links/trip/recheck", htmx)
	assert.Equal(t, "status:trip:true:4", body)
	assert.Equal(t, []string{"trip"}, statuses.checked)

	resp, _ := cl.do(http.MethodPost, "/admin/links/missing/recheck", htmx)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	disabled := newAdminApp(t, &fakeLinks{}, nil)
	resp, _ = disabled.do(http.MethodPost, "/admin/links/trip/recheck", htmx)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminHandler_Stream(t *testing.T) {
	links := &fakeLinks{links: []models.Link{{ShortID: "trip"}, {ShortID: "beach"}}}
	cl := newAdminApp(t, links, nil)

	resp, body := cl.do(http.MethodGet, "/admin/links/stream", map[string]string{"Accept": "text/event-stream"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "event: links\ndata: row:trip;row:beach;\n\n", body)
}

func TestAdminHandler_StreamUnavailable(t *testing.T) {
	cl := newAdminApp(t, &fakeLinks{err: errors.New("listen failed")}, nil)

	resp, _ := cl.do(http.MethodGet, "/admin/links/stream", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestAdminHandler_RowsCarryStatus(t *testing.T) {
	statuses := &fakeStatuses{status: map[string]jobs.FolderStatus{"trip": {Reachable: true, Images: 9}}}
	h := NewAdminHandler(nil, statuses, &config.Config{BaseURL: "https://photos.example"})

	rows := h.rows([]models.Link{{ShortID: "trip"}, {ShortID: "new"}})
	assert.Equal(t, "https://photos.example/s/trip", rows[0].URL)
	assert.Equal(t, "https://photos.example/p/trip", rows[0].PickingURL)
	if assert.NotNil(t, rows[0].Status) {
		assert.Equal(t, 9, rows[0].Status.Images)
	}
	assert.Nil(t, rows[1].Status)
}

func TestWriteEvent_MultiLine(t *testing.T) {
	var sb strings.Builder
	w := bufio.NewWriter(&sb)
	writeEvent(w, "links", "<tr>\n</tr>")
	assert.NoError(t, w.Flush())
	assert.Equal(t, "event: links\ndata: <tr>\ndata: </tr>\n\n", sb.String())
}
