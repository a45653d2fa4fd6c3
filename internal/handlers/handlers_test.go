package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/gofiber/template/html/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gallerylinks/internal/directory"
	"gallerylinks/internal/jobs"
	"gallerylinks/internal/models"
)

var testViews = fstest.MapFS{
	"gallery.html":                  {Data: []byte(`page:{{.View.State}}:{{.View.Message}}`)},
	"admin.html":                    {Data: []byte(`admin:{{len .Links}}:{{.ServiceAccountEmail}}`)},
	"partials/gallery_loading.html": {Data: []byte(`loading`)},
	"partials/gallery_error.html":   {Data: []byte(`error:{{.View.Message}}`)},
	"partials/gallery_grid.html":    {Data: []byte(`grid:{{len .View.Files}}:picked={{.PickedCount}}:select={{.SelectMode}}`)},
	"partials/select_toggle.html":   {Data: []byte(`select:{{.FileID}}:{{.Selected}}:{{.Count}}`)},
	"partials/pick_toggle.html":     {Data: []byte(`pick:{{.FileID}}:{{.Picked}}:{{.Count}}`)},
	"partials/form_success.html":    {Data: []byte(`created:{{.Link.ShortID}}:{{.URL}}`)},
	"partials/toast.html":           {Data: []byte(`toast:{{.Message}}`)},
	"partials/shortid_check.html":   {Data: []byte(`check:{{.ShortID}}:{{.Available}}`)},
	"partials/folder_status.html":   {Data: []byte(`status:{{.ShortID}}:{{.Status.Reachable}}:{{.Status.Images}}`)},
	"partials/link_rows.html":       {Data: []byte(`{{range .Links}}row:{{.ShortID}};{{end}}`)},
}

func newApp() *fiber.App {
	engine := html.NewFileSystem(http.FS(testViews), ".html")
	app := fiber.New(fiber.Config{Views: engine})
	sessionMiddleware, _ := session.NewWithStore()
	app.Use(sessionMiddleware)
	return app
}

// client replays the session cookie across requests.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(method, path string, headers map[string]string) (*http.Response, string) {
	cl.t.Helper()
	return cl.send(httptest.NewRequest(method, path, nil), headers)
}

func (cl *client) doForm(method, path, form string) (*http.Response, string) {
	cl.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form))
	return cl.send(req, map[string]string{
		fiber.HeaderContentType: fiber.MIMEApplicationForm,
		"HX-Request":            "true",
	})
}

func (cl *client) send(req *http.Request, headers map[string]string) (*http.Response, string) {
	cl.t.Helper()
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	resp, err := cl.app.Test(req)
	require.NoError(cl.t, err)
	for _, c := range resp.Cookies() {
		cl.cookies[c.Name] = c
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(cl.t, err)
	return resp, string(body)
}

var htmx = map[string]string{"HX-Request": "true"}

type fakeLinks struct {
	links    []models.Link
	createFn func(directory.CreateInput) (*models.Link, error)
	deleted  []uuid.UUID
	err      error
}

func (f *fakeLinks) Find(_ context.Context, shortID string) (*models.Link, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.links {
		if f.links[i].ShortID == shortID {
			return &f.links[i], nil
		}
	}
	return nil, directory.ErrNotFound
}

func (f *fakeLinks) Create(_ context.Context, in directory.CreateInput) (*models.Link, error) {
	return f.createFn(in)
}

func (f *fakeLinks) Exists(ctx context.Context, shortID string) (bool, error) {
	_, err := f.Find(ctx, shortID)
	if errors.Is(err, directory.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeLinks) List(context.Context) ([]models.Link, error) {
	return f.links, f.err
}

func (f *fakeLinks) Delete(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// Subscribe sends the current links once and closes the feed.
func (f *fakeLinks) Subscribe(context.Context) (<-chan []models.Link, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan []models.Link, 1)
	ch <- f.links
	close(ch)
	return ch, nil
}

type fakeFiles struct {
	folders map[string][]models.File
	err     error
}

func (f *fakeFiles) ListImages(_ context.Context, folderID string) ([]models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.folders[folderID], nil
}

type fakeStatuses struct {
	status  map[string]jobs.FolderStatus
	checked []string
}

func (f *fakeStatuses) Status(shortID string) (jobs.FolderStatus, bool) {
	st, ok := f.status[shortID]
	return st, ok
}

func (f *fakeStatuses) Check(_ context.Context, link models.Link) jobs.FolderStatus {
	f.checked = append(f.checked, link.ShortID)
	st := jobs.FolderStatus{Reachable: true, Images: 4}
	f.status[link.ShortID] = st
	return st
}
