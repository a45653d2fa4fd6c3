package directory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gallerylinks/internal/config"
	"gallerylinks/internal/db"
	"gallerylinks/internal/models"
)

// fakeStore is an in-memory Store with a change feed.
type fakeStore struct {
	mu        sync.Mutex
	links     []models.Link
	listeners []func()
	failWith  error
	listening chan struct{}

	// feed bookkeeping
	feedErr      error
	beforeListen func()
	active       int
	started      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{listening: make(chan struct{}, 8)}
}

func (f *fakeStore) notify() {
	f.mu.Lock()
	ls := append([]func(){}, f.listeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l()
	}
}

func (f *fakeStore) CreateLink(_ context.Context, link *models.Link) error {
	f.mu.Lock()
	if f.failWith != nil {
		f.mu.Unlock()
		return f.failWith
	}
	link.ID = uuid.New()
	f.links = append(f.links, *link)
	f.mu.Unlock()
	f.notify()
	return nil
}

func (f *fakeStore) GetLinkByShortID(_ context.Context, shortID string) (*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, l := range f.links {
		if l.ShortID == shortID {
			link := l
			return &link, nil
		}
	}
	return nil, db.ErrLinkNotFound
}

func (f *fakeStore) ShortIDExists(_ context.Context, shortID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, l := range f.links {
		if l.ShortID == shortID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListLinks(_ context.Context) ([]models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := append([]models.Link{}, f.links...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteLink(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	if f.failWith != nil {
		f.mu.Unlock()
		return f.failWith
	}
	for i, l := range f.links {
		if l.ID == id {
			f.links = append(f.links[:i], f.links[i+1:]...)
			f.mu.Unlock()
			f.notify()
			return nil
		}
	}
	f.mu.Unlock()
	return db.ErrLinkNotFound
}

func (f *fakeStore) ListenLinkChanges(ctx context.Context, onChange func()) error {
	f.mu.Lock()
	if f.feedErr != nil {
		f.mu.Unlock()
		return f.feedErr
	}
	f.listeners = append(f.listeners, onChange)
	f.active++
	f.started++
	hook := f.beforeListen
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	onChange()
	select {
	case f.listening <- struct{}{}:
	default:
	}

	<-ctx.Done()
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) feedCounts() (active, started int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.started
}

// waitForLen reads snapshots until one has n links.
func waitForLen(t *testing.T, updates <-chan []models.Link, n int) []models.Link {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-updates:
			require.True(t, ok, "updates closed")
			if len(snap) == n {
				return snap
			}
		case <-timeout:
			t.Fatalf("no snapshot with %d links", n)
		}
	}
}

func newTestDirectory(store Store) *Directory {
	d := New(store)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	d.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Minute)
		return tick
	}
	return d
}

func TestCreate_NormalizesAndExtracts(t *testing.T) {
	store := newFakeStore()
	d := newTestDirectory(store)
	ctx := context.Background()

	link, err := d.Create(ctx, CreateInput{
		Title:     "  Đà Lạt Trip ",
		FolderRef: "https://drive.google.com/drive/folders/1AbC_dEf-123?usp=sharing",
		ShortID:   "  Đà Lạt Trip!! ",
	})
	require.NoError(t, err)

	assert.Equal(t, "da-lat-trip", link.ShortID)
	assert.Equal(t, "1AbC_dEf-123", link.FolderID)
	assert.Equal(t, "Đà Lạt Trip", link.Title)
	assert.False(t, link.CreatedAt.IsZero())
	assert.NotEqual(t, uuid.Nil, link.ID)
}

func TestCreate_ThenExists(t *testing.T) {
	d := newTestDirectory(newFakeStore())
	ctx := context.Background()

	_, err := d.Create(ctx, CreateInput{Title: "Persona", FolderRef: "f", ShortID: "Persona Albume"})
	require.NoError(t, err)

	exists, err := d.Exists(ctx, "persona-albume")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreate_RejectsDuplicate(t *testing.T) {
	d := newTestDirectory(newFakeStore())
	ctx := context.Background()

	_, err := d.Create(ctx, CreateInput{Title: "One", FolderRef: "f1", ShortID: "same"})
	require.NoError(t, err)

	_, err = d.Create(ctx, CreateInput{Title: "Two", FolderRef: "f2", ShortID: "SAME"})
	require.ErrorIs(t, err, ErrDuplicateShortID)
	assert.Contains(t, err.Error(), `"same"`)

	links, err := d.List(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestCreate_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing title", CreateInput{FolderRef: "f", ShortID: "a"}},
		{"missing folder", CreateInput{Title: "t", ShortID: "a"}},
		{"short id normalizes to empty", CreateInput{Title: "t", FolderRef: "f", ShortID: "!!!"}},
		{"short id too long", CreateInput{Title: "t", FolderRef: "f", ShortID: strings.Repeat("a", 101)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDirectory(newFakeStore())
			_, err := d.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := newTestDirectory(newFakeStore()).Create(context.Background(),
		CreateInput{Title: "t", FolderRef: "f", ShortID: strings.Repeat("a", 101)})
	assert.ErrorIs(t, err, ErrShortIDTooLong)
}

func TestCreate_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("connection refused")
	d := newTestDirectory(store)

	_, err := d.Create(context.Background(), CreateInput{Title: "t", FolderRef: "f", ShortID: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create link")
	assert.ErrorIs(t, err, store.failWith)
}

func TestFind(t *testing.T) {
	d := newTestDirectory(newFakeStore())
	ctx := context.Background()

	created, err := d.Create(ctx, CreateInput{Title: "Persona", FolderRef: "folder-9", ShortID: "persona"})
	require.NoError(t, err)

	got, err := d.Find(ctx, "persona")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = d.Find(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	d := newTestDirectory(newFakeStore())
	ctx := context.Background()

	for _, sid := range []string{"a", "b", "c"} {
		_, err := d.Create(ctx, CreateInput{Title: sid, FolderRef: "f", ShortID: sid})
		require.NoError(t, err)
	}

	links, err := d.List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{links[0].ShortID, links[1].ShortID, links[2].ShortID})
}

func TestDelete(t *testing.T) {
	d := newTestDirectory(newFakeStore())
	ctx := context.Background()

	link, err := d.Create(ctx, CreateInput{Title: "t", FolderRef: "f", ShortID: "gone"})
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, link.ID))
	assert.ErrorIs(t, d.Delete(ctx, link.ID), ErrNotFound)

	exists, err := d.Exists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete_StoreFailure(t *testing.T) {
	store := newFakeStore()
	d := newTestDirectory(store)
	store.failWith = errors.New("boom")

	err := d.Delete(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete link")
}

func TestSubscribe_PushesSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFakeStore()
	d := newTestDirectory(store)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := d.Create(ctx, CreateInput{Title: "first", FolderRef: "f", ShortID: "first"})
	require.NoError(t, err)

	updates, err := d.Subscribe(ctx)
	require.NoError(t, err)

	initial := <-updates
	require.Len(t, initial, 1)
	assert.Equal(t, "first", initial[0].ShortID)

	<-store.listening
	_, err = d.Create(context.Background(), CreateInput{Title: "second", FolderRef: "f", ShortID: "second"})
	require.NoError(t, err)

	snap := waitForLen(t, updates, 2)
	assert.Equal(t, "second", snap[0].ShortID)

	cancel()
	for range updates {
	}
}

func TestSubscribe_SharesOneFeed(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFakeStore()
	d := newTestDirectory(store)

	var cancels []context.CancelFunc
	var feeds []<-chan []models.Link
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		updates, err := d.Subscribe(ctx)
		require.NoError(t, err)
		cancels = append(cancels, cancel)
		feeds = append(feeds, updates)
	}
	<-store.listening

	active, started := store.feedCounts()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, started)

	_, err := d.Create(context.Background(), CreateInput{Title: "trip", FolderRef: "f", ShortID: "trip"})
	require.NoError(t, err)
	for _, updates := range feeds {
		waitForLen(t, updates, 1)
	}

	// The feed keeps running until the last subscriber leaves.
	cancels[0]()
	for range feeds[0] {
	}
	active, _ = store.feedCounts()
	assert.Equal(t, 1, active)

	for i, cancel := range cancels[1:] {
		cancel()
		for range feeds[i+1] {
		}
	}
	require.Eventually(t, func() bool {
		active, _ := store.feedCounts()
		return active == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_RefreshesOnceListening(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFakeStore()
	// A write that lands after the snapshot but before LISTEN sends no
	// notification of its own.
	store.beforeListen = func() {
		store.mu.Lock()
		store.links = append(store.links, models.Link{ID: uuid.New(), ShortID: "late", Title: "late", FolderID: "f"})
		store.mu.Unlock()
	}
	d := newTestDirectory(store)
	ctx, cancel := context.WithCancel(context.Background())

	updates, err := d.Subscribe(ctx)
	require.NoError(t, err)

	snap := waitForLen(t, updates, 1)
	assert.Equal(t, "late", snap[0].ShortID)

	cancel()
	for range updates {
	}
}

func TestSubscribe_FeedFailureClosesStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFakeStore()
	store.feedErr = errors.New("connection lost")
	d := newTestDirectory(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := d.Subscribe(ctx)
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		for range updates {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream stayed open after the feed failed")
	}
}

func TestSubscribe_InitialListFailure(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("down")
	d := newTestDirectory(store)

	_, err := d.Subscribe(context.Background())
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	d := newTestDirectory(newFakeStore())
	ctx := context.Background()

	galleries := []config.GalleryConfig{
		{Title: "Persona Albume", Folder: "https://drive.google.com/drive/folders/abc"},
		{Title: "Wedding", Folder: "xyz", ShortID: "wedding", PickingMode: true},
	}

	created, err := d.Seed(ctx, galleries)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Second run finds both already present.
	created, err = d.Seed(ctx, galleries)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	link, err := d.Find(ctx, "persona-albume")
	require.NoError(t, err)
	assert.Equal(t, "abc", link.FolderID)

	wedding, err := d.Find(ctx, "wedding")
	require.NoError(t, err)
	assert.True(t, wedding.PickingMode)
}

func TestSeed_InvalidEntry(t *testing.T) {
	d := newTestDirectory(newFakeStore())

	_, err := d.Seed(context.Background(), []config.GalleryConfig{{Title: "No folder"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
