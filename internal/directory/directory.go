// Package directory maps short IDs to gallery links. It sits between the
// HTTP handlers and the database and owns the normalization and uniqueness
// rules for new links.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gallerylinks/internal/config"
	"gallerylinks/internal/db"
	"gallerylinks/internal/models"
	"gallerylinks/internal/validation"
)

var (
	ErrNotFound         = errors.New("gallery not found")
	ErrDuplicateShortID = errors.New("short ID already exists")
	ErrInvalidInput     = errors.New("title, folder and short ID are required")
	ErrShortIDTooLong   = fmt.Errorf("%w: short ID must be at most %d characters", ErrInvalidInput, validation.MaxShortIDLength)
)

// Store is the persistence the directory needs. *db.DB implements it.
type Store interface {
	CreateLink(ctx context.Context, link *models.Link) error
	GetLinkByShortID(ctx context.Context, shortID string) (*models.Link, error)
	ShortIDExists(ctx context.Context, shortID string) (bool, error)
	ListLinks(ctx context.Context) ([]models.Link, error)
	DeleteLink(ctx context.Context, id uuid.UUID) error
	// ListenLinkChanges blocks until ctx is done, calling onChange once
	// the listener is active and after every change.
	ListenLinkChanges(ctx context.Context, onChange func()) error
}

// Directory is the link lookup and management service.
type Directory struct {
	store Store
	now   func() time.Time

	mu   sync.Mutex
	subs map[*subscriber]struct{}
	feed *feed
}

// feed is the running change listener shared by all subscribers.
type feed struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a directory over the given store.
func New(store Store) *Directory {
	return &Directory{store: store, now: time.Now, subs: make(map[*subscriber]struct{})}
}

// CreateInput is the admin form payload.
type CreateInput struct {
	Title       string
	FolderRef   string
	ShortID     string
	PickingMode bool
}

// Find resolves a short ID. A missing link yields ErrNotFound.
func (d *Directory) Find(ctx context.Context, shortID string) (*models.Link, error) {
	link, err := d.store.GetLinkByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, db.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return link, nil
}

// Exists reports whether a short ID is taken.
func (d *Directory) Exists(ctx context.Context, shortID string) (bool, error) {
	exists, err := d.store.ShortIDExists(ctx, shortID)
	if err != nil {
		return false, fmt.Errorf("failed to check short ID: %w", err)
	}
	return exists, nil
}

// Create normalizes the short ID again, rejects duplicates, strips a pasted
// folder URL down to its ID and writes the link.
//
// The existence check and the insert are not atomic: two concurrent creates
// for the same short ID can both succeed.
func (d *Directory) Create(ctx context.Context, in CreateInput) (*models.Link, error) {
	title := strings.TrimSpace(in.Title)
	shortID := validation.Slugify(in.ShortID)
	folderID := validation.ExtractFolderID(in.FolderRef)

	if title == "" || folderID == "" || shortID == "" {
		return nil, ErrInvalidInput
	}
	if !validation.ValidateShortID(shortID) {
		return nil, ErrShortIDTooLong
	}

	exists, err := d.Exists(ctx, shortID)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateShortID, shortID)
	}

	link := &models.Link{
		ShortID:     shortID,
		FolderID:    folderID,
		Title:       title,
		PickingMode: in.PickingMode,
		CreatedAt:   d.now().UTC(),
	}
	if err := d.store.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	return link, nil
}

// List returns all links, newest first.
func (d *Directory) List(ctx context.Context) ([]models.Link, error) {
	links, err := d.store.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// Delete removes a link by its internal ID.
func (d *Directory) Delete(ctx context.Context, id uuid.UUID) error {
	if err := d.store.DeleteLink(ctx, id); err != nil {
		if errors.Is(err, db.ErrLinkNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// Subscribe streams ordered snapshots of all links: one immediately, then one
// after every change to the store. All subscribers share a single change
// feed, which runs while at least one of them is active. The channel is
// closed when ctx is done or the change feed fails.
func (d *Directory) Subscribe(ctx context.Context) (<-chan []models.Link, error) {
	sub := &subscriber{changed: make(chan struct{}, 1)}
	// Join before listing so no change between the two is lost.
	feedDone := d.join(sub)

	initial, err := d.List(ctx)
	if err != nil {
		d.leave(sub)
		return nil, err
	}

	out := make(chan []models.Link, 1)
	out <- initial

	go func() {
		defer close(out)
		defer d.leave(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-feedDone:
				return
			case <-sub.changed:
				links, err := d.List(ctx)
				if err != nil {
					slog.Error("failed to refresh link snapshot", "error", err)
					continue
				}
				select {
				case out <- links:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

type subscriber struct {
	changed chan struct{}
}

// join registers sub and starts the change feed if it is not running. It
// returns a channel closed when that feed stops.
func (d *Directory) join(sub *subscriber) <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.subs[sub] = struct{}{}
	if d.feed == nil {
		ctx, cancel := context.WithCancel(context.Background())
		f := &feed{cancel: cancel, done: make(chan struct{})}
		d.feed = f
		go d.runFeed(ctx, f)
	}
	return d.feed.done
}

// leave unregisters sub and stops the feed once nobody is subscribed.
func (d *Directory) leave(sub *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.subs, sub)
	if len(d.subs) == 0 && d.feed != nil {
		d.feed.cancel()
		d.feed = nil
	}
}

func (d *Directory) runFeed(ctx context.Context, f *feed) {
	defer close(f.done)

	err := d.store.ListenLinkChanges(ctx, d.broadcast)
	if err != nil {
		slog.Error("link change feed stopped", "error", err)
	}

	d.mu.Lock()
	if d.feed == f {
		f.cancel()
		d.feed = nil
	}
	d.mu.Unlock()
}

// broadcast marks every subscriber as stale. Bursts coalesce into a single
// refresh per subscriber.
func (d *Directory) broadcast() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for sub := range d.subs {
		select {
		case sub.changed <- struct{}{}:
		default:
		}
	}
}

// Seed creates the configured galleries whose short IDs are not taken yet.
// It returns how many links were created.
func (d *Directory) Seed(ctx context.Context, galleries []config.GalleryConfig) (int, error) {
	created := 0
	for _, g := range galleries {
		shortID := g.ShortID
		if shortID == "" {
			shortID = g.Title
		}
		_, err := d.Create(ctx, CreateInput{
			Title:       g.Title,
			FolderRef:   g.Folder,
			ShortID:     shortID,
			PickingMode: g.PickingMode,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateShortID):
			continue
		default:
			return created, fmt.Errorf("failed to seed gallery %q: %w", g.Title, err)
		}
	}
	return created, nil
}
