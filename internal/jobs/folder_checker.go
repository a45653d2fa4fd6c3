package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"gallerylinks/internal/metrics"
	"gallerylinks/internal/models"
	"gallerylinks/internal/storage"
)

// LinkLister returns every gallery link. *directory.Directory implements it.
type LinkLister interface {
	List(ctx context.Context) ([]models.Link, error)
}

// FolderStatus is the outcome of the last check of one link's folder.
type FolderStatus struct {
	Reachable bool
	Images    int
	Detail    string
	CheckedAt time.Time
}

// FolderChecker periodically lists every link's folder so the admin sees
// broken shares before guests do.
type FolderChecker struct {
	links    LinkLister
	files    storage.Backend
	interval time.Duration
	pause    time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	status map[string]FolderStatus
}

// NewFolderChecker creates a new folder checker.
func NewFolderChecker(links LinkLister, files storage.Backend, interval time.Duration) *FolderChecker {
	return &FolderChecker{
		links:    links,
		files:    files,
		interval: interval,
		pause:    time.Second,
		now:      time.Now,
		status:   make(map[string]FolderStatus),
	}
}

// Start runs a check immediately and then every interval until ctx is done.
func (f *FolderChecker) Start(ctx context.Context) {
	log.Printf("Folder checker started (interval: %v)", f.interval)

	f.CheckAll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Folder checker stopped")
			return
		case <-ticker.C:
			f.CheckAll(ctx)
		}
	}
}

// CheckAll lists each link's folder once.
func (f *FolderChecker) CheckAll(ctx context.Context) {
	links, err := f.links.List(ctx)
	if err != nil {
		log.Printf("Folder checker: failed to list links: %v", err)
		return
	}

	seen := make(map[string]bool, len(links))
	for i, link := range links {
		if ctx.Err() != nil {
			return
		}
		seen[link.ShortID] = true
		f.Check(ctx, link)

		// Spread calls out to stay under the storage API's rate limits
		if i < len(links)-1 && f.pause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.pause):
			}
		}
	}

	f.mu.Lock()
	for shortID := range f.status {
		if !seen[shortID] {
			delete(f.status, shortID)
			metrics.ForgetFolder(shortID)
		}
	}
	f.mu.Unlock()
}

// Check lists one link's folder now and records the result.
func (f *FolderChecker) Check(ctx context.Context, link models.Link) FolderStatus {
	files, err := f.files.ListImages(ctx, link.FolderID)
	metrics.RecordFolderCheck(link.ShortID, len(files), err)

	st := FolderStatus{Reachable: err == nil, Images: len(files), CheckedAt: f.now()}
	if err != nil {
		st.Detail = storage.Detail(err)
		log.Printf("Folder checker: %s (%s): %s", link.ShortID, link.FolderID, st.Detail)
	}

	f.mu.Lock()
	f.status[link.ShortID] = st
	f.mu.Unlock()
	return st
}

// Status returns the last result for a short ID.
func (f *FolderChecker) Status(shortID string) (FolderStatus, bool) {
	if f == nil {
		return FolderStatus{}, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.status[shortID]
	return st, ok
}
