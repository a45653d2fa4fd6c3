// Package export turns a selection of gallery files into downloads: a zip
// archive, a sequence of individual files, or a plain-text list of names.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"gallerylinks/internal/models"
)

// DefaultDelay separates individual downloads.
const DefaultDelay = 400 * time.Millisecond

var ErrNothingSelected = errors.New("no files selected")

// Opener fetches one file's bytes. storage.Backend and client.Client both
// implement it.
type Opener interface {
	Open(ctx context.Context, fileID string) (io.ReadCloser, string, error)
}

// ProgressFunc receives the completed percentage, 0 to 100.
type ProgressFunc func(pct int)

// SaveFunc stores one file during an individual export.
type SaveFunc func(ctx context.Context, file models.File) error

// percent rounds to the nearest whole percent.
func percent(done, total int) int {
	return (done*200 + total) / (2 * total)
}

func report(progress ProgressFunc, done, total int) {
	if progress != nil {
		progress(percent(done, total))
	}
}

// WriteZip fetches each file in turn and adds it to a zip written to w.
// Nothing is written when files is empty. The first failed fetch aborts the
// archive.
func WriteZip(ctx context.Context, w io.Writer, files []models.File, opener Opener, progress ProgressFunc) error {
	if len(files) == 0 {
		return ErrNothingSelected
	}

	zw := zip.NewWriter(w)
	names := NewNamer()
	modified := time.Now()

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addEntry(ctx, zw, names.Name(file), modified, file, opener); err != nil {
			return fmt.Errorf("failed to add %q to archive: %w", file.Name, err)
		}
		report(progress, i+1, len(files))
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addEntry(ctx context.Context, zw *zip.Writer, name string, modified time.Time, file models.File, opener Opener) error {
	body, _, err := opener.Open(ctx, file.ID)
	if err != nil {
		return err
	}
	defer body.Close()

	// Images are already compressed.
	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, body)
	return err
}

// Namer hands out unique names for files saved side by side.
type Namer struct {
	used map[string]bool
	next map[string]int
}

func NewNamer() *Namer {
	return &Namer{used: make(map[string]bool), next: make(map[string]int)}
}

// Name returns the file's display name, suffixed with the first free
// " (n)" when an earlier file already took it.
func (nm *Namer) Name(file models.File) string {
	name := file.Name
	if name == "" {
		name = file.ID
	}
	if !nm.used[name] {
		nm.used[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := nm.next[name] + 1; ; n++ {
		candidate := stem + " (" + strconv.Itoa(n) + ")" + ext
		if !nm.used[candidate] {
			nm.used[candidate] = true
			nm.next[name] = n
			return candidate
		}
	}
}

var wait = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Individual saves files one at a time with delay between consecutive saves.
// It stops at the first failure; files already saved stay saved.
func Individual(ctx context.Context, files []models.File, save SaveFunc, delay time.Duration, progress ProgressFunc) error {
	if len(files) == 0 {
		return ErrNothingSelected
	}

	for i, file := range files {
		if err := save(ctx, file); err != nil {
			return fmt.Errorf("failed to download %q: %w", file.Name, err)
		}
		report(progress, i+1, len(files))

		if i < len(files)-1 && delay > 0 {
			if err := wait(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// PickedList is the newline-separated list of picked file names.
func PickedList(files []models.File) []byte {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return []byte(strings.Join(names, "\n"))
}

func baseName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "gallery"
	}
	return title
}

// ArchiveName is the download name for a gallery's zip.
func ArchiveName(title string) string {
	return baseName(title) + "-photos.zip"
}

// PickedListName is the download name for a gallery's picked list.
func PickedListName(title string) string {
	return baseName(title) + "-picked.txt"
}

// Disposition is the Content-Disposition value that saves the response as
// name. Non-ASCII names use the RFC 2231 encoding.
func Disposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
