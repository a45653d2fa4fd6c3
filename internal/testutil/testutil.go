// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"gallerylinks/internal/db"
	"gallerylinks/internal/models"
)

// TestDB creates a test database connection and returns a cleanup function.
// Uses TEST_DATABASE_URL and skips the test when it is not set.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database.Pool)

	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	pool.Exec(ctx, "DELETE FROM links")
}

// CreateTestLink inserts a link and returns it with its assigned ID.
func CreateTestLink(t *testing.T, database *db.DB, shortID, folderID, title string) *models.Link {
	t.Helper()

	link := &models.Link{ShortID: shortID, FolderID: folderID, Title: title}
	if err := database.CreateLink(context.Background(), link); err != nil {
		t.Fatalf("failed to create test link: %v", err)
	}
	return link
}

// TestImages returns n JPEG descriptors named photo-<i>.jpg.
func TestImages(n int) []models.File {
	files := make([]models.File, 0, n)
	for i := 0; i < n; i++ {
		id := "file-" + strconv.Itoa(i)
		files = append(files, models.File{
			ID:       id,
			Name:     "photo-" + strconv.Itoa(i) + ".jpg",
			MimeType: "image/jpeg",
			Size:     "2048",
		})
	}
	return files
}
