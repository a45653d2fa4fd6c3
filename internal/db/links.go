package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"gallerylinks/internal/models"
)

// linkColumns is the standard column list for link queries.
const linkColumns = `id, short_id, folder_id, title, picking_mode, created_at`

// scanLink scans a row into a Link struct.
func scanLink(row pgx.Row) (*models.Link, error) {
	var link models.Link
	err := row.Scan(
		&link.ID,
		&link.ShortID,
		&link.FolderID,
		&link.Title,
		&link.PickingMode,
		&link.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// scanLinks scans multiple rows into a slice of Links.
func scanLinks(rows pgx.Rows) ([]models.Link, error) {
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(
			&link.ID,
			&link.ShortID,
			&link.FolderID,
			&link.Title,
			&link.PickingMode,
			&link.CreatedAt,
		); err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

// CreateLink inserts a link. CreatedAt is taken from the struct when set so
// the caller controls the timestamp; ID is always assigned by the database.
func (d *DB) CreateLink(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short_id, folder_id, title, picking_mode, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, created_at
	`

	var createdAt any
	if !link.CreatedAt.IsZero() {
		createdAt = link.CreatedAt
	}

	return d.Pool.QueryRow(ctx, query,
		link.ShortID,
		link.FolderID,
		link.Title,
		link.PickingMode,
		createdAt,
	).Scan(&link.ID, &link.CreatedAt)
}

// GetLinkByShortID retrieves a link by its short ID. When a race left
// duplicates behind, the oldest one wins.
func (d *DB) GetLinkByShortID(ctx context.Context, shortID string) (*models.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE short_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`
	return scanLink(d.Pool.QueryRow(ctx, query, shortID))
}

// ShortIDExists reports whether any link uses the short ID.
func (d *DB) ShortIDExists(ctx context.Context, shortID string) (bool, error) {
	var exists bool
	err := d.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE short_id = $1)`, shortID).Scan(&exists)
	return exists, err
}

// ListLinks returns every link, newest first.
func (d *DB) ListLinks(ctx context.Context) ([]models.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		ORDER BY created_at DESC
	`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

// CountLinks returns the number of links.
func (d *DB) CountLinks(ctx context.Context) (int64, error) {
	var n int64
	err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM links`).Scan(&n)
	return n, err
}

// DeleteLink removes a link by ID.
func (d *DB) DeleteLink(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}
