package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/reblock/internal/block"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/page"
)

const selectColumns = `
	id, url, title, description, word_count,
	paragraph_count, header_count, image_count,
	original_blocks, modified_blocks, created_at, updated_at
`

// Upsert stores a freshly scraped page.
// If a record with the same URL exists, its id and created_at are kept and
// every other column is replaced. r.ID and r.CreatedAt are updated to the
// stored values.
func Upsert(ctx context.Context, db *sql.DB, r *page.Record) error {
	original, err := encodeBlocks(r.OriginalBlocks)
	if err != nil {
		return err
	}
	modified, err := encodeBlocks(r.ModifiedBlocks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pages (
			id, url, title, description, word_count,
			paragraph_count, header_count, image_count,
			original_blocks, modified_blocks, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			word_count = excluded.word_count,
			paragraph_count = excluded.paragraph_count,
			header_count = excluded.header_count,
			image_count = excluded.image_count,
			original_blocks = excluded.original_blocks,
			modified_blocks = excluded.modified_blocks,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`

	err = db.QueryRowContext(ctx, query,
		r.ID, r.URL, r.Title, r.Description, r.WordCount,
		r.Counts.Paragraphs, r.Counts.Headers, r.Counts.Images,
		original, modified, r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}

	return nil
}

// GetByID retrieves a page record by its ULID.
func GetByID(ctx context.Context, db *sql.DB, id string) (*page.Record, error) {
	row := db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM pages WHERE id = ?", id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// GetByURL retrieves a page record by its source URL.
func GetByURL(ctx context.Context, db *sql.DB, url string) (*page.Record, error) {
	row := db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM pages WHERE url = ?", url)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(url)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// UpdateModifiedBlocks replaces the modified block sequence of a record.
// Sets updated_at to the current timestamp and returns it.
// Does NOT change: original blocks, counters, url.
func UpdateModifiedBlocks(ctx context.Context, db *sql.DB, id string, blocks block.Blocks) (int64, error) {
	data, err := encodeBlocks(blocks)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	result, err := db.ExecContext(ctx,
		"UPDATE pages SET modified_blocks = ?, updated_at = ? WHERE id = ?",
		data, now, id,
	)
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return 0, errors.NewNotFound(id)
	}

	return now, nil
}

// List returns page summaries newest first by creation, plus the total count.
// Saves and re-scrapes keep a page's position.
func List(ctx context.Context, db *sql.DB, limit, offset int) ([]page.Summary, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, url, title, description, word_count,
			paragraph_count, header_count, image_count, created_at, updated_at
		FROM pages
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var summaries []page.Summary
	for rows.Next() {
		var s page.Summary
		if err := rows.Scan(
			&s.ID, &s.URL, &s.Title, &s.Description, &s.WordCount,
			&s.Counts.Paragraphs, &s.Counts.Headers, &s.Counts.Images,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return summaries, total, nil
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert writes a complete record with its own id and timestamps.
// Used by import; scrapes go through Upsert.
func Insert(ctx context.Context, ex Execer, r *page.Record) error {
	original, err := encodeBlocks(r.OriginalBlocks)
	if err != nil {
		return err
	}
	modified, err := encodeBlocks(r.ModifiedBlocks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pages (
			id, url, title, description, word_count,
			paragraph_count, header_count, image_count,
			original_blocks, modified_blocks, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = ex.ExecContext(ctx, query,
		r.ID, r.URL, r.Title, r.Description, r.WordCount,
		r.Counts.Paragraphs, r.Counts.Headers, r.Counts.Images,
		original, modified, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Replace overwrites every column of the record with id r.ID.
func Replace(ctx context.Context, ex Execer, r *page.Record) error {
	original, err := encodeBlocks(r.OriginalBlocks)
	if err != nil {
		return err
	}
	modified, err := encodeBlocks(r.ModifiedBlocks)
	if err != nil {
		return err
	}

	query := `
		UPDATE pages SET
			url = ?, title = ?, description = ?, word_count = ?,
			paragraph_count = ?, header_count = ?, image_count = ?,
			original_blocks = ?, modified_blocks = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := ex.ExecContext(ctx, query,
		r.URL, r.Title, r.Description, r.WordCount,
		r.Counts.Paragraphs, r.Counts.Headers, r.Counts.Images,
		original, modified, r.CreatedAt, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(r.ID)
	}
	return nil
}

// StreamForExport returns rows for every record, oldest first.
// The caller must close the rows and scan them with ScanRecordFromRows.
func StreamForExport(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+selectColumns+" FROM pages ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanRecordFromRows scans the current row of a StreamForExport result.
func ScanRecordFromRows(rows *sql.Rows) (*page.Record, error) {
	return scanRecord(rows)
}

// Delete permanently removes one page record.
func Delete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, "DELETE FROM pages WHERE id = ?", id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}

	return nil
}

// DeleteAll removes every page record and returns how many were removed.
func DeleteAll(ctx context.Context, db *sql.DB) (int, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM pages")
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	return int(rowsAffected), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a single row into a page.Record.
func scanRecord(row rowScanner) (*page.Record, error) {
	var r page.Record
	var original, modified string

	err := row.Scan(
		&r.ID, &r.URL, &r.Title, &r.Description, &r.WordCount,
		&r.Counts.Paragraphs, &r.Counts.Headers, &r.Counts.Images,
		&original, &modified, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(original), &r.OriginalBlocks); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(modified), &r.ModifiedBlocks); err != nil {
		return nil, err
	}

	return &r, nil
}

// encodeBlocks serializes a block sequence for a TEXT column.
// A nil sequence is stored as an empty array.
func encodeBlocks(blocks block.Blocks) (string, error) {
	if blocks == nil {
		blocks = block.Blocks{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return string(data), nil
}
