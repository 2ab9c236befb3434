package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/page"
)

// ExportSchemaVersion is written to the header line of every export file.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <exports dir>/pages-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path" yaml:"path"`
	Count      int    `json:"count" yaml:"count"`
	ExportedAt int64  `json:"exported_at" yaml:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	ReblockExport bool   `json:"_reblock_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// exportLine is one line of an export file: either the header or a record.
type exportLine struct {
	ReblockExport bool `json:"_reblock_export,omitempty"`
	page.Record
}

// Export writes every page record, with both block sequences, to a JSONL file.
// The file is written to a temporary name and renamed into place, so an
// existing file at Path survives a failed export.
func Export(ctx context.Context, d *Deps, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	cfg := d.cfg()

	exportPath := input.Path
	if exportPath == "" {
		dir, err := ExportsDir(cfg)
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, fmt.Sprintf("pages-%s.jsonl", now.Format("2006-01-02T150405")))
	}

	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	file, tempPath, err := createExportTemp(exportPath)
	if err != nil {
		return nil, err
	}
	done := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !done {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	if err := enc.Encode(ExportHeader{
		ReblockExport: true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.StreamForExport(ctx, d.DB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}

		r, err := db.ScanRecordFromRows(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := enc.Encode(exportLine{Record: *r}); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename; Windows refuses to rename open files.
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if err := finalizeExport(tempPath, exportPath); err != nil {
		return nil, err
	}
	done = true

	logger.FromContext(ctx).Info("pages exported",
		logger.String("path", exportPath),
		logger.Int("count", count),
	)

	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}
