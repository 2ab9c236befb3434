package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hpungsan/reblock/internal/block"
	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/page"
)

// maxImportLineBytes bounds one JSONL line. A page with many blocks easily
// exceeds bufio.Scanner's 64KB default.
const maxImportLineBytes = 16 << 20

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision, import nothing
	ImportModeReplace ImportMode = "replace" // overwrite the colliding record
	ImportModeSkip    ImportMode = "skip"    // keep the stored record, drop the imported one
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported" yaml:"imported"`
	Skipped  int           `json:"skipped" yaml:"skipped"`
	Errors   []ImportError `json:"errors" yaml:"errors"`
}

// ImportError describes one line or record that was not imported.
type ImportError struct {
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// importRecord is a parsed record with the line it came from.
type importRecord struct {
	line   int
	record *page.Record
}

// Import loads page records from a JSONL export file.
//
// Records are identified by id and deduplicated by URL, as they are when
// scraped. Modified blocks are re-derived from each record's original blocks,
// so edits to labels the originals lack are dropped. Counters are recomputed
// from the originals.
func Import(ctx context.Context, d *Deps, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeSkip:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, skip")
	}

	if err := ValidatePath(input.Path, PathCheckRead, d.cfg()); err != nil {
		return nil, err
	}

	file, err := openImportFile(input.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)

	var out *ImportOutput
	switch input.Mode {
	case ImportModeError:
		if len(parseErrors) > 0 {
			return &ImportOutput{Errors: parseErrors}, nil
		}
		out, err = importAtomic(ctx, d, records)
	default:
		out, err = importEach(ctx, d, records, input.Mode)
		if out != nil {
			out.Errors = append(append([]ImportError{}, parseErrors...), out.Errors...)
			out.Skipped += len(parseErrors)
		}
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("pages imported",
		logger.String("path", input.Path),
		logger.String("mode", string(input.Mode)),
		logger.Int("imported", out.Imported),
		logger.Int("skipped", out.Skipped),
	)
	return out, nil
}

// parseExportFile reads records from r, skipping the header line.
func parseExportFile(r io.Reader) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLineBytes)
	lineNum := 0
	now := time.Now().Unix()

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var el exportLine
		if err := json.Unmarshal(line, &el); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if el.ReblockExport {
			continue
		}

		rec, err := normalizeImported(el.Record, now)
		if err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      el.ID,
				URL:     el.URL,
				Code:    "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}
		records = append(records, importRecord{line: lineNum, record: rec})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

// normalizeImported validates r and rebuilds its derived fields.
func normalizeImported(r page.Record, now int64) (*page.Record, error) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return nil, fmt.Errorf("missing id field")
	}
	u, err := validateURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q", r.URL)
	}
	r.URL = u

	if r.OriginalBlocks == nil {
		r.OriginalBlocks = block.Blocks{}
	}
	edits := make(map[string]string, len(r.ModifiedBlocks))
	for _, b := range r.ModifiedBlocks {
		edits[b.BlockLabel()] = b.Value()
	}
	r.ModifiedBlocks = block.Reconcile(r.OriginalBlocks, edits)
	r.Counts = block.CountRoles(r.OriginalBlocks)
	r.WordCount = block.WordCount(r.OriginalBlocks)

	if strings.TrimSpace(r.Title) == "" {
		r.Title = block.NoTitle
	}
	if strings.TrimSpace(r.Description) == "" {
		r.Description = block.NoDescription
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	if r.UpdatedAt == 0 {
		r.UpdatedAt = r.CreatedAt
	}
	return &r, nil
}

// collision looks up stored records sharing r's id or URL.
func collision(ctx context.Context, d *Deps, r *page.Record) (byID, byURL *page.Record, err error) {
	byID, err = db.GetByID(ctx, d.DB, r.ID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, nil, err
	}
	byURL, err = db.GetByURL(ctx, d.DB, r.URL)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, nil, err
	}
	return byID, byURL, nil
}

// importAtomic inserts every record in one transaction, or none if any
// record collides with the store or with an earlier line.
func importAtomic(ctx context.Context, d *Deps, records []importRecord) (*ImportOutput, error) {
	seenIDs := make(map[string]bool, len(records))
	seenURLs := make(map[string]bool, len(records))

	// Collisions are checked before the transaction opens so a pool of one
	// connection cannot deadlock on the lookups.
	for _, ir := range records {
		r := ir.record
		byID, byURL, err := collision(ctx, d, r)
		if err != nil {
			return nil, err
		}
		switch {
		case byID != nil || seenIDs[r.ID]:
			return &ImportOutput{Errors: []ImportError{{
				Line: ir.line, ID: r.ID, URL: r.URL,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("page with id %q already exists", r.ID),
			}}}, nil
		case byURL != nil || seenURLs[r.URL]:
			return &ImportOutput{Errors: []ImportError{{
				Line: ir.line, ID: r.ID, URL: r.URL,
				Code:    "URL_COLLISION",
				Message: fmt.Sprintf("page with url %q already exists", r.URL),
			}}}, nil
		}
		seenIDs[r.ID] = true
		seenURLs[r.URL] = true
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, ir := range records {
		if err := db.Insert(ctx, tx, ir.record); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &ImportOutput{Imported: len(records), Errors: []ImportError{}}, nil
}

// importEach applies records one at a time under the replace or skip mode.
func importEach(ctx context.Context, d *Deps, records []importRecord, mode ImportMode) (*ImportOutput, error) {
	out := &ImportOutput{Errors: []ImportError{}}

	for _, ir := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		r := ir.record
		byID, byURL, err := collision(ctx, d, r)
		if err != nil {
			return nil, err
		}

		if byID == nil && byURL == nil {
			if err := db.Insert(ctx, d.DB, r); err != nil {
				out.Errors = append(out.Errors, ImportError{
					Line: ir.line, ID: r.ID, URL: r.URL,
					Code:    "INSERT_FAILED",
					Message: fmt.Sprintf("failed to insert: %v", err),
				})
				out.Skipped++
				continue
			}
			out.Imported++
			continue
		}

		if mode == ImportModeSkip {
			out.Skipped++
			continue
		}

		// id names one stored page and url another: replacing either would
		// break the one-record-per-URL rule.
		if byID != nil && byURL != nil && byID.ID != byURL.ID {
			out.Errors = append(out.Errors, ImportError{
				Line: ir.line, ID: r.ID, URL: r.URL,
				Code:    "AMBIGUOUS_COLLISION",
				Message: fmt.Sprintf("id %q and url %q match different stored pages", r.ID, r.URL),
			})
			out.Skipped++
			continue
		}

		if byID == nil {
			// Same URL under another id: keep the stored identity.
			r.ID = byURL.ID
		}
		if err := db.Replace(ctx, d.DB, r); err != nil {
			return nil, err
		}
		out.Imported++
	}

	return out, nil
}
