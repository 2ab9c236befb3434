package page

import "github.com/hpungsan/reblock/internal/block"

// Record is the stored state of one scraped page, one per distinct source URL.
type Record struct {
	// ID is a ULID assigned on first scrape and stable across re-scrapes
	ID string `json:"id" yaml:"id"`

	// URL is the source URL exactly as submitted; it is the dedup key
	URL string `json:"url" yaml:"url"`

	// Title is the trimmed <title> text, or block.NoTitle
	Title string `json:"title" yaml:"title"`

	// Description is the trimmed meta description, or block.NoDescription
	Description string `json:"description" yaml:"description"`

	// WordCount is the token count over all text blocks at extraction time
	WordCount int `json:"word_count" yaml:"word_count"`

	// Counts holds paragraph, header and image counters
	Counts block.Counts `json:"counts" yaml:"counts"`

	// OriginalBlocks is the baseline from the most recent scrape.
	// Only ever replaced wholesale.
	OriginalBlocks block.Blocks `json:"original_blocks" yaml:"original_blocks"`

	// ModifiedBlocks is the current edited state, always derived from OriginalBlocks
	ModifiedBlocks block.Blocks `json:"modified_blocks" yaml:"modified_blocks"`

	// CreatedAt is the Unix timestamp of the first scrape
	CreatedAt int64 `json:"created_at" yaml:"created_at"`

	// UpdatedAt is the Unix timestamp of the last scrape or save
	UpdatedAt int64 `json:"updated_at" yaml:"updated_at"`
}

// Changed returns the modified blocks that differ from the originals.
func (r *Record) Changed() block.Blocks {
	return block.SelectChanged(r.OriginalBlocks, r.ModifiedBlocks)
}

// Summary is a record without its block sequences, used by history listings.
type Summary struct {
	ID          string       `json:"id" yaml:"id"`
	URL         string       `json:"url" yaml:"url"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	WordCount   int          `json:"word_count" yaml:"word_count"`
	Counts      block.Counts `json:"counts" yaml:"counts"`
	CreatedAt   int64        `json:"created_at" yaml:"created_at"`
	UpdatedAt   int64        `json:"updated_at" yaml:"updated_at"`
}

// Summarize returns the summary view of r.
func (r *Record) Summarize() Summary {
	return Summary{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		WordCount:   r.WordCount,
		Counts:      r.Counts,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
