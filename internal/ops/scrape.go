package ops

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/url"
	"strings"
	"time"

	"github.com/hpungsan/reblock/internal/block"
	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/fetch"
	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/page"
)

// ScrapeInput contains parameters for the Scrape operation.
type ScrapeInput struct {
	URL string // required, absolute http(s) URL
}

// ScrapeOutput contains the result of the Scrape operation.
type ScrapeOutput struct {
	ID          string       `json:"id" yaml:"id"`
	URL         string       `json:"url" yaml:"url"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	WordCount   int          `json:"word_count" yaml:"word_count"`
	Counts      block.Counts `json:"counts" yaml:"counts"`
	Blocks      block.Blocks `json:"blocks" yaml:"blocks"`
	// Rescraped is true when an existing record for the URL was replaced.
	Rescraped bool `json:"rescraped" yaml:"rescraped"`
}

// Scrape fetches a page, extracts its blocks and upserts the record for its URL.
// A re-scrape keeps the record id, replaces the original blocks and resets the
// modified blocks to a copy of them. Nothing is written when fetch or
// extraction fails.
func Scrape(ctx context.Context, d *Deps, input ScrapeInput) (out *ScrapeOutput, err error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	defer func() {
		blocks := 0
		if out != nil {
			blocks = len(out.Blocks)
		}
		d.Metrics.ObserveScrape(err, blocks, time.Since(start))
	}()

	rawURL, err := validateURL(input.URL)
	if err != nil {
		return nil, err
	}

	html, err := d.Pages.FetchPage(ctx, rawURL)
	if err != nil {
		log.Warn("page fetch failed", logger.String("url", rawURL), logger.Error(err))
		if stderrors.Is(err, fetch.ErrTimeout) {
			return nil, errors.NewTimeout("page fetch", d.cfg().FetchTimeoutSeconds)
		}
		return nil, errors.NewFetchFailed(rawURL, err)
	}

	ext, err := block.ExtractHTML(bytes.NewReader(html), rawURL)
	if err != nil {
		log.Warn("block extraction failed", logger.String("url", rawURL), logger.Error(err))
		return nil, errors.NewExtractionFailed(rawURL, err)
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().Unix()
	r := &page.Record{
		ID:             id,
		URL:            rawURL,
		Title:          ext.Title,
		Description:    ext.Description,
		WordCount:      ext.WordCount,
		Counts:         ext.Counts,
		OriginalBlocks: ext.Blocks,
		ModifiedBlocks: ext.Blocks.Clone(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Upsert may swap in the existing id for this URL.
	if err := db.Upsert(ctx, d.DB, r); err != nil {
		return nil, err
	}

	log.Info("page scraped",
		logger.String("id", r.ID),
		logger.String("url", r.URL),
		logger.Int("blocks", len(r.OriginalBlocks)),
		logger.Int("word_count", r.WordCount),
		logger.Bool("rescraped", r.ID != id),
	)

	return &ScrapeOutput{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		WordCount:   r.WordCount,
		Counts:      r.Counts,
		Blocks:      r.OriginalBlocks,
		Rescraped:   r.ID != id,
	}, nil
}

// validateURL trims the submitted URL and checks it is absolute http(s).
func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.NewInvalidRequest("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.NewInvalidRequest("url must be an absolute http or https URL")
	}
	return raw, nil
}
