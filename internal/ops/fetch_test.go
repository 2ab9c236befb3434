package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/reblock/internal/errors"
)

func TestFetch_ByID(t *testing.T) {
	d, _ := newTestDeps(t)
	ctx := context.Background()

	scraped, err := Scrape(ctx, d, ScrapeInput{URL: "http://ex.com/page"})
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	rec, err := Fetch(ctx, d, FetchInput{ID: "  " + scraped.ID + " "})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.ID != scraped.ID || rec.URL != "http://ex.com/page" {
		t.Errorf("Fetch = %+v", rec)
	}
	if len(rec.OriginalBlocks) != 3 || len(rec.ModifiedBlocks) != 3 {
		t.Errorf("blocks = %d/%d, want 3/3", len(rec.OriginalBlocks), len(rec.ModifiedBlocks))
	}
	if rec.CreatedAt == 0 || rec.UpdatedAt < rec.CreatedAt {
		t.Errorf("timestamps = %d/%d", rec.CreatedAt, rec.UpdatedAt)
	}
}

func TestFetch_Errors(t *testing.T) {
	d, _ := newTestDeps(t)

	tests := []struct {
		name string
		id   string
		code errors.ErrorCode
	}{
		{"empty id", "", errors.ErrInvalidRequest},
		{"blank id", "   ", errors.ErrInvalidRequest},
		{"unknown id", "01NOTSTORED", errors.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fetch(context.Background(), d, FetchInput{ID: tc.id})
			if !errors.Is(err, tc.code) {
				t.Errorf("Fetch(%q) error = %v, want %s", tc.id, err, tc.code)
			}
		})
	}
}
