package ops

import (
	"context"
	"fmt"
	"testing"
)

func TestList_HappyPath(t *testing.T) {
	d, pages := newTestDeps(t)
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		url := fmt.Sprintf("http://ex.com/p%d", i)
		pages.pages[url] = scenarioHTML
		out, err := Scrape(ctx, d, ScrapeInput{URL: url})
		if err != nil {
			t.Fatalf("Scrape failed: %v", err)
		}
		ids = append(ids, out.ID)
	}

	output, err := List(ctx, d, ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(output.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(output.Items))
	}
	if output.Pagination.Total != 3 {
		t.Errorf("Total = %d, want 3", output.Pagination.Total)
	}
	if output.Pagination.HasMore {
		t.Error("HasMore = true, want false")
	}
	if output.Sort != "created_at_desc" {
		t.Errorf("Sort = %q, want 'created_at_desc'", output.Sort)
	}
	// Same-second scrapes fall back to id order, and ULIDs increase.
	if output.Items[0].ID != ids[2] {
		t.Errorf("Items[0].ID = %q, want most recent %q", output.Items[0].ID, ids[2])
	}
}

func TestList_Pagination(t *testing.T) {
	d, pages := newTestDeps(t)
	ctx := context.Background()

	for i := range 5 {
		url := fmt.Sprintf("http://ex.com/p%d", i)
		pages.pages[url] = scenarioHTML
		if _, err := Scrape(ctx, d, ScrapeInput{URL: url}); err != nil {
			t.Fatalf("Scrape failed: %v", err)
		}
	}

	first, err := List(ctx, d, ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(first.Items) != 2 || !first.Pagination.HasMore {
		t.Errorf("first page = %d items, HasMore = %v; want 2, true", len(first.Items), first.Pagination.HasMore)
	}

	last, err := List(ctx, d, ListInput{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(last.Items) != 1 || last.Pagination.HasMore {
		t.Errorf("last page = %d items, HasMore = %v; want 1, false", len(last.Items), last.Pagination.HasMore)
	}
	if last.Pagination.Total != 5 {
		t.Errorf("Total = %d, want 5", last.Pagination.Total)
	}
}

func TestList_SummariesOmitBlocks(t *testing.T) {
	d, _ := newTestDeps(t)
	ctx := context.Background()

	if _, err := Scrape(ctx, d, ScrapeInput{URL: "http://ex.com/page"}); err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	output, err := List(ctx, d, ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	item := output.Items[0]
	if item.Title != "Example Page" || item.WordCount != 10 || item.Counts.Images != 1 {
		t.Errorf("summary = %+v", item)
	}
}
