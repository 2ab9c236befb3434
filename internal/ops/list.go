package ops

import (
	"context"

	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/page"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []page.Summary `json:"items" yaml:"items"`
	Pagination Pagination     `json:"pagination" yaml:"pagination"`
	Sort       string         `json:"sort" yaml:"sort"`
}

// List retrieves page summaries, most recently scraped or edited first.
func List(ctx context.Context, d *Deps, input ListInput) (*ListOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	summaries, total, err := db.List(ctx, d.DB, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []page.Summary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
