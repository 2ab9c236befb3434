package ops

import (
	"context"

	"github.com/hpungsan/reblock/internal/block"
	"github.com/hpungsan/reblock/internal/db"
)

// ChangedInput contains parameters for the Changed operation.
type ChangedInput struct {
	ID string
}

// ChangedOutput pairs a record's originals with the modified blocks that differ.
type ChangedOutput struct {
	ID       string       `json:"id" yaml:"id"`
	URL      string       `json:"url" yaml:"url"`
	Title    string       `json:"title" yaml:"title"`
	Original block.Blocks `json:"original_blocks" yaml:"original_blocks"`
	Changed  block.Blocks `json:"changed_blocks" yaml:"changed_blocks"`
}

// Changed loads a record and computes its changed blocks.
func Changed(ctx context.Context, d *Deps, input ChangedInput) (*ChangedOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	r, err := db.GetByID(ctx, d.DB, id)
	if err != nil {
		return nil, err
	}

	original := r.OriginalBlocks
	if original == nil {
		original = block.Blocks{}
	}

	return &ChangedOutput{
		ID:       r.ID,
		URL:      r.URL,
		Title:    r.Title,
		Original: original,
		Changed:  r.Changed(),
	}, nil
}
