package ops

import (
	"context"

	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/page"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string
}

// Fetch retrieves a full page record by id.
func Fetch(ctx context.Context, d *Deps, input FetchInput) (*page.Record, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetByID(ctx, d.DB, id)
}
