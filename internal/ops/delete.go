package ops

import (
	"context"

	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/logger"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted" yaml:"deleted"`
	ID      string `json:"id" yaml:"id"`
}

// Delete permanently removes one page record.
func Delete(ctx context.Context, d *Deps, input DeleteInput) (*DeleteOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := db.Delete(ctx, d.DB, id); err != nil {
		return nil, err
	}
	d.Metrics.ObserveDeleted(1)
	logger.FromContext(ctx).Info("page deleted", logger.String("id", id))

	return &DeleteOutput{
		Deleted: true,
		ID:      id,
	}, nil
}

// ClearInput contains parameters for the Clear operation.
type ClearInput struct {
	Confirm bool // required: must be true
}

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Deleted int `json:"deleted" yaml:"deleted"`
}

// Clear removes every page record. It refuses to run without Confirm.
func Clear(ctx context.Context, d *Deps, input ClearInput) (*ClearOutput, error) {
	if !input.Confirm {
		return nil, errors.NewInvalidRequest("confirm must be true to clear history")
	}

	n, err := db.DeleteAll(ctx, d.DB)
	if err != nil {
		return nil, err
	}
	d.Metrics.ObserveDeleted(n)
	logger.FromContext(ctx).Info("history cleared", logger.Int("deleted", n))

	return &ClearOutput{Deleted: n}, nil
}
