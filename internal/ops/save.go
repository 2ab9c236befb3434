package ops

import (
	"context"
	"slices"

	"github.com/hpungsan/reblock/internal/block"
	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/logger"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	ID    string            // required
	Edits map[string]string // required, label -> new content or src
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	Status    string `json:"status" yaml:"status"`
	ID        string `json:"id" yaml:"id"`
	Changed   int    `json:"changed" yaml:"changed"`
	UpdatedAt int64  `json:"updated_at" yaml:"updated_at"`
	// UnknownLabels lists edit labels with no original block. They are ignored.
	UnknownLabels []string `json:"unknown_labels,omitempty" yaml:"unknown_labels,omitempty"`
}

// SaveStatus is reported on a successful save.
const SaveStatus = "Modifications saved."

// Save reconciles a batch of label-keyed edits against the record's current
// original blocks and replaces its modified blocks with the result.
// Validation runs before any store access.
func Save(ctx context.Context, d *Deps, input SaveInput) (out *SaveOutput, err error) {
	defer func() { d.Metrics.ObserveSave(err) }()

	if len(input.Edits) == 0 {
		return nil, errors.NewInvalidRequest("No modifications to save.")
	}
	id, err := requireID(input.ID)
	if err != nil {
		return nil, errors.NewInvalidRequest("No entry ID provided.")
	}

	r, err := db.GetByID(ctx, d.DB, id)
	if err != nil {
		return nil, err
	}

	modified := block.Reconcile(r.OriginalBlocks, input.Edits)

	labels := make([]string, 0, len(input.Edits))
	for label := range input.Edits {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	unknown := block.UnknownLabels(r.OriginalBlocks, labels)

	updatedAt, err := db.UpdateModifiedBlocks(ctx, d.DB, id, modified)
	if err != nil {
		return nil, err
	}

	changed := block.SelectChanged(r.OriginalBlocks, modified)
	if len(unknown) > 0 {
		logger.FromContext(ctx).Warn("ignored edits for unknown labels",
			logger.String("id", id),
			logger.Strings("labels", unknown),
		)
	}

	return &SaveOutput{
		Status:        SaveStatus,
		ID:            id,
		Changed:       len(changed),
		UpdatedAt:     updatedAt,
		UnknownLabels: unknown,
	}, nil
}
