package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/reblock/internal/config"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/metrics"
	"github.com/hpungsan/reblock/internal/transform"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit" yaml:"limit"`
	Offset  int  `json:"offset" yaml:"offset"`
	HasMore bool `json:"has_more" yaml:"has_more"`
	Total   int  `json:"total" yaml:"total"`
}

// PageFetcher downloads page markup.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// ImageFetcher downloads image bytes.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Deps are the collaborators operations run against. Store-only operations
// need DB alone; the rest of the fields are required only by the operations
// that use them.
type Deps struct {
	DB      *sql.DB
	Config  *config.Config
	Pages   PageFetcher
	Images  ImageFetcher
	Text    transform.TextGenerator
	Img2Img transform.ImageGenerator
	Metrics *metrics.Metrics
}

func (d *Deps) cfg() *config.Config {
	if d.Config == nil {
		return config.DefaultConfig()
	}
	return d.Config
}

// requireID trims and validates a record id.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// entropy is shared so ids minted in the same millisecond still sort in
// creation order. ulid.MonotonicEntropy is not safe for concurrent use.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
