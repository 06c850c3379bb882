// Package catalog implements the Catalog Store: the newest-first candidate
// query used by Top Pick selection and the product write path.
package catalog

import (
	"context"
	"errors"

	"toppick-workers/internal/models"
)

// MaxCandidates caps every candidate query.
const MaxCandidates = 20

// ErrNotFound is returned by Get, Update and Delete for an unknown id.
var ErrNotFound = errors.New("product not found")

// Store is implemented by every catalog backend and by the cache decorator.
type Store interface {
	// Recent returns up to q.Limit products ordered by createdAt descending,
	// restricted to q.Brand when it is set.
	Recent(ctx context.Context, q models.CandidateQuery) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

// NormalizeLimit returns a limit in 1..MaxCandidates.
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxCandidates {
		return MaxCandidates
	}
	return limit
}
