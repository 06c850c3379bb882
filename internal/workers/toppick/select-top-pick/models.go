package selecttoppick

import "toppick-workers/internal/models"

// Input.Products is a pointer so an explicit empty list can be told apart
// from a job that expects the worker to fetch candidates itself.
type Input struct {
	Products    *[]models.Product `json:"products,omitempty"`
	Brand       string            `json:"brand,omitempty"`
	EvaluatedAt string            `json:"evaluatedAt,omitempty"`
}

type Output struct {
	Found            bool                  `json:"found"`
	TopPick          *models.ScoredProduct `json:"topPick,omitempty"`
	CandidateCount   int                   `json:"candidateCount"`
	FeaturedCategory string                `json:"featuredCategory,omitempty"`
	Brand            string                `json:"brand,omitempty"`
	EvaluatedAt      string                `json:"evaluatedAt"`
}
