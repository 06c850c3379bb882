package fetchtoppickcandidates

import "toppick-workers/internal/models"

type Input struct {
	Brand string `json:"brand,omitempty"`
}

type Output struct {
	Products []models.Product `json:"products"`
	Count    int              `json:"count"`
	Brand    string           `json:"brand,omitempty"`
}
