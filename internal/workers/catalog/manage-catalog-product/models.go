package managecatalogproduct

import (
	"encoding/json"

	"toppick-workers/internal/models"
)

// Input.Product stays raw so it can be checked against the product schema
// before it is decoded.
type Input struct {
	Action    string          `json:"action"`
	Product   json.RawMessage `json:"product,omitempty"`
	ProductID string          `json:"productId,omitempty"`
}

type Output struct {
	Action    string          `json:"action"`
	ProductID string          `json:"productId"`
	Product   *models.Product `json:"product,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
}
