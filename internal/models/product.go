// internal/models/product.go
package models

import "time"

// Product is a catalog entry as stored by the Catalog Store. Optional
// analytics counters are nil when the row carries no value.
type Product struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Instructor    string    `json:"instructor,omitempty"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	ViewCount     *int      `json:"viewCount,omitempty"`
	PurchaseCount *int      `json:"purchaseCount,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
}

// ScoredProduct pairs a product with its Top Pick score and display reason.
// Labels holds at most two entries, the ones joined into Reason.
type ScoredProduct struct {
	Product Product      `json:"product"`
	Score   int          `json:"score"`
	Reason  string       `json:"reason"`
	Labels  []string     `json:"labels"`
	Factors FactorScores `json:"factors"`
}

// FactorScores is the per-factor breakdown behind a Top Pick score.
type FactorScores struct {
	Recency      int `json:"recency"`
	Price        int `json:"price"`
	Completeness int `json:"completeness"`
	Category     int `json:"category"`
	Jitter       int `json:"jitter"`
	Bonus        int `json:"bonus"`
}

func (f FactorScores) Total() int {
	return f.Recency + f.Price + f.Completeness + f.Category + f.Jitter + f.Bonus
}

// CandidateQuery selects the products considered for one ranking evaluation.
type CandidateQuery struct {
	Brand string `json:"brand,omitempty"`
	Limit int    `json:"limit"`
}
