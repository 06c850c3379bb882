package announcetoppick

import "toppick-workers/internal/models"

type Input struct {
	TopPick     *models.ScoredProduct `json:"topPick"`
	Brand       string                `json:"brand,omitempty"`
	EvaluatedAt string                `json:"evaluatedAt,omitempty"`
}

type Output struct {
	MessageID string `json:"messageId,omitempty"`
	Published bool   `json:"published"`
}

// Announcement is the SNS message body subscribers receive.
type Announcement struct {
	Type        string   `json:"type"`
	ProductID   string   `json:"productId"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand,omitempty"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Instructor  string   `json:"instructor,omitempty"`
	Score       int      `json:"score"`
	Reason      string   `json:"reason"`
	Labels      []string `json:"labels"`
	EvaluatedAt string   `json:"evaluatedAt,omitempty"`
}
