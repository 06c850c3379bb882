// Package toppick selects the weekly Top Pick from a small candidate list.
//
// Every candidate is scored independently on recency, price point, listing
// completeness, the featured category of the week, a stable id-derived jitter
// and optional analytics bonuses. Scoring depends only on the candidate, the
// full candidate list and the evaluation instant, so the same inputs always
// produce the same pick.
package toppick

import (
	"math"
	"strings"
	"time"

	"toppick-workers/internal/models"
)

const (
	LabelNewRelease       = "New Release"
	LabelBestValue        = "Best Value"
	LabelFreeCourse       = "Free Course"
	LabelFeaturedCategory = "Featured Category"
	LabelTrending         = "Trending"
	LabelPopular          = "Popular"
	LabelHighlyRated      = "Highly Rated"

	// FallbackReason is shown when no labelled factor fired for the winner.
	FallbackReason  = "Editor's Choice"
	ReasonSeparator = " • "

	maxReasonLabels = 2
	day             = 24 * time.Hour
	week            = 7 * day
)

// Rank scores all products and returns the one with the strictly highest
// score; ties go to the earliest product in input order. The boolean is false
// when products is empty, in which case there is no pick.
func Rank(products []models.Product, now time.Time) (models.ScoredProduct, bool) {
	scored := ScoreAll(products, now)
	if len(scored) == 0 {
		return models.ScoredProduct{}, false
	}

	best := 0
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[best].Score {
			best = i
		}
	}
	return scored[best], true
}

// ScoreAll returns a ScoredProduct for every candidate, in input order.
func ScoreAll(products []models.Product, now time.Time) []models.ScoredProduct {
	if len(products) == 0 {
		return nil
	}

	b := newBatch(products, now)
	out := make([]models.ScoredProduct, len(products))
	for i, p := range products {
		out[i] = b.score(p)
	}
	return out
}

// batch holds the values derived from the whole candidate list.
type batch struct {
	now      time.Time
	avgPrice float64
	featured string
}

func newBatch(products []models.Product, now time.Time) *batch {
	var total float64
	for _, p := range products {
		total += p.Price
	}

	return &batch{
		now:      now,
		avgPrice: total / float64(len(products)),
		featured: FeaturedCategory(products, now),
	}
}

type scorecard struct {
	factors models.FactorScores
	labels  []string
}

func (s *scorecard) label(l string) {
	s.labels = append(s.labels, l)
}

func (b *batch) score(p models.Product) models.ScoredProduct {
	var sc scorecard

	sc.factors.Recency = b.recency(p, &sc)
	sc.factors.Price = b.pricePoint(p, &sc)
	sc.factors.Completeness = completeness(p, &sc)
	sc.factors.Category = b.category(p, &sc)
	sc.factors.Jitter = Jitter(p.ID)
	sc.factors.Bonus = bonus(p, &sc)

	labels := sc.labels
	if len(labels) > maxReasonLabels {
		labels = labels[:maxReasonLabels]
	}

	return models.ScoredProduct{
		Product: p,
		Score:   sc.factors.Total(),
		Reason:  Reason(labels),
		Labels:  labels,
		Factors: sc.factors,
	}
}

// recency awards up to 40 points for products created in the last week,
// 20 within a month and 10 otherwise.
func (b *batch) recency(p models.Product, sc *scorecard) int {
	days := DaysSince(p.CreatedAt, b.now)

	switch {
	case days <= 7:
		if days <= 3 {
			sc.label(LabelNewRelease)
		}
		// Future timestamps would push this past the cap.
		return clamp(40-days*5, 0, 40)
	case days <= 30:
		return 20
	default:
		return 10
	}
}

// pricePoint compares the product price with the candidate average.
func (b *batch) pricePoint(p models.Product, sc *scorecard) int {
	ratio := 1.0
	if b.avgPrice != 0 {
		ratio = p.Price / b.avgPrice
	}

	switch {
	case ratio >= 0.5 && ratio <= 1.5:
		sc.label(LabelBestValue)
		return 20
	case ratio >= 0.3 && ratio <= 2.0:
		return 15
	case p.Price == 0:
		sc.label(LabelFreeCourse)
		return 10
	default:
		return 5
	}
}

func completeness(p models.Product, sc *scorecard) int {
	points := 0
	if p.ImageURL != "" && !strings.Contains(p.ImageURL, "placeholder") {
		points += 8
	}
	if textLength(p.Description) > 50 {
		points += 6
	}
	if p.Instructor != "" {
		points += 6
		sc.label("By " + p.Instructor)
	}
	return points
}

func (b *batch) category(p models.Product, sc *scorecard) int {
	if p.Category != b.featured {
		return 0
	}
	sc.label(LabelFeaturedCategory)
	return 10
}

func bonus(p models.Product, sc *scorecard) int {
	points := 0
	if p.ViewCount != nil && *p.ViewCount > 100 {
		points += 5
		sc.label(LabelTrending)
	}
	if p.PurchaseCount != nil && *p.PurchaseCount > 10 {
		points += 5
		sc.label(LabelPopular)
	}
	if p.Rating != nil && *p.Rating >= 4.5 {
		points += 5
		sc.label(LabelHighlyRated)
	}
	return points
}

// Reason joins display labels, falling back to FallbackReason.
func Reason(labels []string) string {
	if len(labels) == 0 {
		return FallbackReason
	}
	return strings.Join(labels, ReasonSeparator)
}

// FeaturedCategory returns the category that receives the diversity bonus for
// the week containing now. Categories rotate in first-seen order.
func FeaturedCategory(products []models.Product, now time.Time) string {
	var categories []string
	seen := make(map[string]bool)
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	if len(categories) == 0 {
		return ""
	}
	return categories[WeekNumber(now)%len(categories)]
}

// WeekNumber counts whole weeks elapsed since January 1 of now's year, in
// now's location.
func WeekNumber(now time.Time) int {
	jan1 := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return floorDiv(now.Sub(jan1), week)
}

// DaysSince returns the whole days elapsed between createdAt and now. A zero
// createdAt is scored as created at now.
func DaysSince(createdAt, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	return floorDiv(now.Sub(createdAt), day)
}

func floorDiv(d, unit time.Duration) int {
	return int(math.Floor(float64(d) / float64(unit)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
