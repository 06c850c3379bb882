package selecttoppick

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"toppick-workers/internal/catalog"
	"toppick-workers/internal/common/camunda"
	apperrors "toppick-workers/internal/common/errors"
	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/common/metrics"
	"toppick-workers/internal/common/observability"
	"toppick-workers/internal/models"
	"toppick-workers/internal/toppick"
)

const (
	TaskType = "select-top-pick"
)

type Handler struct {
	config     *Config
	store      catalog.Store
	obs        *observability.Observability
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

// NewHandler builds the ranking worker. store may be nil when every job
// carries its own candidate list.
func NewHandler(config *Config, store catalog.Store, obs *observability.Observability, log logger.Logger) *Handler {
	if config.Now == nil {
		config.Now = time.Now
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
		obs:        obs,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	log := logger.ForJob(h.logger, job.Key, job.ProcessInstanceKey)
	log.Info("processing job", nil)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewParseError(err))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	fields := map[string]interface{}{
		"found":          output.Found,
		"candidateCount": output.CandidateCount,
	}
	if output.TopPick != nil {
		fields["productId"] = output.TopPick.Product.ID
		fields["score"] = output.TopPick.Score
		fields["reason"] = output.TopPick.Reason
	}
	log.Info("top pick selected", fields)

	camunda.CompleteJob(ctx, client, job, output, log)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	now, err := h.evaluationTime(input.EvaluatedAt)
	if err != nil {
		return nil, err
	}
	brand := strings.TrimSpace(input.Brand)

	products, err := h.candidates(ctx, input, brand)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pick, found := toppick.Rank(products, now)
	h.obs.RecordRank(ctx, len(products), time.Since(start))

	label := metrics.BrandLabel(brand)
	metrics.TopPickCandidates.WithLabelValues(label).Observe(float64(len(products)))

	output := &Output{
		Found:          found,
		CandidateCount: len(products),
		Brand:          brand,
		EvaluatedAt:    now.Format(time.RFC3339),
	}
	if !found {
		return output, nil
	}

	metrics.TopPickScore.WithLabelValues(label).Set(float64(pick.Score))
	output.TopPick = &pick
	output.FeaturedCategory = toppick.FeaturedCategory(products, now)
	return output, nil
}

func (h *Handler) evaluationTime(raw string) (time.Time, error) {
	if raw == "" {
		return h.config.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.NewParseError(fmt.Errorf("evaluatedAt: %w", err))
	}
	return t, nil
}

func (h *Handler) candidates(ctx context.Context, input *Input, brand string) ([]models.Product, error) {
	if input.Products != nil {
		return *input.Products, nil
	}
	if h.store == nil {
		return nil, apperrors.NewProductValidationFailedError("products are required when no catalog store is configured")
	}
	return h.store.Recent(ctx, models.CandidateQuery{
		Brand: brand,
		Limit: catalog.NormalizeLimit(h.config.CandidateLimit),
	})
}
