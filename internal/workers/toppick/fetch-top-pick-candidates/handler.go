package fetchtoppickcandidates

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"toppick-workers/internal/catalog"
	"toppick-workers/internal/common/camunda"
	apperrors "toppick-workers/internal/common/errors"
	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/models"
)

const (
	TaskType = "fetch-top-pick-candidates"
)

// Handler loads the most recent catalog products a Top Pick is chosen from.
type Handler struct {
	config     *Config
	store      catalog.Store
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, store catalog.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
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

	log.Info("candidates fetched", map[string]interface{}{
		"brand": output.Brand,
		"count": output.Count,
	})
	camunda.CompleteJob(ctx, client, job, output, log)
}

// Execute runs the candidate query for the input brand. An empty catalog is
// not an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	brand := strings.TrimSpace(input.Brand)

	products, err := h.store.Recent(ctx, models.CandidateQuery{
		Brand: brand,
		Limit: catalog.NormalizeLimit(h.config.CandidateLimit),
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}

	return &Output{
		Products: products,
		Count:    len(products),
		Brand:    brand,
	}, nil
}
