package managecatalogproduct

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"toppick-workers/internal/catalog"
	"toppick-workers/internal/common/camunda"
	apperrors "toppick-workers/internal/common/errors"
	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/models"
)

const (
	TaskType = "manage-catalog-product"
)

// Handler applies insert, update and delete requests to the Catalog Store.
// Cache invalidation is the store's concern; main wraps it in a CachedStore
// when the cache is enabled.
type Handler struct {
	config     *Config
	store      catalog.Store
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, store catalog.Store, log logger.Logger) *Handler {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
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

	log.Info("catalog product written", map[string]interface{}{
		"action":    output.Action,
		"productId": output.ProductID,
	})
	camunda.CompleteJob(ctx, client, job, output, log)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	action := models.CatalogAction(strings.ToLower(strings.TrimSpace(input.Action)))
	if !action.Valid() {
		return nil, apperrors.NewInvalidCatalogActionError(input.Action)
	}

	switch action {
	case models.CatalogActionInsert:
		return h.insert(ctx, input)
	case models.CatalogActionUpdate:
		return h.update(ctx, input)
	default:
		return h.delete(ctx, input)
	}
}

func (h *Handler) insert(ctx context.Context, input *Input) (*Output, error) {
	p, err := decodeProduct(input.Product)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = input.ProductID
	}
	if p.ID == "" {
		p.ID = h.config.NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = h.config.Now().UTC()
	}

	if err := h.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	return &Output{Action: string(models.CatalogActionInsert), ProductID: p.ID, Product: p}, nil
}

// update replaces the stored product. createdAt is carried over from the
// stored row when the payload omits it.
func (h *Handler) update(ctx context.Context, input *Input) (*Output, error) {
	p, err := decodeProduct(input.Product)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = input.ProductID
	}
	if p.ID == "" {
		return nil, apperrors.NewProductValidationFailedError("update requires a product id")
	}
	if input.ProductID != "" && input.ProductID != p.ID {
		return nil, apperrors.NewProductValidationFailedError(
			fmt.Sprintf("productId %q does not match product.id %q", input.ProductID, p.ID))
	}

	existing, err := h.store.Get(ctx, p.ID)
	if err != nil {
		return nil, notFound(err, p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}

	if err := h.store.Update(ctx, p); err != nil {
		return nil, notFound(err, p.ID)
	}
	return &Output{Action: string(models.CatalogActionUpdate), ProductID: p.ID, Product: p}, nil
}

func (h *Handler) delete(ctx context.Context, input *Input) (*Output, error) {
	id := input.ProductID
	if id == "" && len(input.Product) > 0 {
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(input.Product, &ref); err != nil {
			return nil, apperrors.NewParseError(err)
		}
		id = ref.ID
	}
	if id == "" {
		return nil, apperrors.NewProductValidationFailedError("delete requires a productId")
	}

	if err := h.store.Delete(ctx, id); err != nil {
		return nil, notFound(err, id)
	}
	return &Output{Action: string(models.CatalogActionDelete), ProductID: id, Deleted: true}, nil
}

func decodeProduct(raw json.RawMessage) (*models.Product, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperrors.NewProductValidationFailedError("product payload is required")
	}
	if err := ValidateProduct(raw); err != nil {
		return nil, apperrors.NewProductValidationFailedError(err.Error())
	}

	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperrors.NewProductValidationFailedError(err.Error())
	}
	p.Title = strings.TrimSpace(p.Title)
	return &p, nil
}

func notFound(err error, id string) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return apperrors.NewProductNotFoundError(id)
	}
	return err
}
