package announcetoppick

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"toppick-workers/internal/common/aws"
	"toppick-workers/internal/common/camunda"
	apperrors "toppick-workers/internal/common/errors"
	"toppick-workers/internal/common/logger"
)

const (
	TaskType = "announce-top-pick"

	messageType      = "weekly-top-pick"
	maxSubjectLength = 100
)

type Handler struct {
	config     *Config
	sns        aws.SNSPublisher
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

// NewHandler builds the announcement worker. publisher may be nil when
// announcements are disabled.
func NewHandler(config *Config, publisher aws.SNSPublisher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		sns:        publisher,
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

	log.Info("announcement handled", map[string]interface{}{
		"published": output.Published,
		"messageId": output.MessageID,
	})
	camunda.CompleteJob(ctx, client, job, output, log)
}

// Execute publishes the pick to the topic. Nothing is sent when
// announcements are disabled or there is no pick.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !h.config.Enabled || h.sns == nil {
		h.logger.Debug("announcements disabled, skipping", nil)
		return &Output{Published: false}, nil
	}
	if input.TopPick == nil || input.TopPick.Product.ID == "" {
		h.logger.Warn("no top pick to announce", nil)
		return &Output{Published: false}, nil
	}

	params, err := h.BuildPublishInput(input)
	if err != nil {
		return nil, apperrors.NewAnnouncementPublishFailedError(h.config.TopicARN, err)
	}

	res, err := h.sns.Publish(ctx, params)
	if err != nil {
		return nil, apperrors.NewAnnouncementPublishFailedError(h.config.TopicARN, err)
	}

	return &Output{
		MessageID: sdkaws.ToString(res.MessageId),
		Published: true,
	}, nil
}

// BuildPublishInput renders the SNS request for a pick. Brand and category
// travel as message attributes so subscribers can filter on them.
func (h *Handler) BuildPublishInput(input *Input) (*sns.PublishInput, error) {
	pick := input.TopPick
	brand := strings.TrimSpace(input.Brand)
	if brand == "" {
		brand = pick.Product.Brand
	}

	labels := pick.Labels
	if labels == nil {
		labels = []string{}
	}
	body, err := json.Marshal(Announcement{
		Type:        messageType,
		ProductID:   pick.Product.ID,
		Title:       pick.Product.Title,
		Category:    pick.Product.Category,
		Brand:       brand,
		Price:       pick.Product.Price,
		ImageURL:    pick.Product.ImageURL,
		Instructor:  pick.Product.Instructor,
		Score:       pick.Score,
		Reason:      pick.Reason,
		Labels:      labels,
		EvaluatedAt: input.EvaluatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal announcement: %w", err)
	}

	attributes := map[string]snstypes.MessageAttributeValue{}
	for name, value := range map[string]string{"brand": brand, "category": pick.Product.Category} {
		// SNS refuses attributes with empty values.
		if value == "" {
			continue
		}
		attributes[name] = snstypes.MessageAttributeValue{
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String(value),
		}
	}

	return &sns.PublishInput{
		TopicArn:          sdkaws.String(h.config.TopicARN),
		Subject:           sdkaws.String(subject(pick.Product.Title)),
		Message:           sdkaws.String(string(body)),
		MessageAttributes: attributes,
	}, nil
}

// subject keeps the printable ASCII part of the title, which is all SNS
// accepts in a subject line.
func subject(title string) string {
	s := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return -1
		}
		return r
	}, "Top Pick: "+title)
	s = strings.TrimSpace(s)
	if len(s) > maxSubjectLength {
		s = s[:maxSubjectLength-3] + "..."
	}
	return s
}
