package announcetoppick

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "toppick-workers/internal/common/errors"
	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/models"
)

const testTopic = "arn:aws:sns:us-east-1:123456789012:weekly-top-pick"

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	return m.PublishFunc(ctx, params, optFns...)
}

func acceptingSNS(messageID string) *MockSNSService {
	return &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{MessageId: sdkaws.String(messageID)}, nil
		},
	}
}

func createTestConfig() *Config {
	return &Config{
		Enabled:  true,
		TopicARN: testTopic,
		Timeout:  5 * time.Second,
	}
}

func createTestPick() *models.ScoredProduct {
	return &models.ScoredProduct{
		Product: models.Product{
			ID:       "prod-1",
			Title:    "Go for Backend Engineers",
			Price:    49,
			Category: "course",
			Brand:    "acme",
		},
		Score:  90,
		Reason: "New Release • Best Value",
		Labels: []string{"New Release", "Best Value"},
	}
}

func TestHandler_Execute_Publishes(t *testing.T) {
	mock := acceptingSNS("msg-123")
	handler := NewHandler(createTestConfig(), mock, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		TopPick:     createTestPick(),
		EvaluatedAt: "2026-03-18T12:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, output.Published)
	assert.Equal(t, "msg-123", output.MessageID)

	require.Len(t, mock.calls, 1)
	params := mock.calls[0]
	assert.Equal(t, testTopic, sdkaws.ToString(params.TopicArn))
	assert.Equal(t, "Top Pick: Go for Backend Engineers", sdkaws.ToString(params.Subject))
	assert.Equal(t, "acme", sdkaws.ToString(params.MessageAttributes["brand"].StringValue))
	assert.Equal(t, "String", sdkaws.ToString(params.MessageAttributes["category"].DataType))
	assert.Equal(t, "course", sdkaws.ToString(params.MessageAttributes["category"].StringValue))

	var msg Announcement
	require.NoError(t, json.Unmarshal([]byte(sdkaws.ToString(params.Message)), &msg))
	assert.Equal(t, "weekly-top-pick", msg.Type)
	assert.Equal(t, "prod-1", msg.ProductID)
	assert.Equal(t, 90, msg.Score)
	assert.Equal(t, "New Release • Best Value", msg.Reason)
	assert.Equal(t, "2026-03-18T12:00:00Z", msg.EvaluatedAt)
}

func TestHandler_Execute_Skips(t *testing.T) {
	tests := []struct {
		name   string
		config func(c *Config)
		input  *Input
	}{
		{
			name:   "disabled",
			config: func(c *Config) { c.Enabled = false },
			input:  &Input{TopPick: createTestPick()},
		},
		{
			name:   "no pick",
			config: func(c *Config) {},
			input:  &Input{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.config(cfg)
			mock := acceptingSNS("unused")
			handler := NewHandler(cfg, mock, logger.NewTestLogger(t))

			output, err := handler.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.False(t, output.Published)
			assert.Empty(t, mock.calls)
		})
	}
}

func TestHandler_Execute_NilPublisher(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{TopPick: createTestPick()})
	require.NoError(t, err)
	assert.False(t, output.Published)
}

func TestHandler_Execute_PublishFailure(t *testing.T) {
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	handler := NewHandler(createTestConfig(), mock, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{TopPick: createTestPick()})
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAnnouncementPublishFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "throttled")
}

func TestBuildPublishInput(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	t.Run("input brand overrides product brand", func(t *testing.T) {
		params, err := handler.BuildPublishInput(&Input{TopPick: createTestPick(), Brand: "partner"})
		require.NoError(t, err)
		assert.Equal(t, "partner", sdkaws.ToString(params.MessageAttributes["brand"].StringValue))
	})

	t.Run("empty attributes are omitted", func(t *testing.T) {
		pick := createTestPick()
		pick.Product.Brand = ""
		pick.Labels = nil
		params, err := handler.BuildPublishInput(&Input{TopPick: pick})
		require.NoError(t, err)
		assert.NotContains(t, params.MessageAttributes, "brand")
		assert.Contains(t, params.MessageAttributes, "category")
		assert.Contains(t, sdkaws.ToString(params.Message), `"labels":[]`)
	})
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Top Pick: Caf Basics", subject("Café Basics"))
	assert.Equal(t, "Top Pick: Line one", subject("Line one\n"))

	long := subject(strings.Repeat("x", 200))
	assert.Len(t, long, 100)
	assert.True(t, strings.HasSuffix(long, "..."))
}
