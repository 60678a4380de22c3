// Package queue publishes flagged-vessel alerts to SQS for downstream
// enforcement tooling.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"fishwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertPublisher sends a VesselAlertMessage for each assessment it is given.
// Callers decide which assessments warrant an alert.
type AlertPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewAlertPublisher creates a publisher for the given queue.
func NewAlertPublisher(client SQSSender, queueURL string, logger *slog.Logger) *AlertPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// PublishAlert serializes a into a VesselAlertMessage and sends it. The
// verdict and ocean are also set as message attributes so subscribers can
// filter without parsing the body.
func (p *AlertPublisher) PublishAlert(ctx context.Context, a *types.Assessment) error {
	traceID := types.GetRequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}

	msg := types.VesselAlertMessage{
		AlertID:      uuid.NewString(),
		AssessmentID: a.ID,
		TraceID:      traceID,
		Confidence:   a.Confidence,
		Ocean:        a.Ocean,
		Country:      a.Country,
		Reasons:      a.Reasons,
		Observation:  a.Observation,
		AssessedAt:   a.AssessedAt,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalQueue, "failed to marshal vessel alert", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"verdict": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(a.Verdict)),
			},
			"ocean": {
				DataType:    aws.String("String"),
				StringValue: aws.String(a.Ocean),
			},
		},
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalQueue,
			fmt.Sprintf("failed to send vessel alert to %s", p.queueURL), err)
	}

	p.logger.InfoContext(ctx, "vessel alert sent",
		"queue_url", p.queueURL,
		"alert_id", msg.AlertID,
		"assessment_id", a.ID,
		"trace_id", traceID,
		"message_id", aws.ToString(out.MessageId),
	)

	return nil
}
