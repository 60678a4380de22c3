// Package main is the entrypoint for the Assess Worker Lambda function.
//
// The worker consumes vessel observations from an SQS queue and runs each one
// through the same assessment pipeline as the API: the result is recorded
// and, when positive, published as a vessel alert.
//
// Handler flow, for each SQS message in the batch:
//  1. Unmarshal an Observation from the message body.
//  2. Validate it with the API's struct rules; all four fields are required.
//  3. Assess it, using the message ID as the trace ID.
//
// Malformed or invalid bodies are ACKed and logged since redelivery cannot fix
// them. Assessment failures (oracle down, breaker open) are reported as batch
// item failures so SQS redelivers only those messages.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"fishwatch/internal/app"
	"fishwatch/internal/config"
	"fishwatch/internal/core"
	"fishwatch/internal/types"
)

// Assessor is the slice of assess.Service the worker needs.
type Assessor interface {
	Assess(ctx context.Context, obs types.Observation) (*types.Assessment, error)
}

// Handler holds the dependencies for the SQS event handler.
type Handler struct {
	assessor  Assessor
	validator *core.Validator
	logger    *slog.Logger
}

// Handle processes an SQS event containing one or more observations.
// Lambda SQS integration uses partial batch responses: messages that fail
// processing are returned in batchItemFailures so SQS can retry them.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "failed to assess SQS message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processMessage returns an error only for failures worth retrying.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	ctx = types.WithRequestID(ctx, record.MessageId)
	logger := h.logger.With("message_id", record.MessageId)

	var in types.ObservationInput
	if err := json.Unmarshal([]byte(record.Body), &in); err != nil {
		// Permanent parse failure - do not retry (return nil to ACK).
		logger.ErrorContext(ctx, "failed to unmarshal observation", "error", err.Error())
		return nil
	}

	if err := h.validator.ValidateStruct(in); err != nil {
		logger.WarnContext(ctx, "dropping invalid observation", "error", err.Error())
		return nil
	}

	assessment, err := h.assessor.Assess(ctx, in.Observation())
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "observation assessed from queue",
		"assessment_id", assessment.ID,
		"verdict", string(assessment.Verdict),
	)
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Assess Worker Lambda initializing (cold start)")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = logger.With("service", "fishwatch-assess-worker")

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := app.Build(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("Failed to build dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	handler := &Handler{
		assessor:  deps.Service,
		validator: core.NewValidator(logger),
		logger:    logger,
	}

	logger.Info("Assess Worker Lambda initialized",
		"history", deps.History != nil,
		"alerts", deps.Alerts != nil,
		"metrics", deps.Metrics != nil,
	)

	// Local mode: read an SQS event from stdin instead of starting the Lambda
	// runtime.
	// Usage: echo '{"Records":[{"messageId":"m1","body":"{...}"}]}' | go run ./cmd/assess-worker
	if cfg.Environment == "local" {
		logger.Info("APP_ENV=local: reading SQS event from stdin")
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("Failed to read stdin", "error", err)
			os.Exit(1)
		}
		var event events.SQSEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			logger.Error("Failed to parse SQS event", "error", err)
			os.Exit(1)
		}
		resp, _ := handler.Handle(context.Background(), event)
		logger.Info("Handler execution completed", "failures", len(resp.BatchItemFailures))
		return
	}

	lambda.Start(handler.Handle)
}
