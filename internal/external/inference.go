package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"fishwatch/internal/oracle"
	"fishwatch/internal/types"
)

// inferenceStatusCompleted is the job status of a finished synchronous run.
const inferenceStatusCompleted = "COMPLETED"

// InferenceClientConfig holds the configuration for creating an InferenceClient.
// An empty UserAgent defaults to "FishWatch".
type InferenceClientConfig struct {
	BaseURL    string
	APIKey     string
	EndpointID string
	UserAgent  string
	Logger     *slog.Logger
}

// inferenceRequest is the envelope POSTed to /v2/{endpoint}/runsync.
// The serverless runtime expects the payload under "input".
type inferenceRequest struct {
	Input inferenceInput `json:"input"`
}

type inferenceInput struct {
	Features [][4]float64 `json:"features"`
}

type inferenceResponse struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Output *inferenceOutput `json:"output"`
	Error  string           `json:"error,omitempty"`
}

type inferenceOutput struct {
	Predictions   []int       `json:"predictions"`
	Probabilities [][]float64 `json:"probabilities"`
}

// InferenceClient implements oracle.Oracle by calling a serverless model
// endpoint synchronously through BaseClient.
type InferenceClient struct {
	base       *BaseClient
	apiKey     string
	endpointID string
	baseURL    string
	logger     *slog.Logger
}

// NewInferenceClient creates an InferenceClient. The httpClient timeout bounds a
// single attempt; retries are limited to one so that a slow model does not
// hold an API request for long.
func NewInferenceClient(httpClient *http.Client, maxRetries int, cfg InferenceClientConfig) *InferenceClient {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "FishWatch"
	}
	base := NewBaseClient(
		httpClient,
		"oracle",
		RetryPolicy{
			MaxRetries: maxRetries,
			MinWait:    200 * time.Millisecond,
			MaxWait:    2 * time.Second,
		},
		userAgent,
	)
	return NewInferenceClientWithBase(base, cfg)
}

// NewInferenceClientWithBase creates an InferenceClient with a pre-configured
// BaseClient.
func NewInferenceClientWithBase(base *BaseClient, cfg InferenceClientConfig) *InferenceClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &InferenceClient{
		base:       base,
		apiKey:     cfg.APIKey,
		endpointID: cfg.EndpointID,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:     logger,
	}
}

// Predict sends one feature row and returns the model's class and class
// probabilities for it.
func (c *InferenceClient) Predict(ctx context.Context, features oracle.Features) (*oracle.Prediction, error) {
	bodyBytes, err := json.Marshal(inferenceRequest{
		Input: inferenceInput{Features: [][4]float64{features}},
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize oracle features", err)
	}

	url := fmt.Sprintf("%s/v2/%s/runsync", c.baseURL, c.endpointID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create oracle request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.handleErrorResponse(ctx, resp)
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamOracleMalformed, "failed to decode oracle response", err)
	}

	pred, err := out.prediction()
	if err != nil {
		c.logger.ErrorContext(ctx, "oracle returned unusable output",
			"job_id", out.ID,
			"status", out.Status,
			"error", err.Error(),
		)
		return nil, err
	}

	c.logger.DebugContext(ctx, "oracle prediction received",
		"job_id", out.ID,
		"class", pred.Class,
	)
	return pred, nil
}

// prediction extracts the single-row result from a runsync response.
func (r *inferenceResponse) prediction() (*oracle.Prediction, error) {
	if r.Status != inferenceStatusCompleted {
		msg := fmt.Sprintf("oracle job finished with status %q", r.Status)
		if r.Error != "" {
			msg += ": " + r.Error
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamOracleMalformed, msg, nil)
	}
	if r.Output == nil || len(r.Output.Predictions) != 1 || len(r.Output.Probabilities) != 1 {
		return nil, types.NewAppError(types.ErrCodeUpstreamOracleMalformed,
			"oracle output must contain exactly one prediction row", nil)
	}

	pred := &oracle.Prediction{
		Class:         r.Output.Predictions[0],
		Probabilities: r.Output.Probabilities[0],
	}
	if err := pred.Validate(); err != nil {
		return nil, err
	}
	return pred, nil
}

// Healthy reports whether the breaker currently admits requests.
func (c *InferenceClient) Healthy() error {
	if c.base.BreakerState() == gobreaker.StateOpen {
		return errors.New("oracle circuit breaker is open")
	}
	return nil
}

// handleErrorResponse reads a bounded error body from a 4xx response and
// returns an upstream AppError.
func (c *InferenceClient) handleErrorResponse(ctx context.Context, resp *http.Response) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	c.logger.ErrorContext(ctx, "oracle API error",
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	return types.NewAppError(
		types.ErrCodeUpstreamOracle,
		fmt.Sprintf("oracle rejected request (%d)", resp.StatusCode),
		fmt.Errorf("oracle returned %d: %s", resp.StatusCode, bodyStr),
	)
}

// wrapError keeps the code of an AppError from BaseClient and prefixes the
// message; anything else becomes an oracle upstream error.
func (c *InferenceClient) wrapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		code := appErr.Code
		if code == types.ErrCodeUpstreamUnavailable {
			code = types.ErrCodeUpstreamOracle
		}
		return types.NewAppError(code, "oracle: "+appErr.Message, appErr.Err)
	}
	return types.NewAppError(types.ErrCodeUpstreamOracle, "oracle request failed", err)
}

// Compile-time interface compliance check.
var _ oracle.Oracle = (*InferenceClient)(nil)
