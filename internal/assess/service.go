// Package assess runs the end-to-end assessment of a vessel observation: it
// labels the position with an ocean and nearest country, asks the oracle for a
// verdict, and explains that verdict with the reasoning rules.
//
// Downstream sinks (history store, alert queue, metrics) are optional. Their
// failures are logged and never change the verdict returned to the caller.
// Oracle failures, on the other hand, are returned unchanged in meaning: there
// is no fallback verdict.
package assess

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fishwatch/internal/geo"
	"fishwatch/internal/oracle"
	"fishwatch/internal/reasoning"
	"fishwatch/internal/types"
)

// DefaultBatchConcurrency bounds concurrent oracle calls in AssessBatch.
const DefaultBatchConcurrency = 8

// Recorder persists completed assessments.
type Recorder interface {
	Insert(ctx context.Context, a *types.Assessment) error
}

// Alerter announces positive assessments to downstream consumers.
type Alerter interface {
	PublishAlert(ctx context.Context, a *types.Assessment) error
}

// Metrics receives assessment telemetry.
type Metrics interface {
	RecordAssessment(ctx context.Context, verdict types.VerdictLabel, ocean string)
	RecordOracleLatency(ctx context.Context, d time.Duration)
	RecordOracleFailure(ctx context.Context)
}

// Service orchestrates a single assessment. It is safe for concurrent use.
type Service struct {
	regions     *geo.RegionClassifier
	countries   *geo.CountryLookup
	oracle      oracle.Oracle
	synthesizer *reasoning.Synthesizer
	logger      *slog.Logger

	recorder    Recorder
	alerter     Alerter
	metrics     Metrics
	concurrency int
	now         func() time.Time
	newID       func() string
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder stores every assessment.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithAlerter publishes every positive assessment.
func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

// WithMetrics enables assessment telemetry.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBatchConcurrency sets how many observations AssessBatch evaluates at once.
// Values below 1 are ignored.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the timestamp source. Tests use it for stable output.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides assessment ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService builds a Service from the process-wide reference tables and oracle.
func NewService(
	regions *geo.RegionClassifier,
	countries *geo.CountryLookup,
	o oracle.Oracle,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		regions:     regions,
		countries:   countries,
		oracle:      o,
		synthesizer: reasoning.NewSynthesizer(),
		logger:      logger,
		concurrency: DefaultBatchConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Assess evaluates one observation. The observation must already be validated.
func (s *Service) Assess(ctx context.Context, obs types.Observation) (*types.Assessment, error) {
	a, err := s.evaluate(ctx, obs)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, a)
	return a, nil
}

// AssessBatch evaluates observations concurrently and returns assessments in
// input order. The first oracle failure cancels the remaining work.
func (s *Service) AssessBatch(ctx context.Context, observations []types.Observation) (*types.BatchAssessmentResult, error) {
	results := make([]*types.Assessment, len(observations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, obs := range observations {
		g.Go(func() error {
			a, err := s.evaluate(gctx, obs)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &types.BatchAssessmentResult{Assessments: results}
	for _, a := range results {
		s.dispatch(ctx, a)
		if a.Verdict.IsPositive() {
			out.Flagged++
		}
	}

	s.logger.InfoContext(ctx, "batch assessed",
		"count", len(results),
		"flagged", out.Flagged,
	)
	return out, nil
}

// evaluate computes the annotated assessment without touching any sink.
// The geo lookup and the oracle call are independent and run side by side.
func (s *Service) evaluate(ctx context.Context, obs types.Observation) (*types.Assessment, error) {
	var ocean, country string
	var pred *oracle.Prediction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ocean = s.regions.Classify(obs.Latitude, obs.Longitude)
		country = s.countries.Nearest(obs.Latitude, obs.Longitude)
		return nil
	})
	g.Go(func() error {
		p, err := s.predict(gctx, obs)
		pred = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	verdict := pred.Verdict()
	reasons := s.synthesizer.Explain(obs, verdict.Label)

	return &types.Assessment{
		ID:          s.newID(),
		Verdict:     verdict.Label,
		Confidence:  oracle.FormatPercent(verdict.Confidence),
		Ocean:       ocean,
		Country:     country,
		Reasoning:   reasoning.Join(reasons),
		Reasons:     reasons,
		Observation: obs,
		AssessedAt:  s.now(),
	}, nil
}

func (s *Service) predict(ctx context.Context, obs types.Observation) (*oracle.Prediction, error) {
	start := time.Now()
	pred, err := s.oracle.Predict(ctx, oracle.FeaturesFrom(obs))
	if s.metrics != nil {
		s.metrics.RecordOracleLatency(ctx, time.Since(start))
	}
	if err == nil {
		err = pred.Validate()
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordOracleFailure(ctx)
		}
		s.logger.ErrorContext(ctx, "oracle prediction failed",
			"error", err.Error(),
			"request_id", types.GetRequestID(ctx),
		)
		return nil, asOracleError(err)
	}
	return pred, nil
}

// asOracleError guarantees callers always see an AppError from the oracle
// boundary so the API can map it to a status.
func asOracleError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewAppError(types.ErrCodeUpstreamOracle, "oracle call did not complete in time", err)
	}
	return types.NewAppError(types.ErrCodeUpstreamOracle, "oracle prediction failed", err)
}

// dispatch hands a finished assessment to the configured sinks.
func (s *Service) dispatch(ctx context.Context, a *types.Assessment) {
	logger := s.logger.With(
		"assessment_id", a.ID,
		"verdict", string(a.Verdict),
		"ocean", a.Ocean,
		"country", a.Country,
	)

	if s.metrics != nil {
		s.metrics.RecordAssessment(ctx, a.Verdict, a.Ocean)
	}

	if s.recorder != nil {
		if err := s.recorder.Insert(ctx, a); err != nil {
			logger.ErrorContext(ctx, "failed to record assessment", "error", err.Error())
		}
	}

	if s.alerter != nil && a.Verdict.IsPositive() {
		if err := s.alerter.PublishAlert(ctx, a); err != nil {
			logger.ErrorContext(ctx, "failed to publish vessel alert", "error", err.Error())
		}
	}

	logger.InfoContext(ctx, "observation assessed", "confidence", a.Confidence)
}
