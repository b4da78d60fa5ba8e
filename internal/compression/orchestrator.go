package compression

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/compactd/internal/salience"
	"github.com/fyrsmithlabs/compactd/internal/tokens"
)

const tracerName = "github.com/fyrsmithlabs/compactd/internal/compression"
const meterName = "compression"

// defaultQuality is the score assigned when the original has no
// salient tokens to check against.
const defaultQuality = 0.8

// Service is the compression orchestrator. One invocation walks
// validation, prompting, backend invocation, ratio scoring, and
// quality scoring, ending accepted or rejected. Attempts hold no
// shared state, so independent invocations may run concurrently.
type Service struct {
	backends  map[Strategy]Backend
	estimator tokens.Estimator
	config    Config

	tracer trace.Tracer
	meter  metric.Meter

	attempts metric.Int64Counter
	duration metric.Float64Histogram
	ratios   metric.Float64Histogram
	quality  metric.Float64Histogram
	failures metric.Int64Counter
}

// NewService creates the orchestrator. The backends map is the closed
// set of configured transports; strategies without an entry are
// rejected at invocation time.
func NewService(cfg Config, estimator tokens.Estimator, backends map[Strategy]Backend) (*Service, error) {
	if estimator == nil {
		return nil, fmt.Errorf("estimator is required")
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}

	s := &Service{
		backends:  backends,
		estimator: estimator,
		config:    cfg.withDefaults(),
		tracer:    otel.Tracer(tracerName),
		meter:     otel.Meter(meterName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return s, nil
}

// Config returns the effective engine configuration.
func (s *Service) Config() Config {
	return s.config
}

// Compress runs one compression attempt for the unit using the given
// strategy. The returned Outcome is always non-nil; on rejection the
// error identifies the rejection class and the Outcome carries the
// computed numbers.
func (s *Service) Compress(ctx context.Context, unit Unit, strategy Strategy) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "compression.compress",
		trace.WithAttributes(
			attribute.String("strategy", string(strategy)),
			attribute.Int("content_length", len(unit.Content)),
			attribute.Int("source_count", unit.SourceCount),
		),
	)
	defer span.End()

	start := time.Now()
	outcome := &Outcome{Strategy: strategy}

	// Validating.
	if strings.TrimSpace(unit.Content) == "" {
		return s.reject(ctx, outcome, span, ErrEmptyContent)
	}
	originalTokens := unit.OriginalTokens
	if originalTokens <= 0 {
		originalTokens = s.estimator.Estimate(unit.Content)
	}
	outcome.OriginalTokens = originalTokens
	if originalTokens < s.config.MinTokens {
		return s.reject(ctx, outcome, span,
			fmt.Errorf("%w: %d tokens, floor is %d", ErrContentTooSmall, originalTokens, s.config.MinTokens))
	}

	backend, ok := s.backends[strategy]
	if !ok {
		return s.reject(ctx, outcome, span, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy))
	}

	// Prompting. Secrets are scrubbed once; both the prompt and the
	// quality gate work from the scrubbed text the backend saw.
	content := scrubSecrets(unit.Content)
	contentType := unit.ContentType
	if contentType == "" {
		contentType = string(DetectContentType(content))
	}
	prompt := BuildPrompt(content, originalTokens, s.config.TargetRatio, contentType)

	// Invoking. No lock is held across this call.
	text, err := backend.Compress(ctx, prompt, Options{})
	if err != nil {
		return s.reject(ctx, outcome, span, err)
	}

	// ScoringRatio: same estimator on both sides, computed once from
	// the final backend output.
	compressedTokens := s.estimator.Estimate(text)
	if compressedTokens <= 0 {
		return s.reject(ctx, outcome, span, fmt.Errorf("%w: empty completion", ErrMalformedResponse))
	}
	outcome.CompressedText = text
	outcome.CompressedTokens = compressedTokens
	outcome.Ratio = float64(originalTokens) / float64(compressedTokens)
	if outcome.Ratio < s.config.MinRatio {
		return s.reject(ctx, outcome, span,
			fmt.Errorf("%w: got %.2f, floor is %.2f", ErrRatioBelowFloor, outcome.Ratio, s.config.MinRatio))
	}

	// ScoringQuality.
	outcome.QualityScore = scoreQuality(content, text)
	if outcome.QualityScore < s.config.MinQuality {
		return s.reject(ctx, outcome, span,
			fmt.Errorf("%w: got %.2f, floor is %.2f", ErrQualityBelowFloor, outcome.QualityScore, s.config.MinQuality))
	}

	// Accepted.
	outcome.Success = true
	outcome.CompressedAt = time.Now()

	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("strategy", string(strategy)))
	s.attempts.Add(ctx, 1, attrs)
	s.duration.Record(ctx, elapsed, attrs)
	s.ratios.Record(ctx, outcome.Ratio, attrs)
	s.quality.Record(ctx, outcome.QualityScore, attrs)

	span.SetAttributes(
		attribute.Float64("ratio", outcome.Ratio),
		attribute.Float64("quality_score", outcome.QualityScore),
		attribute.Int("original_tokens", outcome.OriginalTokens),
		attribute.Int("compressed_tokens", outcome.CompressedTokens),
	)

	return outcome, nil
}

// reject finalizes a failed attempt: records the error, annotates the
// outcome, and returns both.
func (s *Service) reject(ctx context.Context, outcome *Outcome, span trace.Span, err error) (*Outcome, error) {
	outcome.Success = false
	outcome.Reason = err.Error()
	span.RecordError(err)
	s.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", string(outcome.Strategy)),
		attribute.String("reason", rejectClass(err)),
	))
	return outcome, err
}

// rejectClass maps an error to a low-cardinality metric label.
func rejectClass(err error) string {
	switch {
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrContentTooSmall), errors.Is(err, ErrUnknownStrategy):
		return "validation"
	case errors.Is(err, ErrBackendTimeout):
		return "timeout"
	case errors.Is(err, ErrBackendFailure), errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrOutputTooLarge):
		return "backend"
	case errors.Is(err, ErrRatioBelowFloor):
		return "ratio"
	case errors.Is(err, ErrQualityBelowFloor):
		return "quality"
	}
	return "other"
}

// scoreQuality measures the fraction of the original's salient tokens
// that survive, case-insensitively, in the compressed text. Content
// with nothing salient to check scores defaultQuality.
func scoreQuality(original, compressed string) float64 {
	salient := salience.Extract(original)
	if len(salient) == 0 {
		return defaultQuality
	}
	lower := strings.ToLower(compressed)
	retained := 0
	for _, tok := range salient {
		if strings.Contains(lower, strings.ToLower(tok)) {
			retained++
		}
	}
	return float64(retained) / float64(len(salient))
}

// initMetrics registers the engine's OpenTelemetry instruments.
func (s *Service) initMetrics() error {
	var err error

	s.attempts, err = s.meter.Int64Counter(
		"compression.operations_total",
		metric.WithDescription("Accepted compression operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	s.duration, err = s.meter.Float64Histogram(
		"compression.duration_seconds",
		metric.WithDescription("Wall-clock time per compression attempt"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 15, 60, 300),
	)
	if err != nil {
		return err
	}

	s.ratios, err = s.meter.Float64Histogram(
		"compression.ratio",
		metric.WithDescription("Achieved compression ratios"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1.0, 1.2, 1.5, 2.0, 3.0, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	s.quality, err = s.meter.Float64Histogram(
		"compression.quality_score",
		metric.WithDescription("Quality scores of accepted compressions"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0.0, 0.2, 0.4, 0.6, 0.8, 1.0),
	)
	if err != nil {
		return err
	}

	s.failures, err = s.meter.Int64Counter(
		"compression.rejections_total",
		metric.WithDescription("Rejected compression attempts by class"),
		metric.WithUnit("1"),
	)
	return err
}
