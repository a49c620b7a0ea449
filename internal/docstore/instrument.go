package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/metrics"
)

const tracerName = "github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"

// InstrumentOptions tunes the decorator returned by Instrument.
type InstrumentOptions struct {
	// Backend labels metrics and spans (memory, rtdb, postgres, redis).
	Backend string
	// MaxTries bounds attempts for temporary failures; 0 or 1 disables retry.
	MaxTries uint
	// Timeout caps each attempt; zero leaves the caller's deadline alone.
	Timeout        time.Duration
	InitialBackoff time.Duration
}

// Instrument decorates inner with metrics, tracing, debug logging and
// bounded retry of temporary failures. The result implements Conditional
// and Pinger exactly when inner does.
func Instrument(inner Store, logger zerolog.Logger, opts InstrumentOptions) Store {
	if opts.Backend == "" {
		opts.Backend = "unknown"
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 50 * time.Millisecond
	}
	base := &instrumented{
		inner:  inner,
		logger: logger.With().Str("component", "docstore").Str("backend", opts.Backend).Logger(),
		tracer: otel.Tracer(tracerName),
		opts:   opts,
	}
	cond, isCond := inner.(Conditional)
	pinger, isPinger := inner.(Pinger)
	switch {
	case isCond && isPinger:
		return &instrumentedFull{instrumentedConditional{base, cond}, pinger}
	case isCond:
		return &instrumentedConditional{base, cond}
	case isPinger:
		return &instrumentedPinger{base, pinger}
	default:
		return base
	}
}

type instrumented struct {
	inner  Store
	logger zerolog.Logger
	tracer trace.Tracer
	opts   InstrumentOptions
}

func (s *instrumented) Get(ctx context.Context, p Path) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.do(ctx, "get", p, func(ctx context.Context) error {
		var err error
		raw, err = s.inner.Get(ctx, p)
		return err
	})
	return raw, err
}

func (s *instrumented) Set(ctx context.Context, p Path, value any) error {
	return s.do(ctx, "set", p, func(ctx context.Context) error {
		return s.inner.Set(ctx, p, value)
	})
}

func (s *instrumented) Update(ctx context.Context, p Path, fields map[string]any) error {
	return s.do(ctx, "update", p, func(ctx context.Context) error {
		return s.inner.Update(ctx, p, fields)
	})
}

func (s *instrumented) Remove(ctx context.Context, p Path) error {
	return s.do(ctx, "remove", p, func(ctx context.Context) error {
		return s.inner.Remove(ctx, p)
	})
}

// do runs one logical operation, retrying attempts that fail with a
// temporary StoreError.
func (s *instrumented) do(ctx context.Context, op string, p Path, attempt func(context.Context) error) error {
	collection := p.Collection()
	ctx, span := s.tracer.Start(ctx, "docstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("docstore.backend", s.opts.Backend),
			attribute.String("docstore.path", p.String()),
		),
	)
	defer span.End()

	start := time.Now()
	tries := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		if tries > 1 {
			metrics.StoreRetries.WithLabelValues(s.opts.Backend, op).Inc()
		}
		err := s.attempt(ctx, attempt)
		if err == nil {
			return struct{}{}, nil
		}
		if !IsTemporary(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		s.logger.Warn().Err(err).Str("op", op).Str("path", p.String()).Int("attempt", tries).Msg("temporary store failure")
		return struct{}{}, err
	}, backoff.WithBackOff(s.newBackOff()), backoff.WithMaxTries(s.maxTries()))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}

	outcome := outcomeOf(err)
	metrics.StoreOperations.WithLabelValues(s.opts.Backend, op, collection, outcome).Inc()
	metrics.StoreOperationDuration.WithLabelValues(s.opts.Backend, op).Observe(time.Since(start).Seconds())

	if err != nil && outcome != "conflict" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logger.Debug().Str("op", op).Str("path", p.String()).Str("outcome", outcome).Dur("duration", time.Since(start)).Msg("store call")
	return err
}

func (s *instrumented) attempt(ctx context.Context, fn func(context.Context) error) error {
	if s.opts.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	err := fn(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		var se *StoreError
		if errors.As(err, &se) {
			se.Temporary = true
		}
	}
	return err
}

func (s *instrumented) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialBackoff
	b.MaxInterval = 2 * time.Second
	return b
}

func (s *instrumented) maxTries() uint {
	if s.opts.MaxTries == 0 {
		return 1
	}
	return s.opts.MaxTries
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrETagMismatch):
		return "conflict"
	case IsTemporary(err):
		return "unavailable"
	default:
		return "error"
	}
}

type instrumentedConditional struct {
	*instrumented
	cond Conditional
}

func (s *instrumentedConditional) GetWithETag(ctx context.Context, p Path) (json.RawMessage, string, error) {
	var (
		raw  json.RawMessage
		etag string
	)
	err := s.do(ctx, "get_etag", p, func(ctx context.Context) error {
		var err error
		raw, etag, err = s.cond.GetWithETag(ctx, p)
		return err
	})
	return raw, etag, err
}

func (s *instrumentedConditional) SetIfMatch(ctx context.Context, p Path, value any, etag string) error {
	return s.do(ctx, "set_if_match", p, func(ctx context.Context) error {
		return s.cond.SetIfMatch(ctx, p, value, etag)
	})
}

type instrumentedPinger struct {
	*instrumented
	pinger Pinger
}

func (s *instrumentedPinger) Ping(ctx context.Context) error {
	return s.pinger.Ping(ctx)
}

type instrumentedFull struct {
	instrumentedConditional
	pinger Pinger
}

func (s *instrumentedFull) Ping(ctx context.Context) error {
	return s.pinger.Ping(ctx)
}
