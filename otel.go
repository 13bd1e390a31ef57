package moemail

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/moemail/client-go/internal/api"
)

const instrumentationName = "github.com/moemail/client-go"

// instrumentation holds the client's spans and counters. Unset providers
// fall back to the global ones, which are no-ops until the application
// installs an SDK.
type instrumentation struct {
	tracer trace.Tracer

	provisions      metric.Int64Counter
	provisionErrors metric.Int64Counter
	fetches         metric.Int64Counter
	fetchErrors     metric.Int64Counter
	codesFound      metric.Int64Counter
	pollAttempts    metric.Int64Histogram
}

func newInstrumentation(tp trace.TracerProvider, mp metric.MeterProvider) (*instrumentation, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	o := &instrumentation{tracer: tp.Tracer(instrumentationName)}
	meter := mp.Meter(instrumentationName)

	var err error
	o.provisions, err = meter.Int64Counter(
		"moemail.provision.count",
		metric.WithDescription("Number of mailbox provision attempts"),
	)
	if err != nil {
		return nil, err
	}

	o.provisionErrors, err = meter.Int64Counter(
		"moemail.provision.errors",
		metric.WithDescription("Number of failed mailbox provisions"),
	)
	if err != nil {
		return nil, err
	}

	o.fetches, err = meter.Int64Counter(
		"moemail.fetch.count",
		metric.WithDescription("Number of inbox fetches"),
	)
	if err != nil {
		return nil, err
	}

	o.fetchErrors, err = meter.Int64Counter(
		"moemail.fetch.errors",
		metric.WithDescription("Number of inbox fetches that failed on transport or provider errors"),
	)
	if err != nil {
		return nil, err
	}

	o.codesFound, err = meter.Int64Counter(
		"moemail.code.found",
		metric.WithDescription("Number of verification codes extracted"),
	)
	if err != nil {
		return nil, err
	}

	o.pollAttempts, err = meter.Int64Histogram(
		"moemail.poll.attempts",
		metric.WithDescription("Inbox fetches made per poll"),
	)
	if err != nil {
		return nil, err
	}

	return o, nil
}

// startSpan starts a span and returns a function that ends it, recording
// err when non-nil.
func (o *instrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func (o *instrumentation) recordProvision(ctx context.Context, domain string, err error) {
	attrs := metric.WithAttributes(domainAttr(domain))
	o.provisions.Add(ctx, 1, attrs)
	if err != nil {
		o.provisionErrors.Add(ctx, 1, metric.WithAttributes(domainAttr(domain), statusAttr(err)))
	}
}

func (o *instrumentation) recordFetch(ctx context.Context, err error) {
	o.fetches.Add(ctx, 1)
	switch {
	case err == nil:
		o.codesFound.Add(ctx, 1)
	case !errors.Is(err, ErrNoCode):
		o.fetchErrors.Add(ctx, 1, metric.WithAttributes(statusAttr(err)))
	}
}

func (o *instrumentation) recordPoll(ctx context.Context, attempts int, err error) {
	o.pollAttempts.Record(ctx, int64(attempts),
		metric.WithAttributes(attribute.Bool("moemail.poll.found", err == nil)))
}

func mailboxAttr(id string) attribute.KeyValue {
	return attribute.String("moemail.mailbox_id", id)
}

// statusAttr labels an error by its HTTP status, or "transport" when the
// provider was never reached.
func statusAttr(err error) attribute.KeyValue {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return attribute.Int("http.response.status_code", apiErr.StatusCode)
	case api.IsTransport(err):
		return attribute.String("error.type", "transport")
	default:
		return attribute.String("error.type", "other")
	}
}
