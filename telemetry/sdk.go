package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ConfigureSDKTracing installs a real OpenTelemetry SDK TracerProvider as
// the global provider, with an always-on sampler and a resource that
// identifies this process as serviceName/version. No span processor or
// exporter is registered, so spans are sampled but not batched or
// exported. Callers that already run a collector-backed TracerProvider
// (e.g. via clue) should not call this.
//
// The returned shutdown func flushes and closes the provider; callers
// must invoke it on process exit.
func ConfigureSDKTracing(ctx context.Context, serviceName, serviceVersion string) (shutdown func(context.Context) error, err error) {
	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
