package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// TelemetryComponent 安装全局 TracerProvider / MeterProvider 与 W3C propagator
type TelemetryComponent struct {
	*core.BaseComponent
	cfg       *Config
	tp        *sdktrace.TracerProvider
	mp        *sdkmetric.MeterProvider
	shutdowns []func(context.Context) error
}

func NewTelemetryComponent(cfg *Config, deps ...string) *TelemetryComponent {
	cfg.applyDefaults()
	return &TelemetryComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_TELEMETRY, deps...),
		cfg:           cfg,
	}
}

func (tc *TelemetryComponent) Start(ctx context.Context) error {
	if tc.cfg.ServiceName == "" {
		return errors.New("telemetry service_name must be set")
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(tc.cfg.ServiceName)),
	)
	if err != nil {
		return fmt.Errorf("resource init: %w", err)
	}

	spanExp, metricExp, err := tc.exporters(ctx)
	if err != nil {
		tc.shutdown(ctx)
		return err
	}
	tc.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	tc.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(30*time.Second))),
	)
	// 逆序关闭: 先 provider 再文件
	tc.shutdowns = append(tc.shutdowns, tc.mp.Shutdown, tc.tp.Shutdown)

	otel.SetTracerProvider(tc.tp)
	otel.SetMeterProvider(tc.mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logging.Info(ctx, "telemetry component started",
		zap.String("exporter", string(tc.cfg.Exporter)),
		zap.Float64("sample_ratio", tc.cfg.SampleRatio),
		zap.String("service_name", tc.cfg.ServiceName),
	)
	return tc.BaseComponent.Start(ctx)
}

func (tc *TelemetryComponent) exporters(ctx context.Context) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	switch tc.cfg.Exporter {
	case ExporterStdout:
		w, err := tc.stdoutWriter()
		if err != nil {
			return nil, nil, err
		}
		topts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
		if tc.cfg.StdoutPretty {
			topts = append(topts, stdouttrace.WithPrettyPrint())
		}
		se, err := stdouttrace.New(topts...)
		if err != nil {
			return nil, nil, fmt.Errorf("trace exporter init: %w", err)
		}
		me, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("metric exporter init: %w", err)
		}
		return se, me, nil
	case ExporterOTLP:
		o := tc.cfg.OTLP
		if o == nil || o.Endpoint == "" {
			return nil, nil, errors.New("otlp exporter selected but otlp.endpoint empty")
		}
		ua := grpc.WithUserAgent(tc.cfg.ServiceName)
		topts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(o.Endpoint),
			otlptracegrpc.WithTimeout(o.Timeout),
			otlptracegrpc.WithDialOption(ua),
		}
		mopts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(o.Endpoint),
			otlpmetricgrpc.WithTimeout(o.Timeout),
			otlpmetricgrpc.WithDialOption(ua),
		}
		if o.Insecure {
			topts = append(topts, otlptracegrpc.WithInsecure())
			mopts = append(mopts, otlpmetricgrpc.WithInsecure())
		}
		se, err := otlptracegrpc.New(ctx, topts...)
		if err != nil {
			return nil, nil, fmt.Errorf("trace exporter init: %w", err)
		}
		me, err := otlpmetricgrpc.New(ctx, mopts...)
		if err != nil {
			return nil, nil, fmt.Errorf("metric exporter init: %w", err)
		}
		return se, me, nil
	default:
		return nil, nil, fmt.Errorf("unsupported exporter: %s", tc.cfg.Exporter)
	}
}

func (tc *TelemetryComponent) stdoutWriter() (io.Writer, error) {
	if tc.cfg.StdoutFile == "" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(tc.cfg.StdoutFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open telemetry stdout file: %w", err)
	}
	tc.shutdowns = append(tc.shutdowns, func(context.Context) error { return f.Close() })
	return f, nil
}

func (tc *TelemetryComponent) Stop(ctx context.Context) error {
	defer tc.BaseComponent.Stop(ctx)
	if err := tc.shutdown(ctx); err != nil {
		logging.Warn(ctx, "telemetry shutdown error", zap.Error(err))
		return err
	}
	return nil
}

func (tc *TelemetryComponent) shutdown(ctx context.Context) error {
	var errs []error
	for i := len(tc.shutdowns) - 1; i >= 0; i-- {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := tc.shutdowns[i](c); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	tc.shutdowns = nil
	return errors.Join(errs...)
}
