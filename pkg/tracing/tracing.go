package tracing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"contrib.go.opencensus.io/exporter/aws"
	"contrib.go.opencensus.io/exporter/jaeger"
	"contrib.go.opencensus.io/exporter/prometheus"
	"contrib.go.opencensus.io/exporter/stackdriver"
	"contrib.go.opencensus.io/exporter/zipkin"
	"contrib.go.opencensus.io/integrations/ocsql"
	datadog "github.com/DataDog/opencensus-go-exporter-datadog"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"

	"github.com/Fieldops/fieldops/config"
	"github.com/Fieldops/fieldops/pkg/logger"
)

type traceExporterFactory func(cfg *config.TracingConfig) (trace.Exporter, error)

type viewExporterFactory func(cfg *config.TracingConfig, log logger.Logger) (view.Exporter, error)

var traceExporters = map[string]traceExporterFactory{
	"jaeger":      newJaegerExporter,
	"zipkin":      newZipkinExporter,
	"stackdriver": newStackdriverTraceExporter,
	"datadog":     newDatadogTraceExporter,
	"xray":        newXRayExporter,
}

var viewExporters = map[string]viewExporterFactory{
	"prometheus":  newPrometheusExporter,
	"stackdriver": newStackdriverViewExporter,
	"datadog":     newDatadogViewExporter,
}

func newStackdriverTraceExporter(cfg *config.TracingConfig) (trace.Exporter, error) {
	return newStackdriverExporter(cfg, nil)
}

func newStackdriverViewExporter(cfg *config.TracingConfig, log logger.Logger) (view.Exporter, error) {
	return newStackdriverExporter(cfg, log)
}

func newDatadogTraceExporter(cfg *config.TracingConfig) (trace.Exporter, error) {
	return newDatadogExporter(cfg, nil)
}

func newDatadogViewExporter(cfg *config.TracingConfig, log logger.Logger) (view.Exporter, error) {
	return newDatadogExporter(cfg, log)
}

// ParseExporterList splits a comma separated exporter setting, dropping blanks and "none"
func ParseExporterList(value string) []string {
	var names []string
	for _, name := range strings.Split(value, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || name == "none" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// InitTracing wires OpenCensus exporters and registers the HTTP and SQL views
// codecov:ignore:start
func InitTracing(cfg *config.TracingConfig, log logger.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	trace.ApplyConfig(trace.Config{
		DefaultSampler: trace.ProbabilitySampler(cfg.SamplingProbability),
	})

	traceNames := ParseExporterList(cfg.TraceExporter)
	if len(traceNames) > 1 {
		return errors.New("only one trace exporter can be configured")
	}
	for _, name := range traceNames {
		factory, ok := traceExporters[name]
		if !ok {
			return fmt.Errorf("unsupported trace exporter: %s", name)
		}
		exporter, err := factory(cfg)
		if err != nil {
			return fmt.Errorf("failed to create %s trace exporter: %w", name, err)
		}
		trace.RegisterExporter(exporter)
	}

	metricNames := ParseExporterList(cfg.MetricsExporter)
	for _, name := range metricNames {
		factory, ok := viewExporters[name]
		if !ok {
			return fmt.Errorf("unsupported metrics exporter: %s", name)
		}
		exporter, err := factory(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create %s metrics exporter: %w", name, err)
		}
		view.RegisterExporter(exporter)
	}

	if err := view.Register(ochttp.DefaultServerViews...); err != nil {
		return fmt.Errorf("failed to register HTTP server views: %w", err)
	}
	if err := view.Register(ocsql.DefaultViews...); err != nil {
		return fmt.Errorf("failed to register database views: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"trace_exporter":   strings.Join(traceNames, ","),
		"metrics_exporter": strings.Join(metricNames, ","),
	}).Info("OpenCensus initialized")
	return nil
}

func newJaegerExporter(cfg *config.TracingConfig) (trace.Exporter, error) {
	if cfg.JaegerEndpoint == "" {
		return nil, errors.New("jaeger endpoint is required")
	}
	return jaeger.NewExporter(jaeger.Options{
		CollectorEndpoint: cfg.JaegerEndpoint,
		ServiceName:       cfg.ServiceName,
		Process:           jaeger.Process{ServiceName: cfg.ServiceName},
	})
}

func newZipkinExporter(cfg *config.TracingConfig) (trace.Exporter, error) {
	if cfg.ZipkinEndpoint == "" {
		return nil, errors.New("zipkin endpoint is required")
	}
	return zipkin.NewExporter(zipkinhttp.NewReporter(cfg.ZipkinEndpoint), nil), nil
}

func newXRayExporter(cfg *config.TracingConfig) (trace.Exporter, error) {
	if cfg.XRayRegion == "" {
		return nil, errors.New("AWS region is required for X-Ray")
	}
	return aws.NewExporter(aws.WithRegion(cfg.XRayRegion), aws.WithVersion("latest"))
}

func newStackdriverExporter(cfg *config.TracingConfig, log logger.Logger) (*stackdriver.Exporter, error) {
	if cfg.StackdriverProjectID == "" {
		return nil, errors.New("stackdriver project ID is required")
	}
	opts := stackdriver.Options{
		ProjectID:    cfg.StackdriverProjectID,
		MetricPrefix: cfg.ServiceName,
	}
	if log != nil {
		opts.OnError = func(err error) {
			log.WithField("error", err.Error()).Warn("Stackdriver exporter error")
		}
	}
	return stackdriver.NewExporter(opts)
}

func newDatadogExporter(cfg *config.TracingConfig, log logger.Logger) (*datadog.Exporter, error) {
	if cfg.DatadogAgentAddress == "" {
		return nil, errors.New("datadog agent address is required")
	}
	opts := datadog.Options{
		Service:   cfg.ServiceName,
		TraceAddr: cfg.DatadogAgentAddress,
		StatsAddr: cfg.DatadogAgentAddress,
	}
	if cfg.DatadogAPIKey != "" {
		opts.GlobalTags = map[string]interface{}{"api_key": cfg.DatadogAPIKey}
	}
	if log != nil {
		opts.OnError = func(err error) {
			log.WithField("error", err.Error()).Warn("Datadog exporter error")
		}
	}
	return datadog.NewExporter(opts)
}

// newPrometheusExporter also serves /metrics on its own port when one is configured
func newPrometheusExporter(cfg *config.TracingConfig, log logger.Logger) (view.Exporter, error) {
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: strings.ReplaceAll(cfg.ServiceName, "-", "_"),
		OnError: func(err error) {
			log.WithField("error", err.Error()).Warn("Prometheus exporter error")
		},
	})
	if err != nil {
		return nil, err
	}

	if cfg.PrometheusPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", pe)
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithField("error", err.Error()).Error("Prometheus metrics server stopped")
			}
		}()
	}
	return pe, nil
}

// codecov:ignore:end
