// Command typeforge compiles API documents (OpenAPI 3.x, Swagger 2.0,
// Postman collections, Apifox exports) into a typed TypeScript client
// bundle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/typeforge/typeforge/configs"
	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/adapter/apifox"
	"github.com/typeforge/typeforge/internal/adapter/openapi"
	"github.com/typeforge/typeforge/internal/adapter/postman"
	"github.com/typeforge/typeforge/internal/adapter/swagger"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
	"github.com/typeforge/typeforge/internal/generate"
	"github.com/typeforge/typeforge/internal/pipeline"
	"github.com/typeforge/typeforge/internal/writer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "typeforge",
		Short:         "Compile API documents into typed TypeScript clients",
		Long:          "typeforge ingests OpenAPI, Swagger, Postman, and Apifox documents and emits a typed TypeScript HTTP client bundle.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newGenerateCmd())
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fetch configured sources and write the client bundle",
		Example: `  typeforge generate --source https://petstore.example.com/openapi.json --out ./client
  TYPEFORGE_CONFIG_FILE=typeforge.yaml typeforge generate`,
		RunE: runGenerate,
	}

	flags := cmd.Flags()
	flags.StringSlice("source", nil, "Document URL or local path (repeatable; adds to configured sources)")
	flags.String("out", "", "Output directory for the generated bundle")
	flags.String("prefer", "", "Adapter to try first (openapi|swagger|postman|apifox)")
	flags.String("primary", "", "Source name or type promoted to primary document")
	flags.String("extension", "", "Generated file extension (default .ts)")
	flags.String("entry", "", "Entry file base name (default index)")
	flags.Bool("clean", false, "Remove the output directory before writing")
	flags.Bool("continue-on-error", true, "Keep going when an individual source fails")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := configs.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}))
	slog.SetDefault(logger)

	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shut down OpenTelemetry provider.", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	fetcher := fetch.NewFetcher(httpClient, logger)
	registry := adapter.NewRegistry(
		openapi.NewAdapter(fetcher, logger),
		swagger.NewAdapter(fetcher, logger),
		postman.NewAdapter(fetcher, logger),
		apifox.NewAdapter(fetcher, logger),
	)

	clean := cfg.Clean != nil && *cfg.Clean
	p := pipeline.New(registry, fetcher, generate.NewGenerator(logger), writer.New(clean, logger), logger)
	if cfg.OtelExporterOtlpEndpoint != "" {
		p.Use(pipeline.NewTracingInterceptor())
	}

	rc, err := p.Run(ctx, pipeline.RunParams{
		Sources:         cfg.SourceConfigs(),
		Prefer:          domain.SourceKind(cfg.Prefer),
		Primary:         cfg.Primary,
		ContinueOnError: cfg.ContinueOnError,
		Generate: generate.Options{
			Extension: cfg.Extension,
			EntryName: cfg.EntryName,
		},
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		return err
	}

	for _, srcErr := range rc.SourceErrors {
		logger.Warn("Source skipped.",
			slog.String("source", srcErr.Source),
			slog.Any("error", srcErr.Err))
	}
	logger.Info("Client bundle written.",
		slog.String("dir", cfg.OutputDir),
		slog.Int("file_count", len(rc.Bundle.Files)),
		slog.Int("skipped_sources", len(rc.SourceErrors)))
	return nil
}

// applyFlagOverrides lets explicit CLI flags win over file and env settings.
func applyFlagOverrides(cmd *cobra.Command, cfg *configs.Config) error {
	flags := cmd.Flags()

	if flags.Changed("source") {
		urls, err := flags.GetStringSlice("source")
		if err != nil {
			return err
		}
		for _, u := range urls {
			cfg.Sources = append(cfg.Sources, configs.SourceEntry{URL: u})
		}
	}
	for flag, target := range map[string]*string{
		"out":       &cfg.OutputDir,
		"prefer":    &cfg.Prefer,
		"primary":   &cfg.Primary,
		"extension": &cfg.Extension,
		"entry":     &cfg.EntryName,
	} {
		if !flags.Changed(flag) {
			continue
		}
		value, err := flags.GetString(flag)
		if err != nil {
			return err
		}
		*target = value
	}

	if flags.Changed("clean") {
		clean, err := flags.GetBool("clean")
		if err != nil {
			return err
		}
		cfg.Clean = &clean
	}
	if flags.Changed("continue-on-error") {
		keep, err := flags.GetBool("continue-on-error")
		if err != nil {
			return err
		}
		cfg.ContinueOnError = &keep
	}
	return nil
}

// initOtelProvider initializes the OpenTelemetry SDK with an OTLP trace
// exporter. It returns a shutdown function to call on exit. Tracing is
// disabled (no-op shutdown) when no endpoint is configured.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("typeforge"),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
