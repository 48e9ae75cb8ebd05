// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/zhyyuka/xingling-chat/services/extract"
	"github.com/zhyyuka/xingling-chat/services/llm"
	"github.com/zhyyuka/xingling-chat/services/memory"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/config"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/observability"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/routes"
)

// initTracer sets up the OTLP trace exporter when a collector endpoint
// is configured. Without one, tracing stays on the no-op provider.
func initTracer() (func(context.Context), error) {
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		return func(context.Context) {}, nil
	}

	ctx := context.Background()
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("xingling-chat")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.APIKey == "" {
		slog.Warn("DEEPSEEK_API_KEY not set; requests must carry their own api_key")
	}

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	store, err := memory.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open the session store: %v", err)
	}
	slog.Info("Session store ready", "dir", store.Dir())

	engine := memory.NewEngine(store, memory.NewWebSearcher(), llm.NewClient, memory.Defaults{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
	})

	router := gin.Default()
	router.Use(otelgin.Middleware("xingling-chat"))
	routes.SetupRoutes(router, engine, extract.NewFileExtractor(), cfg.AllowedOrigin)

	slog.Info("Starting the chat server", "port", cfg.Port, "model", cfg.Model)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
