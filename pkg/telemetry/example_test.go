package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/loadout-sh/loadout/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	// Create configuration
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"

	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Add telemetry to context
	ctx := tel.WithContext(context.Background())

	// Use telemetry
	logger := telemetry.FromContext(ctx)
	logger.Info("Assembling plan")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DebugConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("profile-loader")

	// Add context fields
	logger = logger.WithProfile("dev").WithModule("tool-filesystem")

	// Log at different levels
	logger.Debug("Resolving inheritance chain")
	logger.Info("Profile loaded")
	logger.Warn("Extends target shadowed by a higher-precedence directory")

	// Log with error
	err := fmt.Errorf("front matter is not valid YAML")
	logger.WithError(err).Error("Profile failed to parse")

	// Output varies, no output specified
}

// Example_tracing demonstrates tracing over the assembly pipeline.
func Example_tracing() {
	cfg := telemetry.DebugConfig()
	cfg.Tracing.Exporter = "none"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start an assembly span
	ctx, span := tel.Tracer.StartAssembleSpan(ctx, "dev")
	defer span.End()

	// Nested resolution span
	_, child := tel.Tracer.StartResolveSpan(ctx, "provider-anthropic")
	child.SetAttributes(telemetry.AttrLayer.String("scope-global"))
	telemetry.RecordSuccess(child)
	child.End()

	telemetry.RecordSuccess(span)

	// Output varies, no output specified
}

// Example_metrics demonstrates recording pipeline metrics.
func Example_metrics() {
	cfg := telemetry.DaemonConfig()
	cfg.Metrics.ListenAddress = ":0"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	timer := telemetry.NewTimer()

	tel.Metrics.RecordProfileLoad("project", "ok")
	tel.Metrics.RecordResolution("env-override")
	tel.Metrics.RecordAssembly("ok", timer.Duration())

	// Output varies, no output specified
}

// Example_events demonstrates the event publishing system.
func Example_events() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe to warning-and-above events
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, telemetry.FilterByLevel("warning"))

	// Publish events
	_ = tel.Events.PublishPlanAssembled("dev", 6, 20*time.Millisecond)
	_ = tel.Events.PublishPlanDegraded("dev", "profile not found")

	// Delivery is asynchronous per subscriber, no output specified
}

// Example_instrumentedOperation demonstrates the StartOperation helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DefaultConfig()

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "profile.compile",
		telemetry.AttrProfileName.String("dev"))

	ic.Logger.Info("Compiling profile")

	var err error // result of the compile
	ic.End(err)

	// Output varies, no output specified
}
