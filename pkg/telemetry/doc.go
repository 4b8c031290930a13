// Package telemetry provides observability instrumentation for Loadout.
//
// The telemetry package integrates structured logging (zerolog), tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified
// system for monitoring and debugging the configuration pipeline.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Tracing - OpenTelemetry traces over the assembly pipeline
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation. Pipeline components take a plain zerolog.Logger in their
// constructors; use Zerolog to hand one down:
//
//	logger := tel.Logger.NewComponentLogger("assembler")
//	logger = logger.WithProfile("dev").WithModule("tool-filesystem")
//	logger.Info("Compiling profile")
//	logger.WithError(err).Error("Profile failed to load")
//
//	store := scope.NewStore(home, work, tel.Logger.Zerolog())
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Tracing
//
// Tracing provides visibility into assembly flow and performance:
//
//	ctx, span := tel.Tracer.StartAssembleSpan(ctx, profileName)
//	defer span.End()
//
//	span.SetAttributes(
//	    telemetry.AttrProfileOrigin.String(origin),
//	)
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: stdout (debugging), none (traces generated but not
// exported).
//
// # Metrics
//
// Prometheus metrics track pipeline behavior and performance:
//
//	tel.Metrics.RecordAssembly("ok", duration)
//	tel.Metrics.RecordProfileLoad("project", "ok")
//	tel.Metrics.RecordResolution("scope-local")
//	tel.Metrics.RecordError("not_found")
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics) when
// enabled, which only makes sense for long-running watch mode.
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	tel.Events.PublishPlanAssembled(profileName, moduleCount, duration)
//	tel.Events.PublishModuleResolved(moduleID, layer, source)
//	tel.Events.PublishWatchTriggered(path, op)
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByProfile, FilterByModule
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	// Instrument an operation
//	ic := telemetry.StartOperation(ctx, "profile.compile",
//	    telemetry.AttrProfileName.String(name))
//	defer ic.End(err)
//
//	ic.Logger.Info("Compiling profile")
//
//	// Assembly context
//	ctx = telemetry.WithAssembleContext(ctx, profileName)
//	defer telemetry.EndAssembleContext(ctx, profileName, moduleCount, degraded, err)
//
//	// Module resolution
//	err := telemetry.RecordResolveOperation(ctx, moduleID, func() (string, error) {
//	    src, layer, err := resolver.ResolveWithLayer(moduleID)
//	    return layer, err
//	})
//
// # Configuration
//
// The package provides pre-configured setups for the two operating modes:
//
//	// Interactive debugging (verbose logging, stdout traces, local metrics)
//	cfg := telemetry.DebugConfig()
//
//	// Long-running watch mode (JSON logs, sampling, metrics endpoint)
//	cfg := telemetry.DaemonConfig()
//
// The default configuration keeps tracing and metrics off, which fits
// short-lived CLI invocations.
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
//
// This ensures all buffered events are published and all pending traces are
// exported.
//
// # Common Metrics
//
// Key metrics exposed:
//
//   - loadout_assemblies_total{status}
//   - loadout_assembly_duration_seconds{status}
//   - loadout_profile_loads_total{origin,status}
//   - loadout_profile_compiles_total{status}
//   - loadout_module_resolutions_total{layer}
//   - loadout_module_resolution_misses_total{module}
//   - loadout_scope_writes_total{scope}
//   - loadout_errors_by_class_total{class}
//   - loadout_watch_reloads_total{trigger}
//   - loadout_active_watchers
//
// # Security Considerations
//
//   - Never log sensitive data (credentials, keys, tokens)
//   - Environment placeholder expansion happens after config is logged, so
//     raw ${VAR} references are safe to log; expanded values are not
//   - Limit metrics endpoint access via network policies
package telemetry
