// Package telemetry provides observability for jbossfacts.
//
// It combines structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus) behind a single Telemetry value that travels in a
// context.Context.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Operations
//
// StartOperation opens a span, derives a logger carrying the trace and span
// IDs, and starts a timer:
//
//	op := telemetry.StartOperation(ctx, "jboss.scan", telemetry.AttrScanRoot.String(root))
//	defer op.End(err)
//	op.Logger.Debug("Scanning")
//
// When the context carries no Telemetry, StartOperation degrades to the
// global zerolog logger and no span.
//
// # Metrics
//
// Fact collection is a short-lived process run by a configuration management
// agent, so metrics are never served over HTTP. Set MetricsConfig.TextfilePath
// to have Shutdown write them for the node_exporter textfile collector.
package telemetry
