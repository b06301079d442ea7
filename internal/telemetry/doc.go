// Package telemetry manages the OpenTelemetry provider lifecycle.
//
// Providers export over OTLP (gRPC by default, http/protobuf optionally).
// Telemetry failures never crash the process; a failed provider leaves the
// instance degraded and instrumented code falls through to the global no-op
// providers.
package telemetry
