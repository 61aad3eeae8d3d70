// Package otel exposes engine counters through an OpenTelemetry meter.
package otel
