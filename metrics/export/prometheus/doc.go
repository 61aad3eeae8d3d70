// Package prometheus exposes engine counters in Prometheus text exposition
// format without taking a client library dependency.
package prometheus
