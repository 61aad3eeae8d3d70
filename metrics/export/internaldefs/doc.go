// Package internaldefs holds the metric name catalog shared by the
// Prometheus and OTel exporters.
package internaldefs
