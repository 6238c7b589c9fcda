// Package observability owns process metrics and HTTP request instrumentation.
package observability
