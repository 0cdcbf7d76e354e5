// Package observability provides structured logging and Prometheus metrics
// for the vector-cv service.
//
// This package implements:
//   - zap logger construction from LOG_LEVEL and LOG_FORMAT
//   - log field helpers that truncate long payloads such as job text
//   - a Prometheus collector for HTTP traffic, block selection and generation
//
// The collector owns its registry so tests can build as many as they need.
package observability
