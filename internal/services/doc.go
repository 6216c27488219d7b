// Package services sits between the transports (CLI and HTTP) and the
// fermentation pipeline. It resolves per-request options against the
// configured defaults, loads the input source, runs the analyzer and
// records metrics for each run.
//
// Services hold no per-request state and are safe for concurrent use.
package services
