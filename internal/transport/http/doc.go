// Package http exposes the analysis service over HTTP.
//
// Logs are accepted as a multipart upload (field "file"), as a raw CSV or
// xlsx body, or as JSON rows. Options come from query parameters or form
// fields: schema, threshold, high_temp and lot. Errors are RFC 7807
// problem documents.
package http
