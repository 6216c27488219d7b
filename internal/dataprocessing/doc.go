// Package dataprocessing turns fermentation logs into raw tables.
//
// Three inputs are supported: CSV files or streams, Excel workbooks read
// with excelize, and Google Sheets ranges fetched through the Sheets v4 API.
// Every reader returns a fermentation.RawTable whose Columns is the header
// row exactly as written; header normalization is left to the engine.
//
// Failures are reported as *errors.AppError with type PARSING for unreadable
// input, SOURCE for remote fetch failures and CONFIG for missing credentials.
package dataprocessing
