// Package exporter writes analysis results as CSV tables and as an xlsx
// workbook. CSV files carry a UTF-8 BOM so spreadsheet applications detect
// the encoding.
package exporter
