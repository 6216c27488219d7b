// Package fermentation is the validation and anomaly-detection engine for
// fermentation logs.
//
// # Pipeline
//
// A run moves strictly forward through five stages:
//
//	RawTable → Normalize → Coerce → Partition → Detect → Summarize → Result
//
// Normalize trims and lower-cases headers and checks the active Schema's
// required columns, failing with *SchemaError before anything else runs.
// Coerce turns raw cells into typed values; unparsable cells become missing
// and rows missing a critical field are dropped. Partition groups the
// surviving records by lot and stable-sorts each lot by timestamp. The
// detection rules and the summarizer are pure functions over one LotSeries.
//
// # Usage
//
//	analyzer := fermentation.NewAnalyzer(logger)
//	result, err := analyzer.Analyze(ctx, table, fermentation.DefaultOptions())
//	var schemaErr *fermentation.SchemaError
//	if errors.As(err, &schemaErr) {
//	    // report schemaErr.Missing
//	}
//
// Lots that end up with no usable records are reported through
// Result.Warnings, never as an error.
package fermentation
