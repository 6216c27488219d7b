// Package errors defines the application error types and renders them as
// RFC 7807 problem details.
//
// AppError carries an ErrorType for failures inside the application
// (unreadable input, source or storage failures). APIError carries an HTTP
// status for request-level rejections. ErrorHandler maps both, plus
// *fermentation.SchemaError and context cancellation, to ProblemDetails.
//
// A schema failure renders as:
//
//	{
//	  "type": "/errors/schema",
//	  "title": "Missing Required Columns",
//	  "status": 422,
//	  "schema": "minimal",
//	  "missing_columns": ["brix", "ph"]
//	}
package errors
