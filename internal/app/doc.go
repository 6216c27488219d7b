// Package app wires the fermcli web service together: configuration,
// logging, telemetry, services, middleware and routes.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config file and FERM_* environment
//	2. Initialize logging and OpenTelemetry
//	3. Resolve paths and create the output and logs directories
//	4. Initialize services with their dependencies
//	5. Set up the router and the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests and
// flushes telemetry. The package never calls os.Exit.
package app
