// Package config loads and validates fermcli configuration.
//
// # Sources
//
// Values are layered in increasing order of precedence:
//
//	1. Default()
//	2. A YAML file: $FERM_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables prefixed with FERM_
//
// Nested sections map to underscore-joined names:
//
//	FERM_SERVER_PORT=9090
//	FERM_ANALYSIS_RAPID_DROP_THRESHOLD=6.5
//	FERM_ANALYSIS_SCHEMA=extended
//	FERM_SHEETS_ENABLED=true
//	FERM_SHEETS_CREDENTIALS_FILE=/etc/fermcli/sa.json
//
// # Validation
//
// Struct tags are checked with go-playground/validator after all sources are
// merged. Load fails on the first invalid configuration rather than silently
// substituting defaults.
//
// # Paths
//
// NewPaths resolves the data, output and logs directories against a base
// directory. Outputs go to outputs/ and the default input is
// sample_data/sample_log.csv.
package config
