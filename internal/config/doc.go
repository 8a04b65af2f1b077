// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Values are resolved in increasing order of precedence:
//
//	1. Default() values
//	2. A YAML file: $KOI_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables
//
// # Environment Variables
//
// Every variable is prefixed with KOI_ and follows the nesting of Config:
//
//	KOI_SERVER_PORT=8080
//	KOI_BRIDGE_URL=ws://localhost:8000/eel
//	KOI_POLLING_TICKS=5s
//	KOI_LOGGING_LEVEL=debug
//	KOI_TELEMETRY_METRIC_EXPORTER=none
//
// # Validation
//
// Load rejects non-positive polling intervals, unknown exporters and ports
// outside 1-65535. Logging output falls back to console.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests start from config.Default() and override single fields.
package config
