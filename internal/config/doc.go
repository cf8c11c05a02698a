// Package config loads the configuration of the ΔΔCt CLI and server.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources overriding earlier ones:
//
//	1. Default()
//	2. a YAML file: $DDCT_CONFIG_FILE, else config.yaml or configs/config.yaml
//	3. environment variables prefixed DDCT_
//
// Only keys present in the file and variables that are actually set take
// effect, so a partial file or a single variable never resets other fields.
//
// # Environment Variables
//
//	DDCT_SERVER_PORT=8080
//	DDCT_LOGGING_LEVEL=debug
//	DDCT_ANALYSIS_CONTROL_PATTERN=^CTR
//	DDCT_ANALYSIS_REFERENCE_PATTERN=ACTB|B[-_ ]?ACTIN
//	DDCT_ANALYSIS_OUTLIER_METHOD=iqr
//	DDCT_TELEMETRY_TRACES_ENABLED=true
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts, err := cfg.Analysis.Options()
package config
