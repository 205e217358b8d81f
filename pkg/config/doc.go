// Package config loads the agent configuration for jbossfacts.
//
// The configuration covers how facts are printed, where the fact history
// is kept and how telemetry behaves. It can be written in YAML or CUE; the
// format is picked from the file extension. CUE files are unified with a
// built-in schema before decoding, and every configuration is checked with
// struct validation afterwards.
//
// The instance directory is not configurable and has no key here.
//
// Example (YAML):
//
//	target_id: app01.example.com
//	output:
//	  format: json
//	store:
//	  enabled: true
//	  path: /var/lib/jbossfacts/facts.db
//	  ttl: 24h
//	telemetry:
//	  logging:
//	    level: warn
//
// The LOG_LEVEL environment variable, when set, overrides
// telemetry.logging.level.
package config
