package config

// configSchema constrains CUE configuration files. #Config is a definition,
// so it is closed: unknown keys are rejected. Fields are optional so that a
// file only needs to mention what it changes.
const configSchema = `
#Config: {
	target_id?: string & =~"^[^\\s]+$"

	output?: {
		format?: "facter" | "json" | "yaml"
	}

	store?: {
		enabled?: bool
		path?:    string
		ttl?:     string
	}

	telemetry?: {
		service_name?:    string
		service_version?: string
		environment?:     string
		logging?: {
			level?:         "trace" | "debug" | "info" | "warn" | "error" | "fatal"
			format?:        "console" | "json"
			output?:        string
			enable_caller?: bool
			time_format?:   "unix" | "unixms" | "rfc3339"
		}
		tracing?: {
			enabled?:        bool
			exporter?:       "otlp" | "stdout" | "none"
			endpoint?:       string
			sampling_rate?:  number & >=0 & <=1
			export_timeout?: string
			headers?: [string]: string
			insecure?: bool
		}
		metrics?: {
			enabled?:       bool
			namespace?:     string
			textfile_path?: string
			buckets?: [...number]
		}
	}
}
`
