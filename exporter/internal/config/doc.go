// Package config builds the exporter configuration from, in increasing
// precedence: built-in defaults, an optional YAML file, GATLING_EXPORTER_*
// environment variables and command-line flags.
//
// Top-level types:
//   - Config — port, listen_address, metrics_path, simulation_log_path,
//     buffer_len, log_level, poll_interval
//   - Options — the parsed Config plus the config file path and --version
//
// Load(path) reads the YAML file on top of the defaults (9102 port, 30000
// line buffer, info level, 1s poll). Parse(args, lookupEnv) layers env and
// flags on top and validates the result.
//
// ResolveLogPath expands the simulation log glob and insists on exactly one
// match.
//
// Watch(ctx, path, onChange) uses fsnotify to reload the YAML file when it
// changes; only the log level is applied at runtime.
package config
