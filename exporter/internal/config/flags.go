package config

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"
)

// Environment variables consulted before flags.
const (
	EnvPort              = "GATLING_EXPORTER_PORT"
	EnvSimulationLogPath = "GATLING_EXPORTER_SIMULATION_LOG_PATH"
	EnvBufferLen         = "GATLING_EXPORTER_BUFFER_LEN"
	EnvLogLevel          = "GATLING_EXPORTER_LOG_LEVEL"
)

// Options is the result of Parse.
type Options struct {
	Config      *Config
	ConfigPath  string
	ShowVersion bool
	// LevelPinned is set when the log level came from the environment or a
	// flag. Those layers outrank the file, so reloads must not change it.
	LevelPinned bool
}

// ReloadLevel returns the level a reloaded file layer should apply, and
// false when the level is pinned by a higher layer.
func (o *Options) ReloadLevel(updated *Config) (slog.Level, bool) {
	if o.LevelPinned {
		return 0, false
	}
	return updated.Level(), true
}

// NewFlagSet returns the exporter's flag set.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "optional YAML config file, watched for log level changes")
	fs.IntP("port", "p", DefaultPort, "HTTP port for /metrics (env "+EnvPort+")")
	fs.String("listen-address", "", "interface to bind, empty for all")
	fs.StringP("simulation_log_path", "s", "", "glob matching exactly one simulation.log (env "+EnvSimulationLogPath+")")
	fs.Int("buffer_len", DefaultBufferLen, "lines buffered between scrapes, oldest dropped on overflow (env "+EnvBufferLen+")")
	fs.StringP("log-level", "l", DefaultLogLevel, "debug|info|warn|error or 10|20|30|40 (env "+EnvLogLevel+")")
	fs.BoolP("version", "v", false, "print version and exit")
	return fs
}

// Parse builds Options from args (without the program name) and the
// environment. A pflag.ErrHelp error means help was requested.
func Parse(args []string, lookupEnv func(string) (string, bool)) (*Options, error) {
	fs := NewFlagSet("gatling-exporter")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if extra := fs.Args(); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", extra[0])
	}

	opts := &Options{Config: defaults()}
	opts.ShowVersion, _ = fs.GetBool("version")
	if opts.ShowVersion {
		return opts, nil
	}

	opts.ConfigPath, _ = fs.GetString("config")
	if opts.ConfigPath != "" {
		if err := loadFile(opts.Config, opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(opts.Config, lookupEnv); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	applyFlags(opts.Config, fs)
	_, envLevel := lookupEnv(EnvLogLevel)
	opts.LevelPinned = envLevel || fs.Changed("log-level")

	if err := validate(opts.Config); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return opts, nil
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvPort); ok {
		n, err := atoi(EnvPort, v)
		if err != nil {
			return err
		}
		cfg.Port = n
	}
	if v, ok := lookupEnv(EnvBufferLen); ok {
		n, err := atoi(EnvBufferLen, v)
		if err != nil {
			return err
		}
		cfg.BufferLen = n
	}
	if v, ok := lookupEnv(EnvSimulationLogPath); ok {
		cfg.SimulationLogPath = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	return nil
}

// applyFlags copies only the flags given on the command line.
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs.Changed("port") {
		cfg.Port, _ = fs.GetInt("port")
	}
	if fs.Changed("listen-address") {
		cfg.ListenAddress, _ = fs.GetString("listen-address")
	}
	if fs.Changed("simulation_log_path") {
		cfg.SimulationLogPath, _ = fs.GetString("simulation_log_path")
	}
	if fs.Changed("buffer_len") {
		cfg.BufferLen, _ = fs.GetInt("buffer_len")
	}
	if fs.Changed("log-level") {
		cfg.LogLevel, _ = fs.GetString("log-level")
	}
}
