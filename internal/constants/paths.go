package constants

// Log file names.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.kscript/logs/kscript.log
	CLILogFileName = "kscript.log"
)

// Configuration file names.
const (
	// ConfigFileName is the name of both the global and the project configuration file.
	ConfigFileName = "config.yaml"

	// EnvPrefix is the prefix for environment variable overrides (KSCRIPT_DATA_DIR, ...).
	EnvPrefix = "KSCRIPT"
)
