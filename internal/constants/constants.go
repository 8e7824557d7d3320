// Package constants provides centralized constant values used throughout kscript.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// File names used for state persistence.
const (
	// ProcessFileName is the name of the JSON file that stores a process record
	// inside its process directory.
	ProcessFileName = "process.json"

	// MetadataFileName is the name of the YAML file that stores the metadata
	// entries of a process.
	MetadataFileName = "meta.yaml"

	// CatalogFileName is the name of the YAML file that stores projects and roles.
	CatalogFileName = "catalog.yaml"

	// LockFileName is the name of the lock file guarding a process directory.
	LockFileName = ".lock"
)

// Directory names and paths used by kscript for organizing data.
const (
	// KscriptHome is the hidden directory name where kscript keeps configuration and logs.
	KscriptHome = ".kscript"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// DefaultDataDir is the data directory used when none is configured.
	// Each process owns the subdirectory named after its numeric ID.
	DefaultDataDir = "data"
)

// Defaults for background jobs.
const (
	// DefaultMaxWorkers is the number of jobs allowed to run at the same time.
	DefaultMaxWorkers = 2

	// DefaultStopTimeout bounds how long shutdown waits for stopped jobs to exit.
	DefaultStopTimeout = 10 * time.Second

	// DefaultRunTimeout bounds how long `run --wait` blocks on submitted jobs.
	DefaultRunTimeout = 30 * time.Minute
)

// Defaults for derivative images and search.
const (
	// DefaultJPEGQuality is the encoder quality for generated derivatives.
	DefaultJPEGQuality = 90

	// DefaultImageWidth is used for a derivative folder without scale or width.
	DefaultImageWidth = 150

	// DefaultRefreshInterval is how often the metadata index applies pending updates.
	DefaultRefreshInterval = time.Second
)

// Log rotation settings.
const (
	// LogMaxSizeMB is the size at which the CLI log file is rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated log files to keep.
	LogMaxBackups = 3

	// LogMaxAgeDays is the number of days rotated log files are retained.
	LogMaxAgeDays = 28

	// LogCompress controls whether rotated log files are gzip compressed.
	LogCompress = true
)

// ProcessTitlePlaceholder is substituted with the process title in folder paths.
const ProcessTitlePlaceholder = "(processtitle)"

// SchemaVersion is the current version of the process JSON schema.
const SchemaVersion = "1.0"
