package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/logging"
)

// homeEnv overrides the kscript home directory (default ~/.kscript).
const homeEnv = "KSCRIPT_HOME"

var (
	// logFileWriter holds the log file writer for cleanup during shutdown.
	logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup

	// logRotator is the lumberjack logger behind logFileWriter.
	logRotator *lumberjack.Logger //nolint:gochecknoglobals // Rotation is reconfigured after config load

	// zerologConfigOnce ensures zerolog global settings are configured exactly once.
	zerologConfigOnce sync.Once //nolint:gochecknoglobals // One-time configuration

	// zerologGlobalMu protects concurrent writes to the zerolog global logger.
	zerologGlobalMu sync.Mutex //nolint:gochecknoglobals // Protects zerolog global
)

// configureZerologGlobals sets the zerolog field names used in the log file.
func configureZerologGlobals() {
	zerologConfigOnce.Do(func() {
		zerolog.TimestampFieldName = "ts"
		zerolog.MessageFieldName = "event"
	})
}

// InitLogger creates the CLI logger.
//
// Log levels are set as follows:
//   - verbose=true: Debug level
//   - quiet=true: Warn level
//   - default: Info level
//
// Console output is human-readable on a TTY and JSON otherwise. The logger
// also writes JSON to ~/.kscript/logs/kscript.log with rotation and
// credential redaction. If the log file cannot be created, logging
// continues on the console only.
func InitLogger(verbose, quiet bool) zerolog.Logger {
	configureZerologGlobals()
	CloseLogFile()

	writer := selectOutput()
	if fileWriter, err := createLogFileWriter(); err == nil {
		logFileWriter = fileWriter
		writer = zerolog.MultiLevelWriter(writer, fileWriter)
	}

	logger := zerolog.New(writer).Level(selectLevel(verbose, quiet)).With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// InitLoggerWithWriter creates a logger writing only to w.
// This is primarily intended for testing purposes.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	configureZerologGlobals()
	logger := zerolog.New(w).Level(selectLevel(verbose, quiet)).With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// setGlobalLogger makes the zerolog/log package logger match the CLI logger.
func setGlobalLogger(cliLogger zerolog.Logger) {
	zerologGlobalMu.Lock()
	defer zerologGlobalMu.Unlock()
	log.Logger = cliLogger
}

// configureLogRotation applies the configured rotation size to the log file.
// It must be called before any background work starts logging.
func configureLogRotation(maxSizeMB int) {
	if logRotator != nil && maxSizeMB > 0 {
		logRotator.MaxSize = maxSizeMB
	}
}

// CloseLogFile closes the log file writer if it was opened.
func CloseLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
		logRotator = nil
	}
}

// selectLevel determines the log level from the verbosity flags.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput returns a console writer on a color-capable TTY and plain
// JSON on stderr otherwise.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// filteringWriteCloser redacts credentials before they reach the log file.
type filteringWriteCloser struct {
	filter *logging.FilteringWriter
	closer io.Closer
}

func (fwc *filteringWriteCloser) Write(p []byte) (int, error) {
	return fwc.filter.Write(p)
}

func (fwc *filteringWriteCloser) Close() error {
	return fwc.closer.Close()
}

// createLogFileWriter creates the rotating, filtered log file writer.
func createLogFileWriter() (io.WriteCloser, error) {
	path, err := LogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompress,
	}
	logRotator = lj

	return &filteringWriteCloser{
		filter: logging.NewFilteringWriter(lj),
		closer: lj,
	}, nil
}

// kscriptHome returns $KSCRIPT_HOME or ~/.kscript.
func kscriptHome() (string, error) {
	if home := os.Getenv(homeEnv); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, constants.KscriptHome), nil
}

// LogFilePath returns the path to the CLI log file.
func LogFilePath() (string, error) {
	home, err := kscriptHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.LogsDir, constants.CLILogFileName), nil
}
