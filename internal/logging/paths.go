package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.equipsearch/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".equipsearch", "logs")
	}
	return filepath.Join(home, ".equipsearch", "logs")
}

// DefaultLogPath returns the default search server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// BuildLogPath returns the log path used by the offline dataset/index build
// commands, kept separate from the server log so a long-running `serve`
// process and a one-shot `build-index` run don't interleave in one file.
func BuildLogPath() string {
	return filepath.Join(DefaultLogDir(), "build.log")
}

// LogSource represents which log file a viewer should read.
type LogSource string

const (
	// LogSourceServer is the `serve` process log (default).
	LogSourceServer LogSource = "server"
	// LogSourceBuild is the dataset/index build log.
	LogSourceBuild LogSource = "build"
	// LogSourceAll combines all log sources.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.equipsearch/logs/server.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Server may not have run with --debug yet.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	var paths []string
	var checked []string

	switch source {
	case LogSourceServer:
		p := DefaultLogPath()
		checked = append(checked, p)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}

	case LogSourceBuild:
		p := BuildLogPath()
		checked = append(checked, p)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}

	case LogSourceAll:
		serverPath := DefaultLogPath()
		buildPath := BuildLogPath()
		checked = append(checked, serverPath, buildPath)

		if _, err := os.Stat(serverPath); err == nil {
			paths = append(paths, serverPath)
		}
		if _, err := os.Stat(buildPath); err == nil {
			paths = append(paths, buildPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: server, build, all)", source)
	}

	if len(paths) == 0 {
		hint := getLogHint(source)
		return nil, fmt.Errorf("no log files found for source '%s'.\nChecked: %v\n\n%s", source, checked, hint)
	}

	return paths, nil
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	switch s {
	case "build":
		return LogSourceBuild
	case "all":
		return LogSourceAll
	default:
		return LogSourceServer
	}
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs for the given source.
func getLogHint(source LogSource) string {
	switch source {
	case LogSourceServer:
		return "To generate server logs:\n  equipsearch --debug serve"
	case LogSourceBuild:
		return "To generate build logs:\n  equipsearch --debug build-index"
	case LogSourceAll:
		return "To generate logs:\n  equipsearch --debug serve\n  equipsearch --debug build-index"
	default:
		return ""
	}
}
