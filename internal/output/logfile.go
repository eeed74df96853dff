package output

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns the path to the log file.
// If DEPLOYIT_LOG_FILE is set, uses that path; "off" disables file logging.
// Otherwise, uses ~/.deployit/logs/deployit.log
func GetLogFilePath() string {
	if customPath := os.Getenv("DEPLOYIT_LOG_FILE"); customPath != "" {
		if customPath == "off" {
			return ""
		}
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "deployit.log"
	}

	return filepath.Join(homeDir, ".deployit", "logs", "deployit.log")
}
