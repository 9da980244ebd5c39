package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known artifact file names.
const (
	WorkbookFileName   = "Company_Data.xlsx"
	AddressCSVFileName = "Active_Addresses.csv"
)

// Paths is the single source of truth for the application's file system
// layout. All paths derive from the configured data and logs directories.
type Paths struct {
	DataDir    string
	ReportsDir string
	UploadsDir string
	LogsDir    string
}

// NewPaths builds the path layout from configuration.
func NewPaths(cfg PathsConfig) *Paths {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = "logs"
	}
	return &Paths{
		DataDir:    dataDir,
		ReportsDir: filepath.Join(dataDir, "reports"),
		UploadsDir: filepath.Join(dataDir, "uploads"),
		LogsDir:    logsDir,
	}
}

// EnsureDirectories creates the directory tree if it does not exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.UploadsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the full path of a file in the reports directory.
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetUploadPath returns the full path of a file in the uploads directory.
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetLogPath returns the full path of a file in the logs directory.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}
