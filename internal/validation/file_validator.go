// Package validation checks filesystem inputs and outputs before the
// pipeline touches them: the code file handed to the CLI, uploaded file
// names and the directory report artifacts are written to.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// codeFileExtensions are the accepted extensions for a SIC code list.
var codeFileExtensions = map[string]bool{
	".csv": true,
	".txt": true,
}

// FileValidator validates input files and output directories.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// ValidateCodeFile checks that path points to a readable code list with
// an accepted extension.
func (v *FileValidator) ValidateCodeFile(path string) error {
	if err := v.validateFile(path); err != nil {
		return err
	}
	if err := v.ValidateCodeFileName(path); err != nil {
		return err
	}
	return nil
}

// ValidateCodeFileName checks only the file name, for uploads where the
// content arrives as a stream rather than a path.
func (v *FileValidator) ValidateCodeFileName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !codeFileExtensions[ext] {
		v.logger.Warn("rejected code file extension",
			slog.String("file", name),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a code list (want .csv or .txt, got %q)", filepath.Base(name), ext)
	}
	return nil
}

// ValidateOutputDirectory ensures the directory exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)
	return nil
}

func (v *FileValidator) validateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("code file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}
