// Package files persists generated report artifacts under the reports
// directory, one subdirectory per run, and discovers what earlier runs
// produced.
package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sicreport/internal/config"
)

// Artifact describes one generated file on disk.
type Artifact struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// RunArtifacts groups the artifacts written for one run.
type RunArtifacts struct {
	RunID string     `json:"run_id"`
	Files []Artifact `json:"files"`
}

// Store writes and lists run artifacts below a base directory.
type Store struct {
	baseDir string
	logger  *slog.Logger
}

// NewStore creates an artifact store rooted at baseDir.
func NewStore(baseDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		baseDir: baseDir,
		logger:  logger.With(slog.String("component", "artifact_store")),
	}
}

// SaveRun writes the workbook and address CSV for a run into its own
// subdirectory. Either byte slice may be empty; empty artifacts are
// skipped.
func (s *Store) SaveRun(runID string, workbook, addressCSV []byte) error {
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", dir, err)
	}

	if len(workbook) > 0 {
		path := filepath.Join(dir, config.WorkbookFileName)
		if err := os.WriteFile(path, workbook, 0644); err != nil {
			return fmt.Errorf("failed to write workbook %s: %w", path, err)
		}
	}
	if len(addressCSV) > 0 {
		path := filepath.Join(dir, config.AddressCSVFileName)
		if err := os.WriteFile(path, addressCSV, 0644); err != nil {
			return fmt.Errorf("failed to write address CSV %s: %w", path, err)
		}
	}

	s.logger.Info("run artifacts saved",
		slog.String("run_id", runID),
		slog.String("dir", dir))
	return nil
}

// ListRuns returns the artifacts of every persisted run, newest first.
func (s *Store) ListRuns() ([]RunArtifacts, error) {
	entries, err := os.ReadDir(s.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory %s: %w", s.baseDir, err)
	}

	var runs []RunArtifacts
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		artifacts, err := s.runArtifacts(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable run directory",
				slog.String("run_id", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if len(artifacts) == 0 {
			continue
		}
		runs = append(runs, RunArtifacts{RunID: entry.Name(), Files: artifacts})
	}

	sort.Slice(runs, func(i, j int) bool {
		return latestModTime(runs[i]).After(latestModTime(runs[j]))
	})
	return runs, nil
}

func (s *Store) runArtifacts(runID string) ([]Artifact, error) {
	dir := filepath.Join(s.baseDir, runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".csv" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return artifacts, nil
}

func latestModTime(run RunArtifacts) time.Time {
	var latest time.Time
	for _, f := range run.Files {
		if f.ModTime.After(latest) {
			latest = f.ModTime
		}
	}
	return latest
}

// Latest returns the most recently written run from a list.
func Latest(runs []RunArtifacts) (RunArtifacts, bool) {
	if len(runs) == 0 {
		return RunArtifacts{}, false
	}
	latest := runs[0]
	for _, run := range runs[1:] {
		if latestModTime(run).After(latestModTime(latest)) {
			latest = run
		}
	}
	return latest, true
}
