package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	historyDir   = "dice_scores"
	clicksSuffix = "_clicks.json"
)

// FileStore keeps episode outputs as JSON files under a directory:
// <dir>/<sample>_clicks.json and <dir>/dice_scores/<sample>.json
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory
func (s *FileStore) Dir() string {
	return s.dir
}

// ClicksPath returns the click record path of a sample
func (s *FileStore) ClicksPath(sampleID string) string {
	return filepath.Join(s.dir, sampleID+clicksSuffix)
}

// HistoryPath returns the metric history path of a sample
func (s *FileStore) HistoryPath(sampleID string) string {
	return filepath.Join(s.dir, historyDir, sampleID+".json")
}

// SaveClicks writes the click record of a sample
func (s *FileStore) SaveClicks(sampleID string, rec ClickRecord) error {
	return writeJSON(s.ClicksPath(sampleID), rec)
}

// LoadClicks reads the click record of a sample
func (s *FileStore) LoadClicks(sampleID string) (map[string][][]int, error) {
	return ReadClickRecord(s.ClicksPath(sampleID))
}

// ReadClickRecord reads a click record file
func ReadClickRecord(path string) (ClickRecord, error) {
	var rec ClickRecord
	if err := readJSON(path, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%s: empty record: %w", path, ErrMalformed)
	}
	return rec, nil
}

// SaveHistory writes the metric history of a sample
func (s *FileStore) SaveHistory(sampleID string, history []float64) error {
	if history == nil {
		history = []float64{}
	}
	return writeJSON(s.HistoryPath(sampleID), history)
}

// LoadHistory reads the metric history of a sample
func (s *FileStore) LoadHistory(sampleID string) ([]float64, error) {
	var history []float64
	if err := readJSON(s.HistoryPath(sampleID), &history); err != nil {
		return nil, err
	}
	return history, nil
}

// ListHistory returns the sample ids with a stored history, sorted
func (s *FileStore) ListHistory() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, historyDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list histories: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
	}
	return nil
}
