package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var ErrOutsideRoot = errors.New("path escapes data directory")

// BaseDirectories is the fixed layout created at startup, relative to the data root.
var BaseDirectories = []string{
	"config_files/overall_config_settings",
	"config_files/trial_files",
	"config_files/pipeline_json_files",
	"config_files/prompt_settings",
	"config_files/other_config_files",
	"results_dir/llm_summarization",
	"results_dir/matching",
	"results_dir/llm_extracted_features",
	"results_dir/evaluation",
	"documents/ocr",
	"documents/pdfs",
	"snapshots",
}

// FileStore reads and writes whole files under a single data root. Paths passed
// to its methods are slash-separated and relative to that root.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: filepath.Clean(root)}
}

func (s *FileStore) Root() string {
	return s.root
}

// Abs resolves a relative path against the root.
func (s *FileStore) Abs(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *FileStore) Exists(rel string) bool {
	full, err := s.Abs(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (s *FileStore) ReadFile(rel string) ([]byte, error) {
	full, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

// ReadJSON decodes the file into v. A missing file wraps os.ErrNotExist.
func (s *FileStore) ReadJSON(rel string, v interface{}) error {
	data, err := s.ReadFile(rel)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", rel, err)
	}
	return nil
}

// WriteJSON replaces the file atomically: the payload goes to a temp file in the
// target directory and is then renamed over the destination.
func (s *FileStore) WriteJSON(rel string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", rel, err)
	}
	return s.WriteFile(rel, data)
}

func (s *FileStore) WriteFile(rel string, data []byte) error {
	full, err := s.Abs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing %s: %w", rel, err)
	}
	return nil
}

// ListFiles returns the sorted names of regular files in dir ending with suffix.
// A missing directory yields an empty list.
func (s *FileStore) ListFiles(dir, suffix string) ([]string, error) {
	full, err := s.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		full, err := s.Abs(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(full, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

func (s *FileStore) EnsureBaseDirectories() error {
	return s.EnsureDirectories(BaseDirectories...)
}

func (s *FileStore) ModifiedTime(rel string) (time.Time, bool) {
	full, err := s.Abs(rel)
	if err != nil {
		return time.Time{}, false
	}
	info, err := os.Stat(full)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func (s *FileStore) Copy(src, dst string) error {
	data, err := s.ReadFile(src)
	if err != nil {
		return err
	}
	return s.WriteFile(dst, data)
}

// ReadCSV parses a headered CSV into one map per row keyed by column name.
func (s *FileStore) ReadCSV(rel string) ([]map[string]string, error) {
	full, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", rel, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", rel, err)
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *FileStore) WriteCSV(rel string, header []string, rows [][]string) error {
	var b strings.Builder
	writer := csv.NewWriter(&b)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return s.WriteFile(rel, []byte(b.String()))
}
