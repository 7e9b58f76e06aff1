package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
)

// JSONStore reads and writes files under Root, e.g. "data/raw".
type JSONStore struct {
	Root string
}

func NewJSONStore(root string) *JSONStore {
	return &JSONStore{Root: root}
}

func (s *JSONStore) Path(rel string) string {
	return filepath.Join(s.Root, rel)
}

func (s *JSONStore) Exists(rel string) bool {
	_, err := os.Stat(s.Path(rel))
	return err == nil
}

// WriteRaw writes body to rel, creating parent directories. With pretty set,
// valid JSON is re-indented; anything else is written as is.
func (s *JSONStore) WriteRaw(rel string, body []byte, pretty bool) error {
	path := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if pretty && json.Valid(body) {
		buf := &bytes.Buffer{}
		if err := json.Indent(buf, body, "", "  "); err == nil {
			buf.WriteByte('\n')
			body = buf.Bytes()
		}
	}

	return os.WriteFile(path, body, 0o644)
}

func (s *JSONStore) ReadRaw(rel string) ([]byte, error) {
	b, err := os.ReadFile(s.Path(rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return b, err
}

// Glob returns the root-relative paths matching pattern, sorted.
func (s *JSONStore) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(s.Path(pattern))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(s.Root, m)
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out, nil
}
