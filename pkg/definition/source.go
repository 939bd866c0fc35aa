package definition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"
	"unicode"
)

// Document is the raw content of a definition source.
type Document struct {
	Key     string
	Name    string
	Data    []byte
	ModTime time.Time
}

// Source resolves definition documents by key. Implementations return an error matching
// ErrConfigurationNotFound when the key does not exist.
type Source interface {
	Open(ctx context.Context, key string) (*Document, error)
	ModTime(ctx context.Context, key string) (time.Time, error)
}

var extensions = []string{".yml", ".yaml", ".json"}

// FSSource reads documents named <key>.yml, <key>.yaml or <key>.json from a directory of an fs.FS.
type FSSource struct {
	fsys fs.FS
	dir  string
	kind string
}

// NewFSSource creates a source over dir inside fsys. kind names the documents in errors.
func NewFSSource(fsys fs.FS, dir, kind string) *FSSource {
	return &FSSource{fsys: fsys, dir: dir, kind: kind}
}

// Open reads the document for key. The returned document carries the normalized key.
func (s *FSSource) Open(_ context.Context, key string) (*Document, error) {
	name, info, err := s.find(key)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return &Document{Key: NormalizeKey(key), Name: name, Data: data, ModTime: info.ModTime()}, nil
}

// ModTime returns the modification time of the document for key.
func (s *FSSource) ModTime(_ context.Context, key string) (time.Time, error) {
	_, info, err := s.find(key)
	if err != nil {
		return time.Time{}, err
	}

	return info.ModTime(), nil
}

// Keys lists every document key available in the source.
func (s *FSSource) Keys() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	keys := make([]string, 0, len(entries))
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := path.Ext(entry.Name())
		if !isDefinitionExt(ext) {
			continue
		}

		key := NormalizeKey(strings.TrimSuffix(entry.Name(), ext))
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (s *FSSource) find(key string) (string, fs.FileInfo, error) {
	key = NormalizeKey(key)
	if key == "" {
		return "", nil, &NotFoundError{Kind: s.kind, Key: key}
	}

	for _, ext := range extensions {
		name := path.Join(s.dir, key+ext)

		info, err := fs.Stat(s.fsys, name)
		if err == nil {
			return name, info, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
	}

	return "", nil, &NotFoundError{Kind: s.kind, Key: key, Err: fs.ErrNotExist}
}

func isDefinitionExt(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}

	return false
}

// NormalizeKey turns a workflow type or freezone code into its canonical lookup key:
// trimmed, lower-cased, runs of other characters collapsed to a single underscore.
func NormalizeKey(value string) string {
	var b strings.Builder

	pendingSep := false

	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}

			pendingSep = false

			b.WriteRune(r)

			continue
		}

		pendingSep = true
	}

	return b.String()
}
