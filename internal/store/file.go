package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Preferences is the adaptive-CSS preference blob the extension stores per
// session (font scaling, contrast, spacing and so on). It is opaque here.
type Preferences map[string]any

// FilePreferencesStore persists per-session preferences on disk, one JSON
// file per session, written atomically.
type FilePreferencesStore struct {
	dir string
}

func NewFilePreferencesStore(dir string) *FilePreferencesStore {
	return &FilePreferencesStore{dir: dir}
}

func (f *FilePreferencesStore) Read(sessionID string) (Preferences, error) {
	b, err := os.ReadFile(f.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var p Preferences
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *FilePreferencesStore) Write(sessionID string, p Preferences) error {
	if len(p) == 0 {
		return errors.New("empty preferences")
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	path := f.path(sessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *FilePreferencesStore) Clear(sessionID string) error {
	if err := os.Remove(f.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FilePreferencesStore) path(sessionID string) string {
	return filepath.Join(f.dir, sanitize(sessionID)+".json")
}

// sanitize restricts session ids to filename-safe characters. Server-minted
// ids already comply; client-supplied ones may not.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
