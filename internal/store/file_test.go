package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePreferencesRoundTrip(t *testing.T) {
	s := NewFilePreferencesStore(t.TempDir())

	got, err := s.Read("s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := Preferences{"font_scale": 1.5, "high_contrast": true}
	require.NoError(t, s.Write("s1", want))

	got, err = s.Read("s1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got["font_scale"])
	assert.Equal(t, true, got["high_contrast"])
}

func TestFilePreferencesOverwrite(t *testing.T) {
	s := NewFilePreferencesStore(t.TempDir())
	require.NoError(t, s.Write("s1", Preferences{"a": "old"}))
	require.NoError(t, s.Write("s1", Preferences{"a": "new"}))

	got, err := s.Read("s1")
	require.NoError(t, err)
	assert.Equal(t, "new", got["a"])
}

func TestFilePreferencesRejectsEmpty(t *testing.T) {
	s := NewFilePreferencesStore(t.TempDir())
	assert.Error(t, s.Write("s1", nil))
	assert.Error(t, s.Write("s1", Preferences{}))
}

func TestFilePreferencesClear(t *testing.T) {
	s := NewFilePreferencesStore(t.TempDir())
	require.NoError(t, s.Write("s1", Preferences{"a": 1}))
	require.NoError(t, s.Clear("s1"))
	require.NoError(t, s.Clear("s1"))

	got, err := s.Read("s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFilePreferencesCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "prefs")
	s := NewFilePreferencesStore(dir)
	require.NoError(t, s.Write("s1", Preferences{"a": 1}))
	_, err := os.Stat(filepath.Join(dir, "s1.json"))
	assert.NoError(t, err)
}

func TestFilePreferencesSanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	s := NewFilePreferencesStore(dir)
	require.NoError(t, s.Write("../evil/../../id", Preferences{"a": 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "..")

	got, err := s.Read("../evil/../../id")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got["a"])
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "s_12345", sanitize("s_12345"))
	assert.Equal(t, "a_b_c", sanitize("a/b/c"))
	assert.Equal(t, "anonymous", sanitize(""))
}
