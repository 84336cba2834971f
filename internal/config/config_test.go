package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ProjectDir), cfg.Path())
	assert.Equal(t, dir, cfg.Root())
	assert.Equal(t, filepath.Join(dir, ProjectDir, RunLogFile), cfg.RunLogPath())

	_, err = os.Stat(filepath.Join(dir, ProjectDir, ConfigFile))
	assert.NoError(t, err)

	// Second init fails
	_, err = Initialize(dir)
	assert.Error(t, err)
}

func TestLoadFrom_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(dir)
	require.NoError(t, err)

	cfg.ImageDir = "train/images"
	cfg.Workers = 8
	require.NoError(t, cfg.Save())

	got, err := LoadFrom(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "train/images", got.ImageDir)
	assert.Equal(t, 8, got.Workers)
	assert.Equal(t, "labels", got.LabelDir)
}

func TestLoadFrom_MissingKeysKeepDefaults(t *testing.T) {
	root := filepath.Join(t.TempDir(), ProjectDir)
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte(`log_level = "debug"`+"\n"), 0644))

	cfg, err := LoadFrom(root)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadFrom_Invalid(t *testing.T) {
	root := filepath.Join(t.TempDir(), ProjectDir)
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte("workers = ["), 0644))

	_, err := LoadFrom(root)
	assert.Error(t, err)
}

func TestFindRootFrom(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(dir)
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	root, err := FindRootFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ProjectDir), root)
}

func TestFindRootFrom_NoProject(t *testing.T) {
	_, err := FindRootFrom(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoProject))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "images"), cfg.Resolve("images"))
	assert.Equal(t, "/abs/x", cfg.Resolve("/abs/x"))

	def := Default()
	assert.False(t, def.InProject())
	assert.Equal(t, "images", def.Resolve("images"))
	assert.Error(t, def.Save())
}
