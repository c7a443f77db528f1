package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	s.valid = true
	if s.Port < 0 {
		return errors.New("negative port")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "notes")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 9000\n")

	s := sample{Port: 1}
	require.NoError(t, Load(path, &s))
	assert.Equal(t, "notes", s.Name)
	assert.Equal(t, 9000, s.Port)
	assert.True(t, s.valid)
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "name: x\n")
	s := sample{Port: 8080}
	require.NoError(t, Load(path, &s))
	assert.Equal(t, 8080, s.Port)
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &s))
	assert.ErrorContains(t, Load(writeFile(t, "port: [1"), &s), "failed to parse")
	assert.ErrorContains(t, Load(writeFile(t, "port: -1\n"), &s), "negative port")
}

func TestLoadOptional(t *testing.T) {
	s := sample{Port: 8080}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, s.valid)
	assert.Equal(t, 8080, s.Port)

	found, err = LoadOptional(writeFile(t, "port: 81\n"), &s)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 81, s.Port)

	bad := sample{Port: -5}
	_, err = LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &bad)
	assert.ErrorContains(t, err, "negative port")
}
