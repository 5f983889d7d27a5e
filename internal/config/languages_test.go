package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLanguageRegistryEmptyPathReturnsDefaults(t *testing.T) {
	reg, err := LoadLanguageRegistry("")
	require.NoError(t, err)

	profile, ok := reg.Lookup("python")
	require.True(t, ok)
	assert.Equal(t, "python:3.12-alpine", profile.Image)
	assert.Contains(t, profile.HarnessTemplate, "{{TEST_CASES}}")

	_, ok = reg.Lookup("ruby")
	assert.False(t, ok)
}

func TestLoadLanguageRegistryDefaultsCoverEveryCompiledProfile(t *testing.T) {
	reg, err := LoadLanguageRegistry("")
	require.NoError(t, err)

	java, ok := reg.Lookup("java")
	require.True(t, ok)
	assert.Equal(t, "TestRunner", java.RunArtifact)
	assert.Equal(t, "TestRunner", java.RunFilename())

	cpp, ok := reg.Lookup("cpp")
	require.True(t, ok)
	assert.Empty(t, cpp.RunFilename(), "cpp's runArgv already names the compiled binary directly")
}

func TestLoadLanguageRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.yaml")
	contents := `
languages:
  ruby:
    name: Ruby
    image: ruby:3.3-alpine
    fileExtension: rb
    solutionFilename: solution.rb
    testFilename: test.rb
    runArgv: ["ruby"]
    memoryLimitMiB: 128
    cpuLimitCores: 0.5
    timeoutMillis: 5000
    harnessTemplate: "{{TEST_CASES}}"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	reg, err := LoadLanguageRegistry(path)
	require.NoError(t, err)

	profile, ok := reg.Lookup("ruby")
	require.True(t, ok)
	assert.Equal(t, "ruby:3.3-alpine", profile.Image)

	_, ok = reg.Lookup("python")
	assert.False(t, ok, "a custom file replaces the embedded defaults rather than merging with them")
}

func TestLoadLanguageRegistryRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("languages: {}\n"), 0o644))

	_, err := LoadLanguageRegistry(path)
	assert.Error(t, err)
}

func TestLoadLanguageRegistryMissingFile(t *testing.T) {
	_, err := LoadLanguageRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
