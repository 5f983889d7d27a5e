package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dontdude/execagent/internal/domain"
)

// languageFile is the on-disk shape of the LanguageProfile table.
type languageFile struct {
	Languages map[string]domain.LanguageProfile `yaml:"languages"`
}

// LoadLanguageRegistry reads the LanguageProfile table from path. An
// empty path returns the embedded default table, so the agent boots
// standalone without a config file present.
func LoadLanguageRegistry(path string) (domain.StaticRegistry, error) {
	if path == "" {
		return defaultLanguages(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language profiles: %w", err)
	}

	var f languageFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse language profiles: %w", err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("language profiles file %s defines no languages", path)
	}

	return domain.StaticRegistry(f.Languages), nil
}

// defaultLanguages mirrors configs/languages.yaml so tests and local
// runs without a mounted config file still have a usable registry.
func defaultLanguages() domain.StaticRegistry {
	return domain.StaticRegistry{
		"python": {
			Name:             "Python 3",
			Image:            "python:3.12-alpine",
			FileExtension:    "py",
			SolutionFilename: "solution.py",
			TestFilename:     "test.py",
			RunArgv:          []string{"python3"},
			MemoryLimitMiB:   256,
			CPULimitCores:    0.5,
			TimeoutMillis:    10000,
			HarnessTemplate:  pythonHarness,
		},
		"javascript": {
			Name:             "Node.js",
			Image:            "node:20-alpine",
			FileExtension:    "js",
			SolutionFilename: "solution.js",
			TestFilename:     "test.js",
			RunArgv:          []string{"node"},
			MemoryLimitMiB:   256,
			CPULimitCores:    0.5,
			TimeoutMillis:    10000,
			HarnessTemplate:  javascriptHarness,
		},
		"java": {
			Name:             "Java",
			Image:            "eclipse-temurin:21-jdk-alpine",
			FileExtension:    "java",
			SolutionFilename: "Solution.java",
			TestFilename:     "TestRunner.java",
			CompileArgv:      []string{"javac"},
			RunArgv:          []string{"java"},
			RunArtifact:      "TestRunner",
			MemoryLimitMiB:   512,
			CPULimitCores:    1,
			TimeoutMillis:    15000,
			HarnessTemplate:  javaHarness,
		},
		"cpp": {
			Name:             "C++",
			Image:            "gcc:13-bookworm",
			FileExtension:    "cpp",
			SolutionFilename: "solution.cpp",
			TestFilename:     "test.cpp",
			CompileArgv:      []string{"g++", "-O2", "-o", "test_runner"},
			RunArgv:          []string{"./test_runner"},
			MemoryLimitMiB:   256,
			CPULimitCores:    1,
			TimeoutMillis:    10000,
			HarnessTemplate:  cppHarness,
		},
	}
}
