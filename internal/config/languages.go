// Package config loads the process-wide LanguageSpec table: for every
// supported language variant, the path to its container build recipe and
// the filename its source is placed under in the build context.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LanguageSpec describes how a submission in a given language is turned
// into a build context.
type LanguageSpec struct {
	RecipePath     string `yaml:"recipe_path"`
	SourceFilename string `yaml:"source_filename"`
}

// Languages is the process-wide, read-only LanguageSpec table, keyed by the
// lowercase variant name accepted in a Submission's "lang" field (e.g. "c",
// "python2.7").
type Languages struct {
	specs map[string]LanguageSpec
}

type languagesFile struct {
	Languages map[string]LanguageSpec `yaml:"languages"`
}

// Default returns a built-in table holding just the single "c" variant.
// The server does not fall back to it: `codebox serve` always loads its
// --languages file through Load.
func Default() *Languages {
	return &Languages{specs: map[string]LanguageSpec{
		"c": {RecipePath: "resources/c/Dockerfile", SourceFilename: "code.c"},
	}}
}

// Load reads a languages.yaml file describing the LanguageSpec table.
// Startup must fail if the file is missing or malformed — every Submission
// lang the server will ever receive has to resolve to a LanguageSpec before
// the server accepts traffic.
func Load(path string) (*Languages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language config %s: %w", path, err)
	}
	var parsed languagesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse language config %s: %w", path, err)
	}
	if len(parsed.Languages) == 0 {
		return nil, fmt.Errorf("language config %s: no languages defined", path)
	}
	for name, spec := range parsed.Languages {
		if spec.RecipePath == "" || spec.SourceFilename == "" {
			return nil, fmt.Errorf("language config %s: %q missing recipe_path or source_filename", path, name)
		}
	}
	return &Languages{specs: parsed.Languages}, nil
}

// Lookup returns the LanguageSpec for lang, and whether it exists.
func (l *Languages) Lookup(lang string) (LanguageSpec, bool) {
	spec, ok := l.specs[lang]
	return spec, ok
}

// Names returns the configured language variant keys, for the /languages
// endpoint and the "codebox languages" CLI command.
func (l *Languages) Names() []string {
	names := make([]string, 0, len(l.specs))
	for name := range l.specs {
		names = append(names, name)
	}
	return names
}
