// internal/config/formats.go
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quizbowl/qbscore/internal/models"
)

// LookupFormat resolves a built-in format preset by name (case-insensitive).
func LookupFormat(name string) (models.GameFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "acf":
		return models.ACFGameFormat(), true
	case "powers", "macf":
		return models.PowersGameFormat(), true
	case "pace", "pace-nsc":
		return models.PACEGameFormat(), true
	case "freeform", "undefined":
		return models.UndefinedGameFormat(), true
	}
	return models.GameFormat{}, false
}

// FormatNames lists the built-in preset names.
func FormatNames() []string {
	return []string{"acf", "powers", "pace", "freeform"}
}

// ReadFormat decodes a YAML game format. Missing fields fall back to the
// ACF preset so a file only needs to state what it overrides.
func ReadFormat(r io.Reader) (models.GameFormat, error) {
	format := models.ACFGameFormat()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&format); err != nil {
		return models.GameFormat{}, fmt.Errorf("decode game format: %w", err)
	}
	if format.Version == "" {
		format.Version = models.CurrentFormatVersion
	}
	if err := format.Validate(); err != nil {
		return models.GameFormat{}, fmt.Errorf("invalid game format: %w", err)
	}
	return format, nil
}

// LoadFormat resolves a preset name or, failing that, reads a YAML file at
// the given path.
func LoadFormat(nameOrPath string) (models.GameFormat, error) {
	if format, ok := LookupFormat(nameOrPath); ok {
		return format, nil
	}
	f, err := os.Open(nameOrPath)
	if err != nil {
		return models.GameFormat{}, fmt.Errorf("unknown format preset and no such file: %w", err)
	}
	defer f.Close()
	return ReadFormat(f)
}
