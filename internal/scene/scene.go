package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// MaxSceneSize limits a scene document to 4MB.
const MaxSceneSize = 4 * 1024 * 1024

var (
	ErrUnknownFormat = errors.New("unknown scene format")
	ErrInvalidScene  = errors.New("invalid scene")
)

// Format is a scene encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Script is one script of a scene. Exactly one of Source and File is set;
// File is resolved relative to the scene file when loaded from disk.
type Script struct {
	Name   string `yaml:"name" toml:"name" json:"name"`
	Source string `yaml:"source,omitempty" toml:"source,omitempty" json:"source,omitempty"`
	File   string `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`
}

// Scene is a page plus the scripts run against it, in order.
type Scene struct {
	Name    string   `yaml:"name" toml:"name" json:"name"`
	Page    string   `yaml:"page" toml:"page" json:"page"`
	Scripts []Script `yaml:"scripts" toml:"scripts" json:"scripts"`

	// Origin is the file or URL the scene was read from.
	Origin string `yaml:"-" toml:"-" json:"origin,omitempty"`
}

// FormatOf picks a format from a file name or URL path.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Parse decodes and validates a scene. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Scene, error) {
	if len(data) > MaxSceneSize {
		return nil, fmt.Errorf("%w: scene exceeds maximum size of %d bytes", ErrInvalidScene, MaxSceneSize)
	}

	var s Scene
	switch format {
	case FormatYAML:
		if err := yaml.UnmarshalWithOptions(data, &s, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml scene: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to parse toml scene: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the scene names itself and that every script has
// exactly one of source and file.
func (s *Scene) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScene)
	}
	if strings.TrimSpace(s.Page) == "" && len(s.Scripts) == 0 {
		return fmt.Errorf("%w: scene %q has neither page nor scripts", ErrInvalidScene, s.Name)
	}
	for i, sc := range s.Scripts {
		hasSource := strings.TrimSpace(sc.Source) != ""
		hasFile := sc.File != ""
		if hasSource == hasFile {
			return fmt.Errorf("%w: scene %q script %d needs exactly one of source and file", ErrInvalidScene, s.Name, i)
		}
	}
	return nil
}

// Load reads one scene file. Script files are read relative to it.
func Load(path string) (*Scene, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene %s: %w", path, err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Origin = path

	dir := filepath.Dir(path)
	for i := range s.Scripts {
		sc := &s.Scripts[i]
		if sc.File == "" {
			continue
		}
		file := sc.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read script %s: %w", path, sc.File, err)
		}
		sc.Source = string(src)
		if sc.Name == "" {
			sc.Name = filepath.Base(sc.File)
		}
	}
	return s, nil
}

// LoadGlob loads every scene file matching pattern, which may use "**".
// Scenes are returned in path order.
func LoadGlob(pattern string) ([]*Scene, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid scene pattern %q: %w", pattern, err)
	}
	slices.Sort(matches)

	scenes := make([]*Scene, 0, len(matches))
	for _, path := range matches {
		if _, err := FormatOf(path); err != nil {
			continue
		}
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, s)
	}
	return scenes, nil
}
