package format

import (
	"embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pauljones0/beatmaplinker/internal/validator"
)

//go:embed templates.yaml
var embeddedTemplates embed.FS

// Variant overrides the header and footer of a reply chain. A nil field
// inherits the top-level value.
type Variant struct {
	Header *string `yaml:"header"`
	Footer *string `yaml:"footer"`
}

// Templates is the reply template file. Text templates use text/template
// syntax over a string map, e.g. {{.title}}.
type Templates struct {
	Separator   string  `yaml:"separator"`
	CharLimit   int     `yaml:"char_limit" validate:"gt=0"`
	InvalidMap  string  `yaml:"invalid_map" validate:"required"`
	TooManyMaps string  `yaml:"too_many_maps" validate:"required"`
	Header      string  `yaml:"header"`
	Footer      string  `yaml:"footer"`
	SelfPost    Variant `yaml:"selfpost"`
	Meme        Variant `yaml:"meme"`

	Map    string `yaml:"map" validate:"required"`
	MapSet string `yaml:"mapset" validate:"required"`
	PP     string `yaml:"pp"`

	// Keyed by models.Mode.String() / models.Approval.String().
	Modes     map[string]string `yaml:"modes"`
	ModeNames map[string]string `yaml:"mode_names"`
	Approval  map[string]string `yaml:"approval"`
}

// LoadTemplates reads a template file from disk.
func LoadTemplates(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("failed to read template file: %w", err)
	}
	return LoadTemplatesFromBytes(data)
}

// LoadTemplatesFromBytes parses and validates a template file.
func LoadTemplatesFromBytes(data []byte) (Templates, error) {
	t := Templates{
		Separator: "\n\n",
		CharLimit: 10000,
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Templates{}, fmt.Errorf("failed to parse template YAML: %w", err)
	}
	if err := validator.New().ValidateStruct(t); err != nil {
		return Templates{}, fmt.Errorf("invalid templates: %w", err)
	}
	return t, nil
}

// DefaultTemplates returns the templates compiled into the binary.
func DefaultTemplates() (Templates, error) {
	data, err := embeddedTemplates.ReadFile("templates.yaml")
	if err != nil {
		return Templates{}, fmt.Errorf("failed to read embedded templates: %w", err)
	}
	return LoadTemplatesFromBytes(data)
}

// LoadConfig loads templates from path, falling back to the embedded defaults
// when the file does not exist. A file that exists but is invalid is an error.
func LoadConfig(path string) (Templates, error) {
	if path != "" {
		t, err := LoadTemplates(path)
		if err == nil {
			slog.Info("Loaded templates from file", "path", path)
			return t, nil
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return Templates{}, err
		}
		slog.Warn("Template file not found, using embedded defaults", "path", path)
	}
	return DefaultTemplates()
}
