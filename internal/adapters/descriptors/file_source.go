package descriptors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
	"gopkg.in/yaml.v3"
)

var _ providers.DescriptorSource = (*FileSource)(nil)

// FileSource reads establishment descriptors from a static file.
// The format follows the extension: .json, .csv, .yaml or .yml.
type FileSource struct {
	path string
}

// NewFileSource creates a descriptor source for path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the descriptor file path
func (s *FileSource) Path() string {
	return s.path
}

// jsonDescriptor accepts both snake_case and PascalCase keys.
type jsonDescriptor struct {
	ProgramIdentifier    string `json:"program_identifier"`
	ProgramIdentifierAlt string `json:"ProgramIdentifier"`
	Name                 string `json:"name"`
	City                 string `json:"city"`
}

type yamlDocument struct {
	Establishments []entities.Establishment `yaml:"establishments"`
}

// Load parses the descriptor file
func (s *FileSource) Load(ctx context.Context) ([]entities.Establishment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("read descriptor file %s", s.path), err)
	}

	var establishments []entities.Establishment
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".json":
		establishments, err = parseJSON(data)
	case ".csv":
		establishments, err = parseCSV(data)
	case ".yaml", ".yml":
		establishments, err = parseYAML(data)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported descriptor file extension %q", ext))
	}
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse descriptor file %s: %v", s.path, err))
	}

	if establishments == nil {
		establishments = []entities.Establishment{}
	}
	return establishments, nil
}

func parseJSON(data []byte) ([]entities.Establishment, error) {
	var raw []jsonDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]entities.Establishment, 0, len(raw))
	for _, d := range raw {
		pid := d.ProgramIdentifier
		if pid == "" {
			pid = d.ProgramIdentifierAlt
		}
		out = append(out, entities.Establishment{
			ProgramIdentifier: pid,
			Name:              d.Name,
			City:              d.City,
		})
	}
	return out, nil
}

func parseCSV(data []byte) ([]entities.Establishment, error) {
	decoder, err := csvutil.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	var out []entities.Establishment
	if err := decoder.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode CSV data: %w", err)
	}
	return out, nil
}

func parseYAML(data []byte) ([]entities.Establishment, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Establishments, nil
}
