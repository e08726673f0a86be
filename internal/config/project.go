package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hdx-scrapers/icpac-cdi/internal/cdi"
)

var (
	//go:embed project_configuration.yaml
	defaultProject []byte

	//go:embed hdx_dataset_static.yaml
	defaultStatic []byte
)

var validate = validator.New()

// Project is the YAML project configuration.
type Project struct {
	TimePeriods []cdi.PeriodKind  `yaml:"time_periods" validate:"required,min=1,dive,oneof=dekadal monthly"`
	Dekadal     *cdi.PeriodConfig `yaml:"dekadal"`
	Monthly     *cdi.PeriodConfig `yaml:"monthly"`
	Tags        []string          `yaml:"tags" validate:"required,min=1,dive,required"`
	Countries   []string          `yaml:"countries" validate:"required,min=1,dive,len=3,alpha"`
}

// LoadProject reads the project configuration at path, or the embedded default when path is empty.
func LoadProject(path string) (*Project, error) {
	data, err := readOrDefault(path, defaultProject)
	if err != nil {
		return nil, err
	}
	return ParseProject(data)
}

// ParseProject decodes and validates a project configuration.
func ParseProject(data []byte) (*Project, error) {
	var p Project
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode project configuration: %w", err)
	}

	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid project configuration: %w", err)
	}

	seen := make(map[cdi.PeriodKind]bool, len(p.TimePeriods))
	for _, kind := range p.TimePeriods {
		if seen[kind] {
			return nil, fmt.Errorf("invalid project configuration: time period %q listed twice", kind)
		}
		seen[kind] = true
		if p.period(kind) == nil {
			return nil, fmt.Errorf("invalid project configuration: no %q block", kind)
		}
	}

	return &p, nil
}

func (p *Project) period(kind cdi.PeriodKind) *cdi.PeriodConfig {
	switch kind {
	case cdi.Dekadal:
		return p.Dekadal
	case cdi.Monthly:
		return p.Monthly
	}
	return nil
}

// Settings converts the project configuration for the ingest core.
func (p *Project) Settings() cdi.Settings {
	s := cdi.Settings{
		Tags:      append([]string(nil), p.Tags...),
		Countries: append([]string(nil), p.Countries...),
	}
	for _, kind := range p.TimePeriods {
		s.Periods = append(s.Periods, cdi.Period{Kind: kind, PeriodConfig: *p.period(kind)})
	}
	return s
}

// LoadStatic reads the static dataset metadata merged into every published dataset.
func LoadStatic(path string) (map[string]any, error) {
	data, err := readOrDefault(path, defaultStatic)
	if err != nil {
		return nil, err
	}

	static := map[string]any{}
	if err := yaml.Unmarshal(data, &static); err != nil {
		return nil, fmt.Errorf("decode static dataset metadata: %w", err)
	}
	return static, nil
}

func readOrDefault(path string, def []byte) ([]byte, error) {
	if path == "" {
		return def, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
