// Package config loads the YAML settings file shared by the specmatch commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/SpecMatch/pkg/cluster"
	"github.com/ChrisMcGann/SpecMatch/pkg/core"
	"github.com/ChrisMcGann/SpecMatch/pkg/filter"
	"github.com/ChrisMcGann/SpecMatch/pkg/score"
	"github.com/ChrisMcGann/SpecMatch/pkg/search"
)

// SearchConfig holds the search command settings.
type SearchConfig struct {
	MS1Tolerance     float64  `yaml:"ms1_tolerance"`
	MS2Tolerance     float64  `yaml:"ms2_tolerance"`
	RTTolerance      *float64 `yaml:"rt_tolerance,omitempty"`
	IsotopeTolerance float64  `yaml:"isotope_tolerance"`
	Cutoff           float64  `yaml:"cutoff"`
	Domain           string   `yaml:"domain"`
	UseRT            bool     `yaml:"use_rt"`
	MS1Only          bool     `yaml:"ms1_only"`
	Workers          int      `yaml:"workers"`
	Top              int      `yaml:"top"`
}

// ClusterConfig holds the cluster command settings.
type ClusterConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	PPM       bool    `yaml:"ppm"`
	Shift     bool    `yaml:"shift"`
	ShiftUnit float64 `yaml:"shift_unit"`
	MinScore  float64 `yaml:"min_score"`
}

// FilterConfig holds the peak filter applied on import and to queries.
type FilterConfig struct {
	TopN            int      `yaml:"top_n"`
	IntensityCutoff float64  `yaml:"intensity_cutoff"`
	Annotations     []string `yaml:"annotations,omitempty"`
}

// Config is the root of the settings file.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Cluster ClusterConfig `yaml:"cluster"`
	Filter  FilterConfig  `yaml:"filter"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	p := search.DefaultParams()
	c := cluster.DefaultOptions()
	return &Config{
		Search: SearchConfig{
			MS1Tolerance: p.MS1Tolerance,
			MS2Tolerance: p.MS2Tolerance,
			RTTolerance:  p.RTTolerance,
			Cutoff:       p.Cutoff,
			Domain:       score.DomainGeneral.String(),
			Top:          10,
		},
		Cluster: ClusterConfig{
			Tolerance: c.Tolerance,
			ShiftUnit: c.ShiftUnit,
			MinScore:  0.7,
		},
	}
}

// Load reads path over the defaults, so a partial file only overrides the
// keys it sets. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks every section against the engine's parameter rules.
func (c *Config) Validate() error {
	if _, err := c.SearchParams(); err != nil {
		return err
	}
	if c.Search.Top < 0 {
		return fmt.Errorf("search.top must be non-negative, got %d", c.Search.Top)
	}
	if c.Cluster.Tolerance < 0 || c.Cluster.ShiftUnit <= 0 {
		return fmt.Errorf("cluster tolerance must be non-negative and shift_unit positive")
	}
	if c.Cluster.MinScore < 0 || c.Cluster.MinScore > 1 {
		return fmt.Errorf("cluster.min_score must be within [0, 1], got %g", c.Cluster.MinScore)
	}
	f := c.FilterConfig()
	return f.Validate()
}

// SearchParams converts the search section into engine parameters.
func (c *Config) SearchParams() (search.Params, error) {
	domain, err := score.ParseDomain(c.Search.Domain)
	if err != nil {
		return search.Params{}, err
	}

	p := search.Params{
		MS1Tolerance:     c.Search.MS1Tolerance,
		MS2Tolerance:     c.Search.MS2Tolerance,
		RTTolerance:      c.Search.RTTolerance,
		IsotopeTolerance: c.Search.IsotopeTolerance,
		Cutoff:           c.Search.Cutoff,
		Profile:          score.ProfileFor(domain),
		UseRT:            c.Search.UseRT,
	}
	if err := p.Validate(); err != nil {
		return search.Params{}, err
	}
	return p, nil
}

// ClusterOptions converts the cluster section into matcher options.
func (c *Config) ClusterOptions() cluster.Options {
	opts := cluster.Options{
		Tolerance:     c.Cluster.Tolerance,
		ToleranceType: cluster.Dalton,
		ShiftUnit:     c.Cluster.ShiftUnit,
	}
	if c.Cluster.PPM {
		opts.ToleranceType = cluster.PPM
	}
	if opts.ShiftUnit == 0 {
		opts.ShiftUnit = core.MassCH2
	}
	return opts
}

func (c *Config) FilterConfig() filter.Config {
	annotations := make([]string, 0, len(c.Filter.Annotations))
	for _, a := range c.Filter.Annotations {
		if a = strings.TrimSpace(a); a != "" {
			annotations = append(annotations, a)
		}
	}
	if len(annotations) == 0 {
		annotations = nil
	}
	return filter.Config{
		TopN:            c.Filter.TopN,
		IntensityCutoff: c.Filter.IntensityCutoff,
		Annotations:     annotations,
	}
}
