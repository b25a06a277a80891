package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultResultsRoot   = "./results"
	DefaultOutputDir     = "."
	DefaultFigureFormat  = "svg"
	DefaultLogLevel      = "info"
	DefaultRTDStep       = 5.0
	DefaultHistogramBins = 50
)

type Config struct {
	ResultsRoot   string      `yaml:"results_root"   env:"BIOMC_RESULTS_ROOT"`
	OutputDir     string      `yaml:"output_dir"     env:"BIOMC_OUTPUT_DIR"`
	FigureFormat  string      `yaml:"figure_format"  env:"BIOMC_FIGURE_FORMAT"`
	LogLevel      string      `yaml:"log_level"      env:"BIOMC_LOG_LEVEL"`
	RTDStep       float64     `yaml:"rtd_step"       env:"BIOMC_RTD_STEP"`
	HistogramBins int         `yaml:"histogram_bins" env:"BIOMC_HISTOGRAM_BINS"`
	Synth         SynthConfig `yaml:"synth"`
}

// SynthConfig parameterizes the toy CSTR used to generate synthetic runs.
// Times are in seconds, concentrations in g/L.
type SynthConfig struct {
	Stepper          string  `yaml:"stepper"`
	Dt               float64 `yaml:"dt"`
	FinalTime        float64 `yaml:"final_time"`
	Exports          int     `yaml:"exports"`
	Compartments     int     `yaml:"compartments"`
	Species          int     `yaml:"species"`
	Ranks            int     `yaml:"ranks"`
	ParticlesPerRank int     `yaml:"particles_per_rank"`
	ProbesPerRank    int     `yaml:"probes_per_rank"`
	Volume           float64 `yaml:"volume"`
	Dilution         float64 `yaml:"dilution"`
	MuMax            float64 `yaml:"mu_max"`
	Ks               float64 `yaml:"ks"`
	Yield            float64 `yaml:"yield"`
	Feed             float64 `yaml:"feed"`
	InitialBiomass   float64 `yaml:"initial_biomass"`
	InitialSubstrate float64 `yaml:"initial_substrate"`
	TracerStep       float64 `yaml:"tracer_step"`
	Heterogeneity    float64 `yaml:"heterogeneity"`
	Gas              bool    `yaml:"gas"`
	Seed             uint64  `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		ResultsRoot:   DefaultResultsRoot,
		OutputDir:     DefaultOutputDir,
		FigureFormat:  DefaultFigureFormat,
		LogLevel:      DefaultLogLevel,
		RTDStep:       DefaultRTDStep,
		HistogramBins: DefaultHistogramBins,
		Synth:         *GetPreset("cstr"),
	}
}

// Load reads a YAML file over DefaultConfig. An empty path skips the file.
// Environment variables are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the parameters Generate depends on.
func (s *SynthConfig) Validate() error {
	switch {
	case s.Dt <= 0:
		return fmt.Errorf("synth: dt must be positive, got %g", s.Dt)
	case s.FinalTime <= 0:
		return fmt.Errorf("synth: final_time must be positive, got %g", s.FinalTime)
	case s.Exports < 2:
		return fmt.Errorf("synth: need at least 2 exports, got %d", s.Exports)
	case s.Compartments < 1:
		return fmt.Errorf("synth: need at least 1 compartment, got %d", s.Compartments)
	case s.Species < 2:
		return fmt.Errorf("synth: need at least 2 species (tracer, substrate), got %d", s.Species)
	case s.Ranks < 1:
		return fmt.Errorf("synth: need at least 1 rank, got %d", s.Ranks)
	case s.ParticlesPerRank < 1:
		return fmt.Errorf("synth: need at least 1 particle per rank, got %d", s.ParticlesPerRank)
	case s.Volume <= 0 || s.Dilution <= 0 || s.Yield <= 0 || s.InitialBiomass <= 0:
		return fmt.Errorf("synth: volume, dilution, yield and initial_biomass must be positive")
	case s.Heterogeneity < 0 || s.Heterogeneity >= 1:
		return fmt.Errorf("synth: heterogeneity must be in [0, 1), got %g", s.Heterogeneity)
	}
	return nil
}
