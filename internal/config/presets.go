package config

import "sort"

var Presets = map[string]SynthConfig{
	"cstr": {
		Stepper: "rk4", Dt: 10, FinalTime: 7200, Exports: 25,
		Compartments: 4, Species: 2, Ranks: 1, ParticlesPerRank: 200, ProbesPerRank: 500,
		Volume: 10, Dilution: 1.0 / 1800, MuMax: 2e-4, Ks: 0.1, Yield: 0.5,
		Feed: 10, InitialBiomass: 0.5, InitialSubstrate: 5, TracerStep: 5,
		Heterogeneity: 0.1, Seed: 42,
	},
	"cstr_long": {
		Stepper: "rk4", Dt: 60, FinalTime: 86400, Exports: 49,
		Compartments: 8, Species: 2, Ranks: 1, ParticlesPerRank: 500, ProbesPerRank: 2000,
		Volume: 20, Dilution: 1.0 / 36000, MuMax: 5e-5, Ks: 0.2, Yield: 0.5,
		Feed: 20, InitialBiomass: 0.2, InitialSubstrate: 10, TracerStep: 5,
		Heterogeneity: 0.2, Seed: 7,
	},
	"multi_rank": {
		Stepper: "rk4", Dt: 10, FinalTime: 14400, Exports: 31,
		Compartments: 6, Species: 3, Ranks: 4, ParticlesPerRank: 150, ProbesPerRank: 300,
		Volume: 50, Dilution: 1.0 / 3600, MuMax: 3e-4, Ks: 0.1, Yield: 0.45,
		Feed: 15, InitialBiomass: 1, InitialSubstrate: 8, TracerStep: 5,
		Heterogeneity: 0.15, Gas: true, Seed: 2024,
	},
}

// GetPreset returns a copy of the named preset, or nil when it does not exist.
func GetPreset(name string) *SynthConfig {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return &p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
