package resultfile

import (
	"context"
	"os"
	"sort"
	"time"
)

// RunInfo summarizes one run found under a results root.
type RunInfo struct {
	Name         string    `json:"name"`
	ModTime      time.Time `json:"mod_time"`
	Steps        int       `json:"steps"`
	Compartments int       `json:"compartments"`
	Species      int       `json:"species"`
	NRank        int       `json:"n_rank"`
	FinalTime    float64   `json:"final_time"`
	HasGas       bool      `json:"has_gas"`
}

// List returns every readable run under root, sorted by name. Directories
// without a main file are skipped. A missing root yields an empty list.
func List(ctx context.Context, root string) ([]RunInfo, error) {
	if root == "" {
		root = DefaultRoot
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunInfo{}, nil
		}
		return nil, err
	}

	runs := make([]RunInfo, 0)
	for _, entry := range entries {
		if !entry.IsDir() || !exists(root, entry.Name()) {
			continue
		}
		info, err := Describe(ctx, root, entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, info)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Name < runs[j].Name })
	return runs, nil
}

// Describe reads the main file of one run.
func Describe(ctx context.Context, root, name string) (RunInfo, error) {
	path := MainFilePath(root, name)
	st, err := os.Stat(path)
	if err != nil {
		return RunInfo{}, err
	}
	s, err := OpenStore(ctx, path)
	if err != nil {
		return RunInfo{}, err
	}
	defer s.Close()

	m, err := readMain(ctx, s)
	if err != nil {
		return RunInfo{}, err
	}
	return RunInfo{
		Name:         name,
		ModTime:      st.ModTime(),
		Steps:        len(m.Records.Time),
		Compartments: m.Records.Compartments,
		Species:      m.Records.Species,
		NRank:        m.Misc.NRank,
		FinalTime:    m.Initial.FinalTime,
		HasGas:       m.Records.ConcentrationGas != nil,
	}, nil
}
