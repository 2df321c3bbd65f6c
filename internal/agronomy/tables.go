// Package agronomy holds the static reference tables used next to the crop
// model: ideal nutrient levels, sowing/harvesting windows and companion crops.
//
// Tables are built once at startup and never mutated afterwards; every
// accessor returns copies so callers cannot alter shared state.
package agronomy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unknown is the season value reported for crops missing from the season table.
const Unknown = "Unknown"

// Fertilizer identifiers, one per nutrient.
const (
	FertilizerNitrogen   = "Urea"
	FertilizerPhosphorus = "DAP"
	FertilizerPotassium  = "MOP"
)

// Nutrients is an ideal (or measured) N/P/K level.
type Nutrients struct {
	N float64 `yaml:"n" json:"n"`
	P float64 `yaml:"p" json:"p"`
	K float64 `yaml:"k" json:"k"`
}

// Season is a sowing and harvesting window, e.g. "Jun-Jul".
type Season struct {
	Sowing     string `yaml:"sowing" json:"sowing"`
	Harvesting string `yaml:"harvesting" json:"harvesting"`
}

// Tables is the immutable reference data.
type Tables struct {
	nutrients  map[string]Nutrients
	seasons    map[string]Season
	companions map[string][]string
}

// fileFormat is the YAML layout accepted by LoadFile.
type fileFormat struct {
	Nutrients  map[string]Nutrients `yaml:"nutrients"`
	Seasons    map[string]Season    `yaml:"seasons"`
	Companions map[string][]string  `yaml:"companions"`
}

// Default returns the built-in tables.
func Default() *Tables {
	return &Tables{
		nutrients: map[string]Nutrients{
			"Wheat":     {N: 100, P: 50, K: 50},
			"Maize":     {N: 120, P: 60, K: 60},
			"Banana":    {N: 120, P: 60, K: 60},
			"Groundnut": {N: 50, P: 40, K: 40},
			"Cowpea":    {N: 40, P: 30, K: 30},
		},
		seasons: map[string]Season{
			"Wheat":     {Sowing: "Oct-Dec", Harvesting: "Mar-Apr"},
			"Maize":     {Sowing: "Jun-Jul", Harvesting: "Sep-Oct"},
			"Banana":    {Sowing: "Feb-Mar", Harvesting: "Nov-Dec"},
			"Groundnut": {Sowing: "Jun-Jul", Harvesting: "Oct-Nov"},
			"Cowpea":    {Sowing: "Jun-Jul", Harvesting: "Sep-Oct"},
		},
		companions: map[string][]string{
			"Banana":    {"Cowpea", "Groundnut", "Maize"},
			"Wheat":     {"Mustard", "Lentil", "Chickpea"},
			"Maize":     {"Beans", "Sunflower", "Soybean"},
			"Groundnut": {"Maize", "Cowpea"},
			"Cowpea":    {"Maize", "Groundnut"},
		},
	}
}

// LoadFile reads tables from a YAML file. Sections missing from the file
// keep their built-in values; present sections replace them entirely.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference tables %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML reference tables on top of the defaults.
func Parse(data []byte) (*Tables, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse reference tables: %w", err)
	}

	t := Default()
	if f.Nutrients != nil {
		for crop, n := range f.Nutrients {
			if n.N < 0 || n.P < 0 || n.K < 0 {
				return nil, fmt.Errorf("negative ideal nutrient level for %q", crop)
			}
		}
		t.nutrients = trimKeys(f.Nutrients)
	}
	if f.Seasons != nil {
		t.seasons = trimKeys(f.Seasons)
	}
	if f.Companions != nil {
		t.companions = trimKeys(f.Companions)
	}
	return t, nil
}

func trimKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[strings.TrimSpace(k)] = v
	}
	return out
}

// IdealNutrients returns the ideal levels for crop.
func (t *Tables) IdealNutrients(crop string) (Nutrients, bool) {
	n, ok := t.nutrients[crop]
	return n, ok
}

// Deficiencies lists the fertilizers needed to bring n, p and k up to the
// crop's ideal levels. Order is always N, P, K. A value equal to the ideal
// is not a deficiency, excess is never flagged, and an unknown crop yields
// an empty list.
func (t *Tables) Deficiencies(crop string, n, p, k float64) []string {
	ferts := []string{}
	ideal, ok := t.nutrients[crop]
	if !ok {
		return ferts
	}
	if n < ideal.N {
		ferts = append(ferts, FertilizerNitrogen)
	}
	if p < ideal.P {
		ferts = append(ferts, FertilizerPhosphorus)
	}
	if k < ideal.K {
		ferts = append(ferts, FertilizerPotassium)
	}
	return ferts
}

// Season returns the sowing/harvesting window, or Unknown for both.
func (t *Tables) Season(crop string) Season {
	s, ok := t.seasons[crop]
	if !ok {
		return Season{Sowing: Unknown, Harvesting: Unknown}
	}
	return s
}

// Companions returns the companion crops for crop in table order.
func (t *Tables) Companions(crop string) []string {
	return append([]string{}, t.companions[crop]...)
}

// Crops lists every crop named in any table, sorted by name.
func (t *Tables) Crops() []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for c := range t.nutrients {
		add(c)
	}
	for c := range t.seasons {
		add(c)
	}
	for c := range t.companions {
		add(c)
	}
	sort.Strings(out)
	return out
}
