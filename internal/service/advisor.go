package service

import (
	"cropplanner/internal/agronomy"
	"cropplanner/internal/model"
)

// Advisor answers per-crop lookups from the reference tables. It needs no
// model, so the command line can use it without loading one.
type Advisor struct {
	tables *agronomy.Tables
}

// NewAdvisor creates an advisor; nil tables fall back to the built-in ones
func NewAdvisor(tables *agronomy.Tables) *Advisor {
	if tables == nil {
		tables = agronomy.Default()
	}
	return &Advisor{tables: tables}
}

// Deficiencies returns the fertilizers for nutrients below the crop's ideal
func (a *Advisor) Deficiencies(crop string, n, p, k float64) []string {
	return a.tables.Deficiencies(crop, n, p, k)
}

// IdealNutrients returns the crop's reference N/P/K levels
func (a *Advisor) IdealNutrients(crop string) (*model.NutrientLevels, bool) {
	n, ok := a.tables.IdealNutrients(crop)
	if !ok {
		return nil, false
	}
	return &model.NutrientLevels{N: n.N, P: n.P, K: n.K}, true
}

// Season returns the sowing/harvesting window for crop
func (a *Advisor) Season(crop string) model.Season {
	s := a.tables.Season(crop)
	return model.Season{Sowing: s.Sowing, Harvesting: s.Harvesting}
}

// Companions returns the companion crops for crop
func (a *Advisor) Companions(crop string) []string {
	return a.tables.Companions(crop)
}

// Crops lists every crop with reference data
func (a *Advisor) Crops() []string {
	return a.tables.Crops()
}

// Fertilizers builds the fertilizer lookup answer for crop
func (a *Advisor) Fertilizers(crop string, n, p, k float64) model.FertilizerResponse {
	resp := model.FertilizerResponse{
		Crop:        crop,
		Fertilizers: a.Deficiencies(crop, n, p, k),
	}
	if ideal, ok := a.IdealNutrients(crop); ok {
		resp.Ideal = ideal
	}
	return resp
}
