package selection

import (
	"Tuner/internal/models"
	"slices"
)

// State is a point-in-time copy of the machine's cascading selection.
type State struct {
	Brands  []models.Brand
	Models  []models.Model
	Types   []models.ChassisType
	Engines []models.EngineVariant
	Stages  []models.Stage

	SelectedBrand  *models.Brand
	SelectedModel  *models.Model
	SelectedType   *models.ChassisType
	SelectedEngine *models.EngineVariant

	// EngineTypeFilter is empty when no filter is set.
	EngineTypeFilter string
	Loading          bool
}

// FilteredEngines applies the engine type filter to the loaded engines.
func (s State) FilteredEngines() []models.EngineVariant {
	return FilterEngines(s.Engines, s.EngineTypeFilter)
}

// EngineTypeOptions lists the engine type tags present in the loaded engines.
func (s State) EngineTypeOptions() []string {
	return EngineTypes(s.Engines)
}

// FilterEngines returns engines whose type equals tag, in their original
// order. An empty tag returns every engine.
func FilterEngines(engines []models.EngineVariant, tag string) []models.EngineVariant {
	if tag == "" {
		return slices.Clone(engines)
	}
	filtered := []models.EngineVariant{}
	for _, engine := range engines {
		if engine.Type == tag {
			filtered = append(filtered, engine)
		}
	}
	return filtered
}

// EngineTypes returns each distinct non-empty type tag once, in order of
// first appearance.
func EngineTypes(engines []models.EngineVariant) []string {
	seen := make(map[string]struct{}, len(engines))
	tags := []string{}
	for _, engine := range engines {
		if engine.Type == "" {
			continue
		}
		if _, ok := seen[engine.Type]; ok {
			continue
		}
		seen[engine.Type] = struct{}{}
		tags = append(tags, engine.Type)
	}
	return tags
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (s State) clone() State {
	return State{
		Brands:           slices.Clone(s.Brands),
		Models:           slices.Clone(s.Models),
		Types:            slices.Clone(s.Types),
		Engines:          slices.Clone(s.Engines),
		Stages:           slices.Clone(s.Stages),
		SelectedBrand:    clonePtr(s.SelectedBrand),
		SelectedModel:    clonePtr(s.SelectedModel),
		SelectedType:     clonePtr(s.SelectedType),
		SelectedEngine:   clonePtr(s.SelectedEngine),
		EngineTypeFilter: s.EngineTypeFilter,
		Loading:          s.Loading,
	}
}
