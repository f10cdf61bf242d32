// Package selection implements the cascading brand -> model -> chassis type ->
// engine -> stage selection used by the tuning calculator.
//
// Every selection invalidates the levels below it: their lists and selections
// are cleared, in-flight loads for them are cancelled, and any result that
// arrives for a superseded request is dropped. Fetch failures never reach the
// caller; the affected list is simply left empty.
package selection

import (
	"Tuner/internal/cache"
	"Tuner/internal/catalog"
	"Tuner/internal/models"
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Catalog provides the child lists for each selection level.
type Catalog interface {
	Models(ctx context.Context, brandId int64) ([]models.Model, error)
	Types(ctx context.Context, modelId int64) ([]models.ChassisType, error)
	Engines(ctx context.Context, typeId int64) ([]models.EngineVariant, error)
	Stages(ctx context.Context, engineId int64) ([]models.Stage, error)
}

// slot indexes the lists that are loaded on demand, top to bottom.
type slot int

const (
	slotModels slot = iota
	slotTypes
	slotEngines
	slotStages
	slotCount
)

var slotLevels = [slotCount]catalog.Level{
	slotModels:  catalog.LevelModels,
	slotTypes:   catalog.LevelTypes,
	slotEngines: catalog.LevelEngines,
	slotStages:  catalog.LevelStages,
}

type Machine struct {
	catalog Catalog
	brands  *cache.BrandCache
	logger  *slog.Logger
	changed chan struct{}

	mu              sync.Mutex
	state           State
	loadedBrands    []models.Brand
	brandsRequested bool
	inflight        int
	seq             [slotCount]uint64
	cancel          [slotCount]context.CancelFunc
}

func New(source Catalog, brands *cache.BrandCache, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		catalog: source,
		brands:  brands,
		logger:  logger,
		changed: make(chan struct{}, 1),
		state: State{
			Brands:  []models.Brand{},
			Models:  []models.Model{},
			Types:   []models.ChassisType{},
			Engines: []models.EngineVariant{},
			Stages:  []models.Stage{},
		},
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Changed is signalled after every state change. Signals coalesce.
func (m *Machine) Changed() <-chan struct{} {
	return m.changed
}

func (m *Machine) FilteredEngines() []models.EngineVariant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FilteredEngines()
}

func (m *Machine) EngineTypeOptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.EngineTypeOptions()
}

// LoadBrands populates the brand list from the cache, loading it on first
// use. Only the first call on a machine does anything, unless that call's ctx
// was cancelled before the list arrived: the shared load keeps running and a
// later call picks its result up from the cache. A failed load is not retried.
func (m *Machine) LoadBrands(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.brandsRequested {
		return
	}
	m.brandsRequested = true

	if brands, ok := m.brands.Peek(); ok {
		m.setBrands(brands)
		return
	}

	m.startLoading()
	m.mu.Unlock()
	brands, err := m.brands.Get(ctx)
	m.mu.Lock()
	m.stopLoading()

	if err != nil {
		if brands, ok := m.brands.Peek(); ok {
			m.setBrands(brands)
			return
		}
		if ctx.Err() != nil {
			m.brandsRequested = false
		}
		m.logger.Warn("catalog fetch failed", "level", catalog.LevelBrands, "error", err)
		m.state.Brands = []models.Brand{}
		m.notify()
		return
	}
	m.setBrands(brands)
}

func (m *Machine) setBrands(brands []models.Brand) {
	m.loadedBrands = brands
	m.state.Brands = slices.Clone(brands)
	m.notify()
}

// SelectBrand selects brand and loads its models.
func (m *Machine) SelectBrand(ctx context.Context, brand models.Brand) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearFrom(slotModels)
	m.state.SelectedBrand = &brand
	fetchInto(m, ctx, slotModels,
		func(ctx context.Context) ([]models.Model, error) { return m.catalog.Models(ctx, brand.Id) },
		func(list []models.Model) { m.state.Models = list })
}

// SelectModel selects the loaded model with modelId and loads its chassis
// types. An unknown id leaves no model selected.
func (m *Machine) SelectModel(ctx context.Context, modelId int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	model := find(m.state.Models, func(v models.Model) bool { return v.Id == modelId })
	m.clearFrom(slotTypes)
	m.state.SelectedModel = model
	if model == nil {
		m.notify()
		return
	}
	fetchInto(m, ctx, slotTypes,
		func(ctx context.Context) ([]models.ChassisType, error) { return m.catalog.Types(ctx, modelId) },
		func(list []models.ChassisType) { m.state.Types = list })
}

// SelectType selects the loaded chassis type with typeId and loads its
// engines. The engine type filter is reset.
func (m *Machine) SelectType(ctx context.Context, typeId int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chassisType := find(m.state.Types, func(v models.ChassisType) bool { return v.Id == typeId })
	m.clearFrom(slotEngines)
	m.state.SelectedType = chassisType
	if chassisType == nil {
		m.notify()
		return
	}
	fetchInto(m, ctx, slotEngines,
		func(ctx context.Context) ([]models.EngineVariant, error) { return m.catalog.Engines(ctx, typeId) },
		func(list []models.EngineVariant) { m.state.Engines = list })
}

// SelectEngine selects an engine from the filtered engine list and loads its
// stages.
func (m *Machine) SelectEngine(ctx context.Context, engineId int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	engine := find(m.state.FilteredEngines(), func(v models.EngineVariant) bool { return v.Id == engineId })
	m.clearFrom(slotStages)
	m.state.SelectedEngine = engine
	if engine == nil {
		m.notify()
		return
	}
	fetchInto(m, ctx, slotStages,
		func(ctx context.Context) ([]models.Stage, error) { return m.catalog.Stages(ctx, engineId) },
		func(list []models.Stage) { m.state.Stages = list })
}

// SetEngineTypeFilter narrows the selectable engines to tag; "" clears the
// filter. Any selected engine and its stages are dropped.
func (m *Machine) SetEngineTypeFilter(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearFrom(slotStages)
	m.state.EngineTypeFilter = tag
	m.notify()
}

// Reset clears every selection and list. Brands are restored from the list
// loaded at startup without fetching again.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearFrom(slotModels)
	m.state.SelectedBrand = nil
	m.state.Brands = slices.Clone(m.loadedBrands)
	if m.state.Brands == nil {
		m.state.Brands = []models.Brand{}
	}
	m.notify()
}

// clearFrom empties the lists and selections owned by s and every slot below
// it, cancelling their in-flight loads.
func (m *Machine) clearFrom(s slot) {
	for i := s; i < slotCount; i++ {
		m.seq[i]++
		if m.cancel[i] != nil {
			m.cancel[i]()
			m.cancel[i] = nil
		}
	}
	if s <= slotModels {
		m.state.Models = []models.Model{}
		m.state.SelectedModel = nil
	}
	if s <= slotTypes {
		m.state.Types = []models.ChassisType{}
		m.state.SelectedType = nil
	}
	if s <= slotEngines {
		m.state.Engines = []models.EngineVariant{}
		m.state.EngineTypeFilter = ""
	}
	m.state.Stages = []models.Stage{}
	m.state.SelectedEngine = nil
}

func (m *Machine) startLoading() {
	m.inflight++
	m.state.Loading = true
	m.notify()
}

func (m *Machine) stopLoading() {
	m.inflight--
	m.state.Loading = m.inflight > 0
}

func (m *Machine) notify() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// fetchInto runs fetch for slot s and hands the result to apply unless a
// later selection superseded it. It must be called with m.mu held; the lock
// is released while fetching and held again on return.
func fetchInto[T any](m *Machine, ctx context.Context, s slot, fetch func(context.Context) ([]T, error), apply func([]T)) {
	fetchCtx, cancel := context.WithCancel(ctx)
	m.cancel[s] = cancel
	seq := m.seq[s]
	m.startLoading()

	m.mu.Unlock()
	list, err := fetch(fetchCtx)
	m.mu.Lock()

	cancel()
	m.stopLoading()
	defer m.notify()

	if m.seq[s] != seq {
		m.logger.Debug("dropping stale result", "level", slotLevels[s])
		return
	}
	m.cancel[s] = nil
	if err != nil {
		m.logger.Warn("catalog fetch failed", "level", slotLevels[s], "error", err)
		list = []T{}
	}
	if list == nil {
		list = []T{}
	}
	apply(list)
}

func find[T any](items []T, match func(T) bool) *T {
	for i := range items {
		if match(items[i]) {
			v := items[i]
			return &v
		}
	}
	return nil
}
