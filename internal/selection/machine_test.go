package selection

import (
	"Tuner/internal/cache"
	"Tuner/internal/catalog"
	"Tuner/internal/catalog/catalogtest"
	"Tuner/internal/logging"
	"Tuner/internal/models"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	acme = models.Brand{Id: 1, Name: "Acme"}
	bolt = models.Brand{Id: 2, Name: "Bolt"}

	engines = []models.EngineVariant{
		{Id: 1000, TypeId: 100, Name: "2.0 TDI", Description: "150hp", Type: "Diesel"},
		{Id: 1001, TypeId: 100, Name: "1.8 TFSI", Description: "180hp", Type: "Petrol"},
		{Id: 1002, TypeId: 100, Name: "3.0 TDI", Description: "245hp", Type: "Diesel"},
		{Id: 1003, TypeId: 100, Name: "e-hybrid", Description: "204hp", Type: ""},
	}
)

func newFetcher() *catalogtest.Fetcher {
	return catalogtest.NewFetcher().
		Respond("brands", []models.Brand{acme, bolt}).
		Respond("models?brandId=1", []models.Model{{Id: 10, BrandId: 1, Name: "X"}}).
		Respond("models?brandId=2", []models.Model{{Id: 20, BrandId: 2, Name: "Y"}, {Id: 21, BrandId: 2, Name: "Z"}}).
		Respond("types?modelId=10", []models.ChassisType{{Id: 100, ModelId: 10, Name: "Mk1"}}).
		Respond("engines?typeId=100", engines).
		Respond("stages?engineId=1000", []models.Stage{
			{Id: 1, EngineId: 1000, StageName: "Stage 1", StockHp: 150, StockNm: 320, TunedHp: 190, TunedNm: 400},
		}).
		Respond("stages?engineId=1002", []models.Stage{
			{Id: 2, EngineId: 1002, StageName: "Stage 1", StockHp: 245, StockNm: 500, TunedHp: 300, TunedNm: 620},
		})
}

func newMachine(t *testing.T, fetcher *catalogtest.Fetcher) *Machine {
	t.Helper()
	client := catalog.NewClient(fetcher)
	return New(client, cache.NewBrandCache(client), logging.Discard())
}

// drillToEngines walks Acme -> X -> Mk1.
func drillToEngines(t *testing.T, m *Machine) {
	t.Helper()
	ctx := context.Background()
	m.LoadBrands(ctx)
	m.SelectBrand(ctx, acme)
	m.SelectModel(ctx, 10)
	m.SelectType(ctx, 100)
	require.Len(t, m.Snapshot().Engines, len(engines))
}

func TestLoadBrands(t *testing.T) {
	fetcher := newFetcher()
	m := newMachine(t, fetcher)

	m.LoadBrands(context.Background())
	m.LoadBrands(context.Background())

	state := m.Snapshot()
	assert.Equal(t, []models.Brand{acme, bolt}, state.Brands)
	assert.False(t, state.Loading)
	assert.Equal(t, 1, fetcher.CallCount("brands"))
}

func TestLoadBrandsUsesSharedCache(t *testing.T) {
	fetcher := newFetcher()
	client := catalog.NewClient(fetcher)
	brandCache := cache.NewBrandCache(client)

	first := New(client, brandCache, logging.Discard())
	first.LoadBrands(context.Background())
	second := New(client, brandCache, logging.Discard())
	second.LoadBrands(context.Background())

	assert.Equal(t, []models.Brand{acme, bolt}, second.Snapshot().Brands)
	assert.Equal(t, 1, fetcher.CallCount("brands"))
}

func TestLoadBrandsFailureLeavesEmptyList(t *testing.T) {
	fetcher := newFetcher().Fail("brands", errors.New("offline"))
	m := newMachine(t, fetcher)

	assert.NotPanics(t, func() { m.LoadBrands(context.Background()) })

	state := m.Snapshot()
	assert.Empty(t, state.Brands)
	assert.False(t, state.Loading)
}

func TestLoadBrandsAfterCancelledCallUsesCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newFetcher()
	release := fetcher.Hold("brands")
	defer release()
	client := catalog.NewClient(fetcher)
	brandCache := cache.NewBrandCache(client)
	m := New(client, brandCache, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.LoadBrands(ctx)
	}()
	require.Eventually(t, func() bool { return fetcher.CallCount("brands") == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Empty(t, m.Snapshot().Brands)
	assert.False(t, m.Snapshot().Loading)

	release()
	require.Eventually(t, func() bool { _, ok := brandCache.Peek(); return ok }, time.Second, time.Millisecond)

	m.LoadBrands(context.Background())
	assert.Equal(t, []models.Brand{acme, bolt}, m.Snapshot().Brands)
	assert.Equal(t, 1, fetcher.CallCount("brands"))
}

func TestSelectBrandPopulatesModels(t *testing.T) {
	m := newMachine(t, newFetcher())
	ctx := context.Background()
	m.LoadBrands(ctx)

	m.SelectBrand(ctx, acme)

	state := m.Snapshot()
	require.NotNil(t, state.SelectedBrand)
	assert.Equal(t, acme, *state.SelectedBrand)
	assert.Equal(t, []models.Model{{Id: 10, BrandId: 1, Name: "X"}}, state.Models)
	assert.Empty(t, state.Types)
	assert.Empty(t, state.Engines)
	assert.Empty(t, state.Stages)
	assert.False(t, state.Loading)
}

func TestSelectBrandClearsDownstream(t *testing.T) {
	m := newMachine(t, newFetcher())
	ctx := context.Background()
	drillToEngines(t, m)
	m.SetEngineTypeFilter("Diesel")
	m.SelectEngine(ctx, 1000)
	require.NotEmpty(t, m.Snapshot().Stages)

	m.SelectBrand(ctx, bolt)

	state := m.Snapshot()
	assert.Equal(t, bolt, *state.SelectedBrand)
	assert.Nil(t, state.SelectedModel)
	assert.Nil(t, state.SelectedType)
	assert.Nil(t, state.SelectedEngine)
	assert.Empty(t, state.EngineTypeFilter)
	assert.Empty(t, state.Types)
	assert.Empty(t, state.Engines)
	assert.Empty(t, state.Stages)
	assert.Len(t, state.Models, 2)
}

func TestSelectModelUnknownIdClearsSelection(t *testing.T) {
	fetcher := newFetcher()
	m := newMachine(t, fetcher)
	ctx := context.Background()
	m.SelectBrand(ctx, acme)
	m.SelectModel(ctx, 10)
	require.NotNil(t, m.Snapshot().SelectedModel)

	m.SelectModel(ctx, 999)

	state := m.Snapshot()
	assert.Nil(t, state.SelectedModel)
	assert.Empty(t, state.Types)
	assert.Equal(t, 1, fetcher.CallCount("types?modelId=10"))
}

func TestSelectModelFetchFailure(t *testing.T) {
	fetcher := newFetcher().Fail("types?modelId=10", errors.New("502 bad gateway"))
	m := newMachine(t, fetcher)
	ctx := context.Background()
	m.SelectBrand(ctx, acme)

	assert.NotPanics(t, func() { m.SelectModel(ctx, 10) })

	state := m.Snapshot()
	require.NotNil(t, state.SelectedModel)
	assert.NotNil(t, state.Types)
	assert.Empty(t, state.Types)
	assert.False(t, state.Loading)
}

func TestSelectType(t *testing.T) {
	m := newMachine(t, newFetcher())
	ctx := context.Background()
	drillToEngines(t, m)

	state := m.Snapshot()
	require.NotNil(t, state.SelectedType)
	assert.Equal(t, int64(100), state.SelectedType.Id)
	if diff := cmp.Diff(engines, state.Engines); diff != "" {
		t.Errorf("engines mismatch (-want +got):\n%s", diff)
	}

	m.SelectType(ctx, 404)
	state = m.Snapshot()
	assert.Nil(t, state.SelectedType)
	assert.Empty(t, state.Engines)
}

func TestSelectTypeResetsFilter(t *testing.T) {
	m := newMachine(t, newFetcher())
	drillToEngines(t, m)
	m.SetEngineTypeFilter("Petrol")

	m.SelectType(context.Background(), 100)

	assert.Empty(t, m.Snapshot().EngineTypeFilter)
}

func TestSelectEngineResolvesAgainstFilteredList(t *testing.T) {
	fetcher := newFetcher()
	m := newMachine(t, fetcher)
	ctx := context.Background()
	drillToEngines(t, m)

	m.SetEngineTypeFilter("Petrol")
	m.SelectEngine(ctx, 1000)

	state := m.Snapshot()
	assert.Nil(t, state.SelectedEngine)
	assert.Empty(t, state.Stages)
	assert.Zero(t, fetcher.CallCount("stages?engineId=1000"))

	m.SetEngineTypeFilter("Diesel")
	m.SelectEngine(ctx, 1002)

	state = m.Snapshot()
	require.NotNil(t, state.SelectedEngine)
	assert.Equal(t, "3.0 TDI", state.SelectedEngine.Name)
	require.Len(t, state.Stages, 1)
	assert.Equal(t, 300, state.Stages[0].TunedHp)
}

func TestSelectEngineFetchFailure(t *testing.T) {
	fetcher := newFetcher().Fail("stages?engineId=1000", errors.New("timeout"))
	m := newMachine(t, fetcher)
	drillToEngines(t, m)

	m.SelectEngine(context.Background(), 1000)

	state := m.Snapshot()
	assert.NotNil(t, state.SelectedEngine)
	assert.Empty(t, state.Stages)
	assert.False(t, state.Loading)
}

func TestSetEngineTypeFilterClearsEngineAndStages(t *testing.T) {
	m := newMachine(t, newFetcher())
	drillToEngines(t, m)
	m.SelectEngine(context.Background(), 1000)
	require.NotEmpty(t, m.Snapshot().Stages)

	m.SetEngineTypeFilter("Diesel")

	state := m.Snapshot()
	assert.Equal(t, "Diesel", state.EngineTypeFilter)
	assert.Nil(t, state.SelectedEngine)
	assert.Empty(t, state.Stages)
	assert.Len(t, state.Engines, len(engines))
}

func TestDerivedEngineViews(t *testing.T) {
	m := newMachine(t, newFetcher())
	drillToEngines(t, m)

	assert.Equal(t, engines, m.FilteredEngines())
	assert.ElementsMatch(t, []string{"Diesel", "Petrol"}, m.EngineTypeOptions())

	m.SetEngineTypeFilter("Diesel")
	filtered := m.FilteredEngines()
	require.Len(t, filtered, 2)
	assert.Equal(t, int64(1000), filtered[0].Id)
	assert.Equal(t, int64(1002), filtered[1].Id)
	// Options come from the full list, not the filtered one.
	assert.Len(t, m.EngineTypeOptions(), 2)
}

func TestResetRestoresBrandsWithoutFetching(t *testing.T) {
	fetcher := newFetcher()
	m := newMachine(t, fetcher)
	ctx := context.Background()
	drillToEngines(t, m)
	m.SetEngineTypeFilter("Diesel")
	m.SelectEngine(ctx, 1000)

	m.Reset()

	state := m.Snapshot()
	assert.Equal(t, []models.Brand{acme, bolt}, state.Brands)
	assert.Nil(t, state.SelectedBrand)
	assert.Nil(t, state.SelectedModel)
	assert.Nil(t, state.SelectedType)
	assert.Nil(t, state.SelectedEngine)
	assert.Empty(t, state.EngineTypeFilter)
	assert.Empty(t, state.Models)
	assert.Empty(t, state.Types)
	assert.Empty(t, state.Engines)
	assert.Empty(t, state.Stages)
	assert.Equal(t, 1, fetcher.CallCount("brands"))
}

func TestStaleResultIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newFetcher()
	release := fetcher.Hold("models?brandId=1")
	defer release()
	m := newMachine(t, fetcher)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.SelectBrand(ctx, acme)
	}()
	require.Eventually(t, func() bool { return fetcher.CallCount("models?brandId=1") == 1 }, time.Second, time.Millisecond)
	assert.True(t, m.Snapshot().Loading)

	m.SelectBrand(ctx, bolt)
	<-done

	state := m.Snapshot()
	assert.Equal(t, bolt, *state.SelectedBrand)
	assert.Equal(t, []models.Model{{Id: 20, BrandId: 2, Name: "Y"}, {Id: 21, BrandId: 2, Name: "Z"}}, state.Models)
	assert.False(t, state.Loading)
}

func TestResetCancelsInFlightLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newFetcher()
	release := fetcher.Hold("types?modelId=10")
	defer release()
	m := newMachine(t, fetcher)
	ctx := context.Background()
	m.LoadBrands(ctx)
	m.SelectBrand(ctx, acme)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.SelectModel(ctx, 10)
	}()
	require.Eventually(t, func() bool { return fetcher.CallCount("types?modelId=10") == 1 }, time.Second, time.Millisecond)

	m.Reset()
	<-done

	state := m.Snapshot()
	assert.Empty(t, state.Types)
	assert.Nil(t, state.SelectedModel)
	assert.False(t, state.Loading)
}

func TestChangedIsSignalled(t *testing.T) {
	m := newMachine(t, newFetcher())
	m.LoadBrands(context.Background())

	select {
	case <-m.Changed():
	default:
		t.Fatal("expected a change notification")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	m := newMachine(t, newFetcher())
	ctx := context.Background()
	m.LoadBrands(ctx)
	m.SelectBrand(ctx, acme)

	state := m.Snapshot()
	state.Brands[0].Name = "Mutated"
	state.SelectedBrand.Name = "Mutated"

	fresh := m.Snapshot()
	assert.Equal(t, "Acme", fresh.Brands[0].Name)
	assert.Equal(t, "Acme", fresh.SelectedBrand.Name)
}
