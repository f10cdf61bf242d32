package main

import (
	"Tuner/internal/cache"
	"Tuner/internal/catalog"
	"Tuner/internal/database"
	"Tuner/internal/logging"
	"Tuner/internal/models"
	"Tuner/internal/render"
	"Tuner/internal/selection"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	handler, err := database.Open("sqlite", filepath.Join(t.TempDir(), "catalog.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { handler.Close() })
	require.NoError(t, handler.Migrate())

	require.NoError(t, handler.InsertCatalog(models.Catalog{
		Brand:  models.Brand{Id: 1, Name: "Acme"},
		Model:  models.Model{Id: 10, BrandId: 1, Name: "X"},
		Type:   models.ChassisType{Id: 100, ModelId: 10, Name: "Mk1"},
		Engine: models.EngineVariant{Id: 1000, TypeId: 100, Name: "2.0 TDI", Description: "150hp", Type: "Diesel"},
		Stages: []models.Stage{
			{Id: 1, EngineId: 1000, StageName: "Stage 1", StockHp: 100, StockNm: 150, TunedHp: 140, TunedNm: 200},
		},
	}))

	a := &App{}
	a.Initialize(handler, logging.Discard())
	return a
}

func get(t *testing.T, a *App, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListEndpoints(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"brands", "/brands", http.StatusOK, `[{"id":1,"name":"Acme"}]`},
		{"models", "/models?brandId=1", http.StatusOK, `[{"id":10,"brandId":1,"name":"X"}]`},
		{"types", "/types?modelId=10", http.StatusOK, `[{"id":100,"modelId":10,"name":"Mk1"}]`},
		{"engines", "/engines?typeId=100", http.StatusOK, `[{"id":1000,"typeId":100,"name":"2.0 TDI","description":"150hp","type":"Diesel"}]`},
		{"unknown parent is empty", "/models?brandId=99", http.StatusOK, `[]`},
		{"missing id", "/models", http.StatusBadRequest, ""},
		{"non numeric id", "/types?modelId=abc", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, a, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestStagesEndpoint(t *testing.T) {
	a := newTestApp(t)

	rec := get(t, a, "/stages?engineId=1000")
	require.Equal(t, http.StatusOK, rec.Code)

	var stages []models.Stage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stages))
	require.Len(t, stages, 1)
	assert.Equal(t, 140, stages[0].TunedHp)
}

func TestStageCardEndpoint(t *testing.T) {
	a := newTestApp(t)

	rec := get(t, a, "/stages/1/card")
	require.Equal(t, http.StatusOK, rec.Code)

	var card render.StageCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "+40 HP / +50 Nm", card.GainLabel)
	assert.Nil(t, card.Compliance)

	assert.Equal(t, http.StatusNotFound, get(t, a, "/stages/77/card").Code)
}

func TestSelectionAgainstServer(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	fetcher, err := catalog.NewHTTPFetcher(srv.URL, time.Second, logging.Discard())
	require.NoError(t, err)
	client := catalog.NewClient(fetcher)
	m := selection.New(client, cache.NewBrandCache(client), logging.Discard())
	ctx := context.Background()

	m.LoadBrands(ctx)
	state := m.Snapshot()
	require.Len(t, state.Brands, 1)

	m.SelectBrand(ctx, state.Brands[0])
	m.SelectModel(ctx, 10)
	m.SelectType(ctx, 100)
	assert.Equal(t, []string{"Diesel"}, m.EngineTypeOptions())
	m.SelectEngine(ctx, 1000)

	state = m.Snapshot()
	require.Len(t, state.Stages, 1)
	assert.Equal(t, "+40 HP / +50 Nm", render.Stage(state.Stages[0]).GainLabel)
	assert.False(t, state.Loading)
}
