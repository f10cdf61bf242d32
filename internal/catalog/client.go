package catalog

import (
	"Tuner/internal/models"
	"context"
	"fmt"
)

// Client issues the typed catalog lookups, one per selection level.
type Client struct {
	fetcher Fetcher
}

func NewClient(fetcher Fetcher) *Client {
	return &Client{fetcher: fetcher}
}

func fetchList[T any](ctx context.Context, f Fetcher, level Level, resource string) ([]T, error) {
	var out []T
	if err := f.Fetch(ctx, resource, &out); err != nil {
		return nil, &FetchError{Level: level, Err: err}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c *Client) Brands(ctx context.Context) ([]models.Brand, error) {
	return fetchList[models.Brand](ctx, c.fetcher, LevelBrands, "brands")
}

func (c *Client) Models(ctx context.Context, brandId int64) ([]models.Model, error) {
	return fetchList[models.Model](ctx, c.fetcher, LevelModels, fmt.Sprintf("models?brandId=%d", brandId))
}

func (c *Client) Types(ctx context.Context, modelId int64) ([]models.ChassisType, error) {
	return fetchList[models.ChassisType](ctx, c.fetcher, LevelTypes, fmt.Sprintf("types?modelId=%d", modelId))
}

func (c *Client) Engines(ctx context.Context, typeId int64) ([]models.EngineVariant, error) {
	return fetchList[models.EngineVariant](ctx, c.fetcher, LevelEngines, fmt.Sprintf("engines?typeId=%d", typeId))
}

func (c *Client) Stages(ctx context.Context, engineId int64) ([]models.Stage, error) {
	return fetchList[models.Stage](ctx, c.fetcher, LevelStages, fmt.Sprintf("stages?engineId=%d", engineId))
}
