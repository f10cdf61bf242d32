package models

type Brand struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type Model struct {
	Id      int64  `json:"id"`
	BrandId int64  `json:"brandId"`
	Name    string `json:"name"`
}

// ChassisType is a generation or platform variant of a model.
type ChassisType struct {
	Id      int64  `json:"id"`
	ModelId int64  `json:"modelId"`
	Name    string `json:"name"`
}

type EngineVariant struct {
	Id          int64  `json:"id"`
	TypeId      int64  `json:"typeId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Free-text engine type tag, for example "Diesel" or "Petrol".
	Type string `json:"type"`
}

// RawEngine is an engine page as scraped, before any parsing.
type RawEngine struct {
	Brand       string
	Model       string
	Chassis     string
	Engine      string
	Description string
	Url         string
	RawStages   []RawStage
}
