package models

// Stage is one tuning package for an engine variant.
type Stage struct {
	Id         int64  `json:"id"`
	EngineId   int64  `json:"engineId"`
	StageName  string `json:"stageName"`
	StockHp    int    `json:"stockHp"`
	StockNm    int    `json:"stockNm"`
	TunedHp    int    `json:"tunedHp"`
	TunedNm    int    `json:"tunedNm"`
	Notes      string `json:"notes"`
	EcuNotes   string `json:"ecuNotes"`
	EcuUnlock  bool   `json:"ecuUnlock"`
	CpcUpgrade bool   `json:"cpcUpgrade"`
}

type RawStage struct {
	Name  string
	Stock string
	Tuned string
	Notes string
}

// Catalog is a fully parsed engine page ready to be written to the database.
type Catalog struct {
	Brand  Brand         `json:"brand"`
	Model  Model         `json:"model"`
	Type   ChassisType   `json:"type"`
	Engine EngineVariant `json:"engine"`
	Stages []Stage       `json:"stages"`
}
