package models

// DatabaseHandler defines the methods for interacting with the catalog database
type DatabaseHandler interface {
	InsertBrand(brand Brand) error
	InsertModel(model Model) error
	InsertType(chassisType ChassisType) error
	InsertEngine(engine EngineVariant) error
	InsertStages(stages []Stage) error
	GetBrands() ([]Brand, error)
	GetModelsForBrand(brandId int64) ([]Model, error)
	GetTypesForModel(modelId int64) ([]ChassisType, error)
	GetEnginesForType(typeId int64) ([]EngineVariant, error)
	GetStagesForEngine(engineId int64) ([]Stage, error)
	GetStage(stageId int64) (Stage, error)
}
