package database

import (
	"Tuner/internal/models"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a single record lookup matches nothing.
var ErrNotFound = errors.New("record not found")

var placeholderRe = regexp.MustCompile(`\$\d+`)

// SQLHandler is the catalog store. Queries are written with Postgres
// placeholders and rebound for SQLite.
type SQLHandler struct {
	DB     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the catalog database and verifies the connection.
// Supported drivers are "postgres" and "sqlite".
func Open(driver string, connectionString string, logger *slog.Logger) (*SQLHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, connectionString)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	// Verify the connection by pinging the database
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	logger.Debug("connected to catalog database", "driver", driver)
	return &SQLHandler{DB: db, driver: driver, logger: logger}, nil
}

func (handler *SQLHandler) Close() error {
	return handler.DB.Close()
}

// Migrate creates the catalog tables when they do not exist yet.
func (handler *SQLHandler) Migrate() error {
	for _, stmt := range schema {
		if _, err := handler.DB.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (handler *SQLHandler) rebind(query string) string {
	if handler.driver == "sqlite" {
		return placeholderRe.ReplaceAllString(query, "?")
	}
	return query
}

func (handler *SQLHandler) InsertBrand(brand models.Brand) error {
	_, err := handler.DB.Exec(handler.rebind("INSERT INTO brands (id, name, logo) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING;"),
		brand.Id, brand.Name, brand.Logo)
	return err
}

func (handler *SQLHandler) InsertModel(model models.Model) error {
	_, err := handler.DB.Exec(handler.rebind("INSERT INTO models (id, brand_id, name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING;"),
		model.Id, model.BrandId, model.Name)
	return err
}

func (handler *SQLHandler) InsertType(chassisType models.ChassisType) error {
	_, err := handler.DB.Exec(handler.rebind("INSERT INTO chassis_types (id, model_id, name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING;"),
		chassisType.Id, chassisType.ModelId, chassisType.Name)
	return err
}

func (handler *SQLHandler) InsertEngine(engine models.EngineVariant) error {
	_, err := handler.DB.Exec(handler.rebind("INSERT INTO engines (id, type_id, name, description, engine_type) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING;"),
		engine.Id, engine.TypeId, engine.Name, engine.Description, engine.Type)
	return err
}

// InsertStages adds the stages to the database in a batch.
func (handler *SQLHandler) InsertStages(stages []models.Stage) (err error) {
	// Prepare a transaction
	tx, err := handler.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	stmt, err := tx.Prepare(handler.rebind("INSERT INTO stages (id, engine_id, stage_name, stock_hp, stock_nm, tuned_hp, tuned_nm, notes, ecu_notes, ecu_unlock, cpc_upgrade) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO NOTHING;"))
	if err != nil {
		return err
	}
	defer stmt.Close()
	// Execute statement to add the stages.
	for _, stage := range stages {
		_, err = stmt.Exec(stage.Id, stage.EngineId, stage.StageName, stage.StockHp, stage.StockNm,
			stage.TunedHp, stage.TunedNm, stage.Notes, stage.EcuNotes, stage.EcuUnlock, stage.CpcUpgrade)
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertCatalog writes one parsed engine page, parents first.
func (handler *SQLHandler) InsertCatalog(catalog models.Catalog) error {
	if err := handler.InsertBrand(catalog.Brand); err != nil {
		return fmt.Errorf("insert brand %q: %w", catalog.Brand.Name, err)
	}
	if err := handler.InsertModel(catalog.Model); err != nil {
		return fmt.Errorf("insert model %q: %w", catalog.Model.Name, err)
	}
	if err := handler.InsertType(catalog.Type); err != nil {
		return fmt.Errorf("insert chassis type %q: %w", catalog.Type.Name, err)
	}
	if err := handler.InsertEngine(catalog.Engine); err != nil {
		return fmt.Errorf("insert engine %q: %w", catalog.Engine.Name, err)
	}
	if err := handler.InsertStages(catalog.Stages); err != nil {
		return fmt.Errorf("insert stages for %q: %w", catalog.Engine.Name, err)
	}
	return nil
}

func (handler *SQLHandler) GetBrands() ([]models.Brand, error) {
	rows, err := handler.DB.Query("SELECT id, name, logo FROM brands ORDER BY name ASC;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := []models.Brand{}
	for rows.Next() {
		var brand models.Brand
		if err := rows.Scan(&brand.Id, &brand.Name, &brand.Logo); err != nil {
			return nil, err
		}
		brands = append(brands, brand)
	}
	return brands, rows.Err()
}

func (handler *SQLHandler) GetModelsForBrand(brandId int64) ([]models.Model, error) {
	rows, err := handler.DB.Query(handler.rebind("SELECT id, brand_id, name FROM models WHERE brand_id = $1 ORDER BY name ASC;"), brandId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Model{}
	for rows.Next() {
		var model models.Model
		if err := rows.Scan(&model.Id, &model.BrandId, &model.Name); err != nil {
			return nil, err
		}
		result = append(result, model)
	}
	return result, rows.Err()
}

func (handler *SQLHandler) GetTypesForModel(modelId int64) ([]models.ChassisType, error) {
	rows, err := handler.DB.Query(handler.rebind("SELECT id, model_id, name FROM chassis_types WHERE model_id = $1 ORDER BY name ASC;"), modelId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []models.ChassisType{}
	for rows.Next() {
		var chassisType models.ChassisType
		if err := rows.Scan(&chassisType.Id, &chassisType.ModelId, &chassisType.Name); err != nil {
			return nil, err
		}
		types = append(types, chassisType)
	}
	return types, rows.Err()
}

func (handler *SQLHandler) GetEnginesForType(typeId int64) ([]models.EngineVariant, error) {
	rows, err := handler.DB.Query(handler.rebind("SELECT id, type_id, name, description, engine_type FROM engines WHERE type_id = $1 ORDER BY name ASC;"), typeId)
	if err != nil {
		handler.logger.Warn("error while getting engines for chassis type", "typeId", typeId, "error", err)
		return nil, err
	}
	defer rows.Close()

	engines := []models.EngineVariant{}
	for rows.Next() {
		var engine models.EngineVariant
		if err := rows.Scan(&engine.Id, &engine.TypeId, &engine.Name, &engine.Description, &engine.Type); err != nil {
			return nil, err
		}
		engines = append(engines, engine)
	}
	return engines, rows.Err()
}

const stageColumns = "id, engine_id, stage_name, stock_hp, stock_nm, tuned_hp, tuned_nm, notes, ecu_notes, ecu_unlock, cpc_upgrade"

type scanner interface {
	Scan(dest ...any) error
}

func scanStage(row scanner) (models.Stage, error) {
	var stage models.Stage
	err := row.Scan(&stage.Id, &stage.EngineId, &stage.StageName, &stage.StockHp, &stage.StockNm,
		&stage.TunedHp, &stage.TunedNm, &stage.Notes, &stage.EcuNotes, &stage.EcuUnlock, &stage.CpcUpgrade)
	return stage, err
}

func (handler *SQLHandler) GetStagesForEngine(engineId int64) ([]models.Stage, error) {
	rows, err := handler.DB.Query(handler.rebind("SELECT "+stageColumns+" FROM stages WHERE engine_id = $1 ORDER BY id ASC;"), engineId)
	if err != nil {
		handler.logger.Warn("error while getting stages for engine", "engineId", engineId, "error", err)
		return nil, err
	}
	defer rows.Close()

	stages := []models.Stage{}
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func (handler *SQLHandler) GetStage(stageId int64) (models.Stage, error) {
	row := handler.DB.QueryRow(handler.rebind("SELECT "+stageColumns+" FROM stages WHERE id = $1;"), stageId)
	stage, err := scanStage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return stage, fmt.Errorf("stage %d: %w", stageId, ErrNotFound)
	}
	return stage, err
}
